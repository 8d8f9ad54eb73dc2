package app

import (
	"errors"
	"fmt"
	"time"

	"onionnet/internal/domain"
	"onionnet/internal/protocol/circuit"
	"onionnet/internal/protocol/onion"
)

const (
	DefaultHost             = "localhost"
	DefaultRegistryPort     = 8080
	DefaultBaseRouterPort   = 4000
	DefaultBaseUserPort     = 3000
	DefaultRegisterAttempts = 5
	DefaultRegisterInterval = 250 * time.Millisecond
	DefaultRequestTimeout   = 30 * time.Second
	DefaultLogLevel         = "onionnet=INFO"
)

// Config holds runtime wiring options for building the network.
type Config struct {
	Host           string // every participant listens on Host
	RegistryPort   int
	BaseRouterPort int // router i listens on BaseRouterPort+i
	BaseUserPort   int // user j listens on BaseUserPort+j
	FallbackPort   int // 0 means BaseRouterPort+1

	PathLength       int
	MaxMessageLength int // negative disables truncation

	RegisterAttempts uint64
	RegisterInterval time.Duration
	RequestTimeout   time.Duration // outbound HTTP requests

	PrometheusAddress string // empty disables metrics
	LogLevel          string
}

// NewDefaultConfig returns the stock port scheme on localhost.
func NewDefaultConfig() *Config {
	return &Config{
		Host:             DefaultHost,
		RegistryPort:     DefaultRegistryPort,
		BaseRouterPort:   DefaultBaseRouterPort,
		BaseUserPort:     DefaultBaseUserPort,
		PathLength:       circuit.DefaultPathLength,
		MaxMessageLength: onion.DefaultMaxMessageLength,
		RegisterAttempts: DefaultRegisterAttempts,
		RegisterInterval: DefaultRegisterInterval,
		RequestTimeout:   DefaultRequestTimeout,
		LogLevel:         DefaultLogLevel,
	}
}

// Ports returns the addressing scheme derived from c.
func (c *Config) Ports() domain.Ports {
	fallback := c.FallbackPort
	if fallback == 0 {
		fallback = c.BaseRouterPort + 1
	}
	return domain.Ports{
		Registry:   c.RegistryPort,
		BaseRouter: c.BaseRouterPort,
		BaseUser:   c.BaseUserPort,
		Fallback:   fallback,
	}
}

// Validate rejects configurations that cannot address anybody.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	for name, p := range map[string]int{
		"registry port":    c.RegistryPort,
		"base router port": c.BaseRouterPort,
		"base user port":   c.BaseUserPort,
	} {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid %v: %d", name, p)
		}
	}
	if c.FallbackPort < 0 || c.FallbackPort > 65535 {
		return fmt.Errorf("invalid fallback port: %d", c.FallbackPort)
	}
	if c.PathLength <= 0 {
		return fmt.Errorf("invalid path length: %d", c.PathLength)
	}
	return nil
}
