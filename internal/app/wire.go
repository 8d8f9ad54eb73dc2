package app

import (
	"net"
	"net/http"
	"strconv"

	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/server"
	"onionnet/internal/services/registry"
	"onionnet/internal/services/router"
	"onionnet/internal/services/user"
	"onionnet/internal/transport"
)

// Wire bundles the shared clients every participant is built from.
type Wire struct {
	Config    *Config
	Ports     domain.Ports
	Transport *transport.HTTP
	Metrics   *metrics.Metrics
}

// NewWire constructs the shared dependencies from cfg.
func NewWire(cfg *Config) (*Wire, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tr := transport.NewHTTP(cfg.Host, cfg.RegistryPort)
	tr.HTTP = &http.Client{Timeout: cfg.RequestTimeout}
	return &Wire{
		Config:    cfg,
		Ports:     cfg.Ports(),
		Transport: tr,
		Metrics:   metrics.New(),
	}, nil
}

func (w *Wire) address(port int) string {
	return net.JoinHostPort(w.Config.Host, strconv.Itoa(port))
}

// Registry builds the directory and its server.
func (w *Wire) Registry() (*registry.Service, *server.Registry) {
	svc := registry.New()
	return svc, server.NewRegistry(w.address(w.Ports.Registry), svc, w.Metrics)
}

// Router builds router id and its server. The router registers with the
// registry over HTTP once listening.
func (w *Wire) Router(id domain.NodeID) (*router.Service, *server.Router, error) {
	svc, err := router.New(id, w.Ports.Fallback, w.Transport, w.Metrics)
	if err != nil {
		return nil, nil, err
	}
	srv := server.NewRouter(server.RouterConfig{
		ListenAddress:    w.address(w.Ports.Router(id)),
		RegisterAttempts: w.Config.RegisterAttempts,
		RegisterInterval: w.Config.RegisterInterval,
	}, svc, w.Transport)
	return svc, srv, nil
}

// User builds user id and its server. The user discovers routers through
// the registry over HTTP.
func (w *Wire) User(id domain.UserID) (*user.Service, *server.User) {
	svc := user.New(user.Config{
		ID:               id,
		Ports:            w.Ports,
		PathLength:       w.Config.PathLength,
		MaxMessageLength: w.Config.MaxMessageLength,
	}, w.Transport, w.Transport, w.Metrics)
	return svc, server.NewUser(w.address(w.Ports.User(id)), svc)
}
