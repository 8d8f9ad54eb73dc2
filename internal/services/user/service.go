package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/loggo/v2"

	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/protocol/circuit"
	"onionnet/internal/protocol/onion"
)

var log = loggo.GetLogger("onionnet.user")

// Config parameterises a user.
type Config struct {
	ID               domain.UserID
	Ports            domain.Ports
	PathLength       int
	MaxMessageLength int
	Rand             circuit.Source // nil uses the process-wide source
}

// Service is one user.
type Service struct {
	cfg       Config
	usage     *circuit.UsageTracker
	selector  *circuit.Selector
	builder   *onion.Builder
	transport domain.Transport
	metrics   *metrics.Metrics

	mtx          sync.RWMutex
	lastReceived *string
	lastSent     *string
	lastCircuit  []domain.NodeID
}

// New returns a user discovering routers through dir and delivering layers
// through transport.
func New(cfg Config, dir circuit.Lister, transport domain.Transport, m *metrics.Metrics) *Service {
	if cfg.PathLength <= 0 {
		cfg.PathLength = circuit.DefaultPathLength
	}
	usage := circuit.NewUsageTracker()
	return &Service{
		cfg:       cfg,
		usage:     usage,
		selector:  circuit.NewSelector(dir, usage, cfg.Rand),
		builder:   onion.NewBuilder(cfg.MaxMessageLength),
		transport: transport,
		metrics:   m,
	}
}

// ID returns the user id.
func (s *Service) ID() domain.UserID { return s.cfg.ID }

// Usage returns the tracker weighting this user's circuit selection.
func (s *Service) Usage() *circuit.UsageTracker { return s.usage }

// SendMessage routes message to user to through a fresh circuit. It returns
// once the entry router accepted the outermost layer.
func (s *Service) SendMessage(ctx context.Context, message string, to domain.UserID) error {
	log.Tracef("SendMessage %v -> %v", s.cfg.ID, to)
	defer log.Tracef("SendMessage %v -> %v exit", s.cfg.ID, to)

	c, err := s.selector.Select(ctx, s.cfg.PathLength)
	if err != nil {
		return fmt.Errorf("user %v: select circuit: %w", s.cfg.ID, err)
	}
	s.metrics.CircuitBuilt(c)

	s.mtx.Lock()
	s.lastSent = &message
	s.lastCircuit = c.IDs()
	s.mtx.Unlock()
	log.Infof("user %v created circuit %v", s.cfg.ID, c.IDs())

	hops := make([]onion.Hop, len(c))
	for i, n := range c {
		hops[i] = onion.Hop{Port: s.cfg.Ports.Router(n.NodeID), PublicKey: n.PubKey}
	}
	layer, err := s.builder.Build(message, hops, s.cfg.Ports.User(to))
	if err != nil {
		return fmt.Errorf("user %v: build onion: %w", s.cfg.ID, err)
	}

	if err := s.transport.Deliver(ctx, hops[0].Port, layer); err != nil {
		return fmt.Errorf("user %v: deliver to entry router %v: %w",
			s.cfg.ID, c[0].NodeID, err)
	}
	s.metrics.MessageSent()
	return nil
}

// ReceiveMessage records a plaintext delivered by an exit router.
func (s *Service) ReceiveMessage(message string) {
	s.mtx.Lock()
	s.lastReceived = &message
	s.mtx.Unlock()
	s.metrics.MessageReceived()
	log.Infof("user %v received message (%d chars)", s.cfg.ID, len(message))
}

// LastReceivedMessage returns the last received plaintext, or nil.
func (s *Service) LastReceivedMessage() *string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.lastReceived
}

// LastSentMessage returns the last message a circuit was built for, or nil.
func (s *Service) LastSentMessage() *string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.lastSent
}

// LastCircuit returns the node ids of the last circuit, or nil.
func (s *Service) LastCircuit() []domain.NodeID {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.lastCircuit == nil {
		return nil
	}
	return append([]domain.NodeID(nil), s.lastCircuit...)
}
