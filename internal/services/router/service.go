package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/loggo/v2"

	"onionnet/internal/crypto"
	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/protocol/onion"
)

var log = loggo.GetLogger("onionnet.router")

// Service is one onion router.
type Service struct {
	id        domain.NodeID
	keys      crypto.KeyPair
	pubKey    string
	peeler    *onion.Peeler
	transport domain.Transport
	metrics   *metrics.Metrics

	mtx             sync.RWMutex
	lastEncrypted   *string
	lastDecrypted   *string
	lastDestination *int
}

// New generates the router's key pair. Key failures are fatal for the
// router.
func New(id domain.NodeID, fallbackPort int, transport domain.Transport, m *metrics.Metrics) (*Service, error) {
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("router %v: %w", id, err)
	}
	pub, err := crypto.ExportPublicKey(keys.Public)
	if err != nil {
		return nil, fmt.Errorf("router %v: %w", id, err)
	}
	return &Service{
		id:        id,
		keys:      keys,
		pubKey:    pub,
		peeler:    onion.NewPeeler(keys.Private, fallbackPort),
		transport: transport,
		metrics:   m,
	}, nil
}

// ID returns the router's node id.
func (s *Service) ID() domain.NodeID { return s.id }

// Node returns the directory entry announcing this router.
func (s *Service) Node() domain.Node {
	return domain.Node{NodeID: s.id, PubKey: s.pubKey}
}

// PrivateKey returns the exported private key. It exists for test harnesses
// that need to build or inspect layers out of band.
func (s *Service) PrivateKey() (string, error) {
	return crypto.ExportPrivateKey(s.keys.Private)
}

// HandleLayer peels layer and forwards the remainder. A routable layer that
// cannot be delivered returns an error wrapping domain.ErrTransport; a
// degraded layer is always accepted, even when the fallback delivery fails.
func (s *Service) HandleLayer(ctx context.Context, layer string) (onion.Result, error) {
	log.Tracef("HandleLayer %v", s.id)
	defer log.Tracef("HandleLayer %v exit", s.id)

	res := s.peeler.Peel(layer)
	s.metrics.LayerPeeled(s.id, res)

	// The three slots describe one layer.
	payload, dest := res.Payload, res.Destination
	s.mtx.Lock()
	s.lastEncrypted = &layer
	s.lastDecrypted = &payload
	s.lastDestination = &dest
	s.mtx.Unlock()

	if res.Degraded() {
		// An empty layer is what a degraded upstream router emits.
		// Forwarding it again could only cycle through the fallback.
		if layer == "" {
			log.Warningf("router %v: dropping empty layer", s.id)
			return res, nil
		}
		log.Warningf("router %v: unpeelable layer, routing to fallback %v: %v",
			s.id, dest, res.Err)
	}

	if err := s.transport.Deliver(ctx, dest, payload); err != nil {
		s.metrics.ForwardFailed(s.id)
		if res.Degraded() {
			log.Errorf("router %v: fallback delivery to %v: %v", s.id, dest, err)
			return res, nil
		}
		return res, fmt.Errorf("router %v: forward to %v: %w", s.id, dest, err)
	}
	if !res.Degraded() {
		res.State = onion.StateForwarded
	}
	log.Debugf("router %v: forwarded to %v", s.id, dest)
	return res, nil
}

// Observation is what the router recorded for the last layer it handled.
// Every field is nil before the first layer.
type Observation struct {
	Encrypted   *string
	Decrypted   *string
	Destination *int
}

// Last returns the slots of the last handled layer as one record.
func (s *Service) Last() Observation {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return Observation{
		Encrypted:   s.lastEncrypted,
		Decrypted:   s.lastDecrypted,
		Destination: s.lastDestination,
	}
}

// LastReceivedEncryptedMessage returns the last received layer, or nil.
func (s *Service) LastReceivedEncryptedMessage() *string {
	return s.Last().Encrypted
}

// LastReceivedDecryptedMessage returns the last peeled payload, or nil.
func (s *Service) LastReceivedDecryptedMessage() *string {
	return s.Last().Decrypted
}

// LastMessageDestination returns the last forwarding destination, or nil.
func (s *Service) LastMessageDestination() *int {
	return s.Last().Destination
}
