package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/loggo/v2"

	"onionnet/internal/crypto"
	"onionnet/internal/domain"
)

var log = loggo.GetLogger("onionnet.registry")

// Service is an in-memory directory. Listing returns nodes in first
// registration order.
type Service struct {
	mtx   sync.RWMutex
	nodes []domain.Node
	index map[domain.NodeID]int
}

// New returns an empty directory.
func New() *Service {
	return &Service{index: make(map[domain.NodeID]int)}
}

// RegisterNode inserts node or replaces the entry with the same id.
func (s *Service) RegisterNode(_ context.Context, node domain.Node) error {
	if node.NodeID < 0 {
		return fmt.Errorf("register node: negative node id %v", node.NodeID)
	}
	if node.PubKey == "" {
		return fmt.Errorf("register node %v: empty public key", node.NodeID)
	}

	s.mtx.Lock()
	i, ok := s.index[node.NodeID]
	if ok {
		s.nodes[i] = node
	} else {
		s.index[node.NodeID] = len(s.nodes)
		s.nodes = append(s.nodes, node)
	}
	s.mtx.Unlock()

	if ok {
		log.Infof("updated node %v (%v)", node.NodeID, crypto.Fingerprint(node.PubKey))
	} else {
		log.Infof("registered node %v (%v)", node.NodeID, crypto.Fingerprint(node.PubKey))
	}
	return nil
}

// ListNodes returns a copy of the current membership.
func (s *Service) ListNodes(context.Context) ([]domain.Node, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return append([]domain.Node(nil), s.nodes...), nil
}

// Len returns the number of registered nodes.
func (s *Service) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.nodes)
}

// Compile-time assertion that Service implements domain.Directory.
var _ domain.Directory = (*Service)(nil)
