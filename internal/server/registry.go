package server

import (
	"context"
	"net/http"

	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/services/registry"
)

// Registry serves the node directory.
type Registry struct {
	*base

	svc     *registry.Service
	metrics *metrics.Metrics
}

// NewRegistry returns a registry server for svc on listenAddress.
func NewRegistry(listenAddress string, svc *registry.Service, m *metrics.Metrics) *Registry {
	return &Registry{
		base:    newBase("registry", listenAddress),
		svc:     svc,
		metrics: m,
	}
}

// Handler returns the registry routes.
func (s *Registry) Handler() http.Handler {
	mux := http.NewServeMux()
	handle(s.service, mux, "GET /status", status)
	handle(s.service, mux, "POST /registerNode", s.handleRegisterNode)
	handle(s.service, mux, "GET /getNodeRegistry", s.handleGetNodeRegistry)
	return mux
}

// Run serves until ctx is canceled.
func (s *Registry) Run(ctx context.Context) error {
	log.Tracef("Run %v", s.service)
	defer log.Tracef("Run %v exit", s.service)

	return s.serve(ctx, s.Handler(), nil)
}

func (s *Registry) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleRegisterNode: %v", r.RemoteAddr)
	defer log.Tracef("handleRegisterNode exit: %v", r.RemoteAddr)

	var req domain.RegisterNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node := domain.Node{NodeID: req.NodeID, PubKey: req.PubKey}
	if err := s.svc.RegisterNode(r.Context(), node); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.RegisteredNodes(s.svc.Len())
	w.WriteHeader(http.StatusOK)
}

func (s *Registry) handleGetNodeRegistry(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleGetNodeRegistry: %v", r.RemoteAddr)
	defer log.Tracef("handleGetNodeRegistry exit: %v", r.RemoteAddr)

	nodes, err := s.svc.ListNodes(r.Context())
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	if nodes == nil {
		nodes = []domain.Node{}
	}
	writeJSON(w, domain.NodeRegistryResponse{Nodes: nodes})
}
