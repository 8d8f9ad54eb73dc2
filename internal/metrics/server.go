package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = loggo.GetLogger("onionnet.metrics")

// HealthFunc reports whether the process is healthy plus optional JSON
// details.
type HealthFunc func(context.Context) (bool, any, error)

// Server serves Prometheus metrics and a health probe.
type Server struct {
	mtx       sync.Mutex
	isRunning bool

	listenAddress string
	healthCB      HealthFunc
}

// NewServer returns a metrics server for listenAddress.
func NewServer(listenAddress string) (*Server, error) {
	if listenAddress == "" {
		return nil, errors.New("listen address is required")
	}
	return &Server{listenAddress: listenAddress}, nil
}

func (s *Server) testAndSetRunning(b bool) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	old := s.isRunning
	s.isRunning = b
	return old != s.isRunning
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	log.Tracef("health")
	defer log.Tracef("health exit")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy, data, err := s.healthCB(ctx)
	if err != nil {
		log.Errorf("health callback: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	if data != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Errorf("health encode: %v", err)
		}
	}
}

// Run registers cs plus the Go runtime collectors and serves until ctx is
// canceled. A nil healthCB disables /health.
func (s *Server) Run(ctx context.Context, cs []prometheus.Collector, healthCB HealthFunc) error {
	if !s.testAndSetRunning(true) {
		return errors.New("metrics server already running")
	}
	defer s.testAndSetRunning(false)

	reg := prometheus.NewRegistry()
	all := []prometheus.Collector{
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	all = append(all, cs...)
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	if healthCB != nil {
		s.healthCB = healthCB
		mux.HandleFunc("/health", s.health)
	}

	httpServer := &http.Server{
		Addr:        s.listenAddress,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Prometheus listening: %v", s.listenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("prometheus server exit: %v", err)
	}
	log.Infof("prometheus clean shutdown")
	return ctx.Err()
}
