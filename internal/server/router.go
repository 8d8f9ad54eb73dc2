package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"onionnet/internal/domain"
	"onionnet/internal/services/router"
)

const defaultRegisterInterval = 250 * time.Millisecond

// RouterConfig controls router startup.
type RouterConfig struct {
	ListenAddress    string
	RegisterAttempts uint64
	RegisterInterval time.Duration
}

// Router serves one onion router. Run announces the router to the
// directory once it is listening; a router that cannot register stops.
type Router struct {
	*base

	cfg RouterConfig
	svc *router.Service
	dir domain.Directory
}

// NewRouter returns a router server for svc registering with dir.
func NewRouter(cfg RouterConfig, svc *router.Service, dir domain.Directory) *Router {
	if cfg.RegisterAttempts == 0 {
		cfg.RegisterAttempts = 1
	}
	if cfg.RegisterInterval <= 0 {
		cfg.RegisterInterval = defaultRegisterInterval
	}
	return &Router{
		base: newBase(fmt.Sprintf("router %v", svc.ID()), cfg.ListenAddress),
		cfg:  cfg,
		svc:  svc,
		dir:  dir,
	}
}

// Handler returns the router routes.
func (s *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	handle(s.service, mux, "GET /status", status)
	handle(s.service, mux, "GET /getPrivateKey", s.handleGetPrivateKey)
	handle(s.service, mux, "GET /getLastReceivedEncryptedMessage",
		result(s.svc.LastReceivedEncryptedMessage))
	handle(s.service, mux, "GET /getLastReceivedDecryptedMessage",
		result(s.svc.LastReceivedDecryptedMessage))
	handle(s.service, mux, "GET /getLastMessageDestination",
		result(s.svc.LastMessageDestination))
	handle(s.service, mux, "POST /message", s.handleMessage)
	return mux
}

// Run serves until ctx is canceled or registration fails.
func (s *Router) Run(ctx context.Context) error {
	log.Tracef("Run %v", s.service)
	defer log.Tracef("Run %v exit", s.service)

	return s.serve(ctx, s.Handler(), s.register)
}

func (s *Router) register(ctx context.Context) error {
	backoff := retry.WithMaxRetries(s.cfg.RegisterAttempts-1,
		retry.NewConstant(s.cfg.RegisterInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.dir.RegisterNode(ctx, s.svc.Node()); err != nil {
			log.Debugf("%v register: %v", s.service, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%v register: %w", s.service, err)
	}
	log.Infof("%v registered", s.service)
	return nil
}

func (s *Router) handleGetPrivateKey(w http.ResponseWriter, _ *http.Request) {
	key, err := s.svc.PrivateKey()
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, domain.ResultResponse[string]{Result: &key})
}

func (s *Router) handleMessage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleMessage %v: %v", s.service, r.RemoteAddr)
	defer log.Tracef("handleMessage %v exit: %v", s.service, r.RemoteAddr)

	var req domain.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.svc.HandleLayer(r.Context(), req.Message); err != nil {
		log.Errorf("%v: %v", s.service, err)
		writeText(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}
