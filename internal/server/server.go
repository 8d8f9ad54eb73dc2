package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/juju/loggo/v2"

	"onionnet/internal/domain"
)

const maxBodyBytes = 4 << 20

var log = loggo.GetLogger("onionnet.server")

// base carries the lifecycle shared by every participant server.
type base struct {
	mtx       sync.Mutex
	isRunning bool

	service       string
	listenAddress string
	ready         chan struct{}
	readyOnce     sync.Once
}

func newBase(service, listenAddress string) *base {
	return &base{
		service:       service,
		listenAddress: listenAddress,
		ready:         make(chan struct{}),
	}
}

func (b *base) testAndSetRunning(v bool) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	old := b.isRunning
	b.isRunning = v
	return old != b.isRunning
}

// Ready is closed once the server accepts connections.
func (b *base) Ready() <-chan struct{} { return b.ready }

func handle(service string, mux *http.ServeMux, pattern string, handler func(http.ResponseWriter, *http.Request)) {
	mux.HandleFunc(pattern, handler)
	log.Debugf("handle (%v): %v", service, pattern)
}

// serve listens on the configured address and serves h until ctx is
// canceled. started runs once the listener is bound; an error from it
// shuts the server down and is returned.
func (b *base) serve(ctx context.Context, h http.Handler, started func(context.Context) error) error {
	if !b.testAndSetRunning(true) {
		return fmt.Errorf("%v already running", b.service)
	}
	defer b.testAndSetRunning(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l, err := net.Listen("tcp", b.listenAddress)
	if err != nil {
		return fmt.Errorf("%v listen: %w", b.service, err)
	}
	httpServer := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	httpErrCh := make(chan error, 1)
	go func() {
		log.Infof("%v listening: %v", b.service, b.listenAddress)
		httpErrCh <- httpServer.Serve(l)
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("%v http server exit: %v", b.service, err)
			return
		}
		log.Infof("%v shutdown cleanly", b.service)
	}()

	if started != nil {
		if err := started(ctx); err != nil {
			return err
		}
	}
	b.readyOnce.Do(func() { close(b.ready) })

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Debugf("decode %v %v: %v", r.Method, r.URL.Path, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	log.Tracef("%v %v: %v", r.Method, r.URL.Path, spew.Sdump(v))
	return true
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		log.Debugf("write response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode response: %v", err)
	}
}

func status(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "live")
}

// result serves the {"result": ...} envelope of a diagnostic slot.
func result[T any](get func() *T) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, domain.ResultResponse[T]{Result: get()})
	}
}
