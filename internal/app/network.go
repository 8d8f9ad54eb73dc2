package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/juju/loggo/v2"
	"golang.org/x/sync/errgroup"

	"onionnet/internal/domain"
	"onionnet/internal/metrics"
	"onionnet/internal/services/registry"
	"onionnet/internal/services/router"
	"onionnet/internal/services/user"
)

var log = loggo.GetLogger("onionnet.app")

// runner is a participant server.
type runner interface {
	Run(context.Context) error
	Ready() <-chan struct{}
}

// Network is a running simulation. Close stops every participant.
type Network struct {
	Wire     *Wire
	Registry *registry.Service
	Routers  []*router.Service
	Users    []*user.Service

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// LaunchNetwork starts the registry, then nbNodes routers (each registered
// before the next starts), then nbUsers users. Any startup failure tears
// down what was started and is returned.
func LaunchNetwork(ctx context.Context, cfg *Config, nbNodes, nbUsers int) (*Network, error) {
	log.Tracef("LaunchNetwork %d routers %d users", nbNodes, nbUsers)
	defer log.Tracef("LaunchNetwork exit")

	if nbNodes < 0 || nbUsers < 0 {
		return nil, fmt.Errorf("invalid network size: %d routers, %d users", nbNodes, nbUsers)
	}
	w, err := NewWire(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	n := &Network{
		Wire:   w,
		ctx:    gctx,
		cancel: cancel,
		g:      g,
	}

	reg, regSrv := w.Registry()
	n.Registry = reg
	if err := n.start(regSrv); err != nil {
		n.Close()
		return nil, fmt.Errorf("registry: %w", err)
	}

	if w.Config.PrometheusAddress != "" {
		if err := n.startMetrics(); err != nil {
			n.Close()
			return nil, err
		}
	}

	for i := 0; i < nbNodes; i++ {
		svc, srv, err := w.Router(domain.NodeID(i))
		if err != nil {
			n.Close()
			return nil, err
		}
		if err := n.start(srv); err != nil {
			n.Close()
			return nil, fmt.Errorf("router %d: %w", i, err)
		}
		n.Routers = append(n.Routers, svc)
	}

	for i := 0; i < nbUsers; i++ {
		svc, srv := w.User(domain.UserID(i))
		if err := n.start(srv); err != nil {
			n.Close()
			return nil, fmt.Errorf("user %d: %w", i, err)
		}
		n.Users = append(n.Users, svc)
	}

	log.Infof("network up: %d routers, %d users, registry on %v",
		nbNodes, nbUsers, w.Ports.Registry)
	return n, nil
}

// start runs r and waits until it is ready or fails.
func (n *Network) start(r runner) error {
	errCh := make(chan error, 1)
	n.g.Go(func() error {
		err := r.Run(n.ctx)
		errCh <- err
		return err
	})
	select {
	case <-r.Ready():
		return nil
	case err := <-errCh:
		return err
	case <-n.ctx.Done():
		return n.ctx.Err()
	}
}

func (n *Network) startMetrics() error {
	s, err := metrics.NewServer(n.Wire.Config.PrometheusAddress)
	if err != nil {
		return err
	}
	n.g.Go(func() error {
		return s.Run(n.ctx, n.Wire.Metrics.Collectors(), n.health)
	})
	return nil
}

func (n *Network) health(context.Context) (bool, any, error) {
	return true, map[string]int{"registered": n.Registry.Len()}, nil
}

// Done is closed when the network stops, either through Close or because a
// participant failed.
func (n *Network) Done() <-chan struct{} { return n.ctx.Done() }

// Close stops every participant and waits for them to exit. It returns the
// first error other than cancellation.
func (n *Network) Close() error {
	n.closeOnce.Do(func() {
		n.cancel()
		err := n.g.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			n.closeErr = err
		}
		log.Infof("network shut down")
	})
	return n.closeErr
}
