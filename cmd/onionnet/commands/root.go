package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/loggo/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"onionnet/internal/app"
	"onionnet/internal/metrics"
)

var (
	log = loggo.GetLogger("onionnet.cli")

	cfg = app.NewDefaultConfig()
)

// Execute runs the onionnet command line.
func Execute() error {
	root := &cobra.Command{
		Use:          "onionnet",
		Short:        "Onion routing over a local HTTP network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Host, "host", cfg.Host, "host every participant listens on")
	pf.IntVar(&cfg.RegistryPort, "registry-port", cfg.RegistryPort, "registry port")
	pf.IntVar(&cfg.BaseRouterPort, "base-router-port", cfg.BaseRouterPort, "router i listens on base+i")
	pf.IntVar(&cfg.BaseUserPort, "base-user-port", cfg.BaseUserPort, "user j listens on base+j")
	pf.IntVar(&cfg.FallbackPort, "fallback-port", cfg.FallbackPort, "destination of unpeelable layers (default base-router-port+1)")
	pf.IntVar(&cfg.PathLength, "path-length", cfg.PathLength, "routers per circuit")
	pf.IntVar(&cfg.MaxMessageLength, "max-message-length", cfg.MaxMessageLength, "truncate messages to this many characters (negative disables)")
	pf.Uint64Var(&cfg.RegisterAttempts, "register-attempts", cfg.RegisterAttempts, "router registration attempts")
	pf.DurationVar(&cfg.RegisterInterval, "register-interval", cfg.RegisterInterval, "delay between registration attempts")
	pf.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "outbound HTTP request timeout")
	pf.StringVar(&cfg.PrometheusAddress, "prometheus", cfg.PrometheusAddress, "prometheus listen address (empty disables)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "loggo logging specification")

	root.AddCommand(registryCmd(), routerCmd(), userCmd(), launchCmd(), sendCmd())
	return root.Execute()
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runner is a participant server.
type runner interface {
	Run(context.Context) error
}

// serve runs r, plus the metrics server when configured, until a signal
// arrives or r fails.
func serve(cmd *cobra.Command, w *app.Wire, r runner) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var ms *metrics.Server
	if cfg.PrometheusAddress != "" {
		var err error
		if ms, err = metrics.NewServer(cfg.PrometheusAddress); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Run(gctx) })
	if ms != nil {
		g.Go(func() error { return ms.Run(gctx, w.Metrics.Collectors(), nil) })
	}
	err := g.Wait()
	if ctx.Err() != nil {
		log.Infof("interrupted, exiting")
		return nil
	}
	return err
}
