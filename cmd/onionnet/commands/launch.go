package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"onionnet/internal/app"
)

// launch: run a whole network in this process until interrupted.
func launchCmd() *cobra.Command {
	var nbNodes, nbUsers int
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Run a registry, routers and users in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			n, err := app.LaunchNetwork(ctx, cfg, nbNodes, nbUsers)
			if err != nil {
				return err
			}
			ports := n.Wire.Ports
			fmt.Printf("registry on %d, routers on %d-%d, users on %d-%d\n",
				ports.Registry,
				ports.BaseRouter, ports.BaseRouter+nbNodes-1,
				ports.BaseUser, ports.BaseUser+nbUsers-1)

			select {
			case <-ctx.Done():
				log.Infof("interrupted, shutting down")
			case <-n.Done():
				log.Errorf("network stopped unexpectedly")
			}
			return n.Close()
		},
	}
	cmd.Flags().IntVar(&nbNodes, "routers", 10, "number of onion routers")
	cmd.Flags().IntVar(&nbUsers, "users", 2, "number of users")
	return cmd
}
