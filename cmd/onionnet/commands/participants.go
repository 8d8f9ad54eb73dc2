package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"onionnet/internal/app"
	"onionnet/internal/domain"
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// registry: run the node directory.
func registryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Run the node directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			_, srv := w.Registry()
			return serve(cmd, w, srv)
		},
	}
}

// router <id>: run one onion router; it registers with the directory once
// listening.
func routerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "router <id>",
		Short: "Run an onion router",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			_, srv, err := w.Router(domain.NodeID(id))
			if err != nil {
				return err
			}
			return serve(cmd, w, srv)
		},
	}
}

// user <id>: run one user.
func userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Run a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			_, srv := w.User(domain.UserID(id))
			return serve(cmd, w, srv)
		},
	}
}
