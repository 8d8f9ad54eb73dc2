package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"onionnet/internal/app"
	"onionnet/internal/domain"
	"onionnet/internal/transport"
)

// send <from> <to> <message>: ask running user <from> to route message to
// user <to>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <from> <to> <message>",
		Short: "Ask a running user to send a message through the network",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			to, err := parseID(args[1])
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			ports, c := w.Ports, w.Transport
			ctx := cmd.Context()
			if err := c.SendMessage(ctx, ports.User(domain.UserID(from)), args[2], domain.UserID(to)); err != nil {
				return err
			}

			circ, err := transport.GetResult[[]domain.NodeID](ctx, c, ports.User(domain.UserID(from)), "/getLastCircuit")
			if err != nil {
				return err
			}
			if circ != nil {
				fmt.Printf("sent via %v\n", *circ)
			} else {
				fmt.Println("sent")
			}
			return nil
		},
	}
}
