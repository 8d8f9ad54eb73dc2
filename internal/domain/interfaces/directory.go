package interfaces

import (
	"context"

	domaintypes "onionnet/internal/domain/types"
)

// Directory registers routers and lists the current membership.
type Directory interface {
	RegisterNode(ctx context.Context, node domaintypes.Node) error
	ListNodes(ctx context.Context) ([]domaintypes.Node, error)
}
