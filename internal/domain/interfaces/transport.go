package interfaces

import "context"

// Transport delivers an opaque message to the participant listening on port.
// A nil error means the receiver acknowledged the message.
type Transport interface {
	Deliver(ctx context.Context, port int, message string) error
}
