package chatstream

import (
	"context"
	"fmt"
)

// Request is what a Transport sends to the backend for one session.
type Request struct {
	MessageID string
	Messages  []Message

	// BypassUsageLimit asks the backend to serve the request even when the
	// caller's usage window is exhausted.
	BypassUsageLimit bool
}

// Validate checks universal constraints on Request.
func (r Request) Validate() error {
	if r.MessageID == "" {
		return fmt.Errorf("message id must not be empty: %w", ErrValidation)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("conversation history must not be empty: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q: %w", i, m.Role, ErrValidation)
		}
	}
	return nil
}

// Transport opens one streaming response. Implementations must honour ctx
// cancellation by unblocking any pending FrameStream.Next call.
type Transport interface {
	Open(ctx context.Context, req Request) (FrameStream, error)
}

// FrameStream yields raw SSE records in delivery order. Next returns an error
// wrapping ErrConnectionLost when the source ends.
type FrameStream interface {
	Next() (string, error)
	Close() error
}
