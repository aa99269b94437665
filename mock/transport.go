// Package mock provides test doubles for chatstream interfaces using function fields.
package mock

import (
	"context"

	"github.com/pratikoai/chatstream"
)

// Interface compliance checks.
var (
	_ chatstream.Transport   = (*Transport)(nil)
	_ chatstream.FrameStream = (*FrameStream)(nil)
)

// Transport is a test double for chatstream.Transport.
// Set OpenFn before calling Open.
type Transport struct {
	OpenFn func(ctx context.Context, req chatstream.Request) (chatstream.FrameStream, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req chatstream.Request) (chatstream.FrameStream, error) {
	return t.OpenFn(ctx, req)
}

// FrameStream is a test double for chatstream.FrameStream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// the Controller always closes the stream it opened.
type FrameStream struct {
	NextFn  func() (string, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *FrameStream) Next() (string, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *FrameStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
