package chatstream

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrAlreadyStreaming indicates Start was called while a session is live
	// and interruption was not allowed.
	ErrAlreadyStreaming = errors.New("already streaming: cancel the active session first")

	// ErrCancelled is returned by Start when the session was cancelled by the caller.
	ErrCancelled = errors.New("stream cancelled")

	// ErrConnectionLost indicates the transport ended before a completion signal.
	ErrConnectionLost = errors.New("connection lost")

	// ErrMalformedFrame indicates a single frame could not be decoded.
	// It never ends a session.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrStreamClosed indicates an operation on a closed frame stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrNotFound indicates a conversation does not exist in the store.
	ErrNotFound = errors.New("not found")
)
