package mock

import "github.com/pratikoai/chatstream"

// Interface compliance checks.
var (
	_ chatstream.Observer      = (*Observer)(nil)
	_ chatstream.StartObserver = (*Observer)(nil)
)

// Observer is a test double for chatstream.Observer and
// chatstream.StartObserver. Every method is a no-op when its function field
// is nil, so tests only set the notifications they assert on.
type Observer struct {
	StartedFn        func(messageID string)
	ContentUpdatedFn func(messageID, content string)
	CompletedFn      func(messageID, content string)
	CancelledFn      func(messageID, content string)
	FailedFn         func(messageID string, err *chatstream.Error)
}

// Started delegates to StartedFn.
func (o *Observer) Started(messageID string) {
	if o.StartedFn != nil {
		o.StartedFn(messageID)
	}
}

// ContentUpdated delegates to ContentUpdatedFn.
func (o *Observer) ContentUpdated(messageID, content string) {
	if o.ContentUpdatedFn != nil {
		o.ContentUpdatedFn(messageID, content)
	}
}

// Completed delegates to CompletedFn.
func (o *Observer) Completed(messageID, content string) {
	if o.CompletedFn != nil {
		o.CompletedFn(messageID, content)
	}
}

// Cancelled delegates to CancelledFn.
func (o *Observer) Cancelled(messageID, content string) {
	if o.CancelledFn != nil {
		o.CancelledFn(messageID, content)
	}
}

// Failed delegates to FailedFn.
func (o *Observer) Failed(messageID string, err *chatstream.Error) {
	if o.FailedFn != nil {
		o.FailedFn(messageID, err)
	}
}
