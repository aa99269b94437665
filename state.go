package chatstream

import (
	"fmt"
	"time"
)

// State is the Controller's position in the session state machine.
type State int

const (
	StateIdle       State = iota // No live session.
	StateStarting                // Connecting to the backend.
	StateStreaming               // Receiving frames.
	StateCompleting              // Done frame received, finalizing.
	StateCancelling              // Caller cancelled.
	StateTimingOut               // Activity timer elapsed.
	StateFailing                 // Transport or backend error.
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateCancelling:
		return "cancelling"
	case StateTimingOut:
		return "timing_out"
	case StateFailing:
		return "failing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is a point-in-time view of the live session.
type Session struct {
	MessageID      string
	State          State
	Content        string
	StartedAt      time.Time
	LastActivityAt time.Time
}

// OutcomeKind is the terminal result of a session.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeCancelled
	OutcomeTimedOut
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the single terminal result produced per session.
// Content holds the final text for Completed and the text accumulated so far
// otherwise.
type Outcome struct {
	Kind      OutcomeKind
	MessageID string
	Content   string
	Err       *Error // set for TimedOut and Failed
}

// Result returns the error Start reports for this outcome, nil when completed.
func (o Outcome) Result() error {
	switch o.Kind {
	case OutcomeCompleted:
		return nil
	case OutcomeCancelled:
		return ErrCancelled
	default:
		if o.Err == nil {
			return &Error{Kind: ErrorUnknown}
		}
		return o.Err
	}
}
