package chatstream

// Observer is the write-only sink for session notifications. For each
// session it receives any number of ContentUpdated calls followed by exactly
// one of Completed, Cancelled or Failed. Calls are serialized. An Observer
// must not call back into the Controller that notifies it.
type Observer interface {
	ContentUpdated(messageID, content string)
	Completed(messageID, content string)
	Cancelled(messageID, content string)
	Failed(messageID string, err *Error)
}

// StartObserver is implemented by observers that want to know when a session
// begins. The Controller calls Started once, before connecting.
type StartObserver interface {
	Started(messageID string)
}

// Observers fans notifications out to every element in order.
type Observers []Observer

// Interface compliance checks.
var (
	_ Observer      = Observers(nil)
	_ StartObserver = Observers(nil)
)

func (os Observers) Started(messageID string) {
	for _, o := range os {
		if so, ok := o.(StartObserver); ok {
			so.Started(messageID)
		}
	}
}

func (os Observers) ContentUpdated(messageID, content string) {
	for _, o := range os {
		o.ContentUpdated(messageID, content)
	}
}

func (os Observers) Completed(messageID, content string) {
	for _, o := range os {
		o.Completed(messageID, content)
	}
}

func (os Observers) Cancelled(messageID, content string) {
	for _, o := range os {
		o.Cancelled(messageID, content)
	}
}

func (os Observers) Failed(messageID string, err *Error) {
	for _, o := range os {
		o.Failed(messageID, err)
	}
}
