package chatstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Controller owns at most one in-flight streaming response. It binds a
// Transport, the frame interpreter, the content reconciler and an
// ActivityTimer into a single state machine and reports to an Observer.
//
// Start blocks until the session reaches its terminal outcome. Cancel may be
// called from any goroutine.
type Controller struct {
	transport Transport
	observer  Observer
	clock     Clock
	logger    *slog.Logger
	timeout   time.Duration
	slowFrame time.Duration

	mu          sync.Mutex // never held while acquiring a session's mu
	active      *session
	lastErr     error
	lastOutcome *Outcome
}

// session is the mutable state of one Start call.
type session struct {
	messageID string
	startedAt time.Time
	timeout   time.Duration
	cancel    context.CancelFunc
	timer     *ActivityTimer
	done      chan struct{} // closed when Start returns

	mu             sync.Mutex
	state          State
	content        string
	lastActivityAt time.Time
	outcome        *Outcome
}

// Option configures a [Controller].
type Option func(*Controller)

// WithClock sets the clock used for the activity timer and timestamps.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithTimeout sets the default inactivity timeout. Default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithSlowFrameThreshold sets the frame gap logged as slow. Zero disables it.
func WithSlowFrameThreshold(d time.Duration) Option {
	return func(c *Controller) { c.slowFrame = d }
}

// NewController creates a Controller. A nil observer discards notifications.
func NewController(transport Transport, observer Observer, opts ...Option) *Controller {
	if observer == nil {
		observer = Observers(nil)
	}
	c := &Controller{
		transport: transport,
		observer:  observer,
		clock:     SystemClock,
		logger:    slog.New(slog.DiscardHandler),
		timeout:   DefaultTimeout,
		slowFrame: SlowFrameThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StartOption configures a single Start call.
type StartOption func(*startConfig)

type startConfig struct {
	timeout   time.Duration
	interrupt bool
	bypass    bool
}

// WithSessionTimeout overrides the inactivity timeout for one session.
func WithSessionTimeout(d time.Duration) StartOption {
	return func(c *startConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInterruption makes Start cancel a live session instead of rejecting
// the call with ErrAlreadyStreaming.
func WithInterruption(allow bool) StartOption {
	return func(c *startConfig) { c.interrupt = allow }
}

// WithBypassUsageLimit sets Request.BypassUsageLimit for one session. It is
// meant for retrying after a usage-limit failure that allows bypass.
func WithBypassUsageLimit(bypass bool) StartOption {
	return func(c *startConfig) { c.bypass = bypass }
}

// Start streams the assistant response for messageID and blocks until the
// session ends. It returns nil when the response completed, ErrCancelled when
// cancelled, or a classified *Error for timeouts and failures. Rejections
// (ErrAlreadyStreaming, ErrValidation) emit no notification.
func (c *Controller) Start(ctx context.Context, messageID string, history []Message, opts ...StartOption) error {
	cfg := startConfig{timeout: c.timeout}
	for _, o := range opts {
		o(&cfg)
	}
	req := Request{MessageID: messageID, Messages: history, BypassUsageLimit: cfg.bypass}
	if err := req.Validate(); err != nil {
		return err
	}

	s, sctx, err := c.acquire(ctx, messageID, cfg)
	if err != nil {
		return err
	}
	defer close(s.done)
	defer s.cancel()

	// Caller cancellation ends the session the same way Cancel does.
	stop := context.AfterFunc(ctx, func() {
		c.finish(s, Outcome{Kind: OutcomeCancelled}, StateCancelling)
	})
	defer stop()

	s.mu.Lock()
	if s.outcome != nil {
		// Cancelled before it started.
		s.mu.Unlock()
		return s.result()
	}
	if so, ok := c.observer.(StartObserver); ok {
		so.Started(messageID)
	}
	s.timer.Arm(cfg.timeout)
	s.mu.Unlock()

	stream, err := c.transport.Open(sctx, req)

	s.mu.Lock()
	if s.outcome != nil {
		s.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		return s.result()
	}
	if err != nil {
		c.failLocked(ctx, s, err)
		s.mu.Unlock()
		return s.result()
	}
	s.state = StateStreaming
	s.mu.Unlock()

	defer stream.Close()
	c.read(ctx, s, stream)
	return s.result()
}

// acquire installs a new session, cancelling a live one first when allowed.
// The returned context is cancelled when the session ends, and the session is
// fully initialized before Cancel can observe it.
func (c *Controller) acquire(ctx context.Context, messageID string, cfg startConfig) (*session, context.Context, error) {
	for {
		c.mu.Lock()
		prev := c.active
		if prev == nil {
			now := c.clock.Now()
			sctx, cancel := context.WithCancel(ctx)
			s := &session{
				messageID:      messageID,
				startedAt:      now,
				timeout:        cfg.timeout,
				cancel:         cancel,
				done:           make(chan struct{}),
				state:          StateStarting,
				lastActivityAt: now,
			}
			s.timer = NewActivityTimer(c.clock, func() { c.expire(s) })
			c.active = s
			c.mu.Unlock()
			return s, sctx, nil
		}
		c.mu.Unlock()

		if !cfg.interrupt {
			return nil, nil, ErrAlreadyStreaming
		}
		c.logger.Info("interrupting active stream", "message_id", prev.messageID, "next_message_id", messageID)
		c.finish(prev, Outcome{Kind: OutcomeCancelled}, StateCancelling)
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// read processes frames in delivery order until the session ends.
func (c *Controller) read(ctx context.Context, s *session, stream FrameStream) {
	for {
		raw, err := stream.Next()

		s.mu.Lock()
		if s.outcome != nil {
			s.mu.Unlock()
			return
		}
		if err != nil {
			c.failLocked(ctx, s, err)
			s.mu.Unlock()
			return
		}
		c.handleFrame(s, raw)
		done := s.outcome != nil
		s.mu.Unlock()
		if done {
			return
		}
	}
}

// handleFrame applies one raw record. Every record counts as activity,
// including keepalives and frames that fail to parse.
func (c *Controller) handleFrame(s *session, raw string) {
	now := c.clock.Now()
	if gap := now.Sub(s.lastActivityAt); c.slowFrame > 0 && gap > c.slowFrame {
		c.logger.Warn("slow frame", "message_id", s.messageID, "gap", gap)
	}
	s.lastActivityAt = now
	s.timer.Reset()

	f, err := ParseFrame(raw)
	if err != nil {
		c.logger.Warn("dropping frame", "message_id", s.messageID, "error", err)
		return
	}

	switch f.Kind {
	case FrameKeepalive:
	case FrameDelta:
		next := Reconcile(s.content, f.Content)
		if next == s.content {
			return
		}
		s.content = next
		c.observer.ContentUpdated(s.messageID, next)
	case FrameDone:
		// Reconcile already trimmed every seam, so the streamed content is
		// what CollapseDuplicates yields for the raw delta sequence.
		c.finishLocked(s, Outcome{Kind: OutcomeCompleted}, StateCompleting)
	case FrameError:
		c.finishLocked(s, Outcome{Kind: OutcomeFailed, Err: f.Err}, StateFailing)
	}
}

// expire ends s on inactivity. A frame that landed after the deadline fired
// but before s.mu was taken counts, and re-arms the timer instead.
func (c *Controller) expire(s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != nil {
		return
	}
	if idle := c.clock.Now().Sub(s.lastActivityAt); idle < s.timeout {
		s.timer.Arm(s.timeout)
		return
	}
	c.finishLocked(s, Outcome{
		Kind: OutcomeTimedOut,
		Err: &Error{
			Kind:    ErrorTimeout,
			Message: fmt.Sprintf("no activity for %s", s.timeout),
		},
	}, StateTimingOut)
}

// failLocked ends s after a transport error. An error caused by the caller's
// context is a cancellation, not a failure.
func (c *Controller) failLocked(ctx context.Context, s *session, err error) {
	if ctx.Err() != nil {
		c.finishLocked(s, Outcome{Kind: OutcomeCancelled}, StateCancelling)
		return
	}
	c.finishLocked(s, Outcome{Kind: OutcomeFailed, Err: ClassifyError(err)}, StateFailing)
}

func (c *Controller) finish(s *session, o Outcome, via State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.finishLocked(s, o, via)
}

// finishLocked records the terminal outcome and emits its notification. Only
// the first call per session has any effect. s.mu must be held.
func (c *Controller) finishLocked(s *session, o Outcome, via State) {
	if s.outcome != nil {
		return
	}
	s.state = via
	s.timer.Cancel()
	s.cancel()

	o.MessageID = s.messageID
	o.Content = s.content
	s.outcome = &o

	elapsed := c.clock.Now().Sub(s.startedAt)
	switch o.Kind {
	case OutcomeCompleted:
		c.logger.Info("stream completed", "message_id", s.messageID, "bytes", len(o.Content), "duration", elapsed)
		c.observer.Completed(s.messageID, o.Content)
	case OutcomeCancelled:
		c.logger.Info("stream cancelled", "message_id", s.messageID, "bytes", len(o.Content), "duration", elapsed)
		c.observer.Cancelled(s.messageID, o.Content)
	case OutcomeTimedOut, OutcomeFailed:
		c.logger.Warn("stream failed", "message_id", s.messageID, "outcome", o.Kind, "error", o.Err, "duration", elapsed)
		c.observer.Failed(s.messageID, o.Err)
	}
	s.state = StateIdle

	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.lastErr = o.Result()
	c.lastOutcome = &o
	c.mu.Unlock()
}

func (s *session) result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return nil
	}
	return s.outcome.Result()
}

// Cancel ends the live session with a Cancelled notification and waits for
// its transport to be released. It is a no-op when idle.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	c.finish(s, Outcome{Kind: OutcomeCancelled}, StateCancelling)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsStreaming reports whether a session is live.
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// LastError returns the error of the most recent terminal outcome, nil if it
// completed or no session has ended yet.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastOutcome returns the most recent terminal outcome.
func (c *Controller) LastOutcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastOutcome == nil {
		return Outcome{}, false
	}
	return *c.lastOutcome, true
}

// State returns the state of the live session, or StateIdle.
func (c *Controller) State() State {
	s, ok := c.Snapshot()
	if !ok {
		return StateIdle
	}
	return s.State
}

// Snapshot returns a copy of the live session.
func (c *Controller) Snapshot() (Session, bool) {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil {
		return Session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{
		MessageID:      s.messageID,
		State:          s.state,
		Content:        s.content,
		StartedAt:      s.startedAt,
		LastActivityAt: s.lastActivityAt,
	}, true
}
