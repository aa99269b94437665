// Package prometheus records streaming session metrics with the Prometheus
// client library.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pratikoai/chatstream"
)

const (
	namespace = "chatstream"
	subsystem = "session"
)

// Interface compliance checks.
var (
	_ chatstream.Observer      = (*Observer)(nil)
	_ chatstream.StartObserver = (*Observer)(nil)
)

// Observer is a [chatstream.Observer] decorator that counts outcomes and
// measures session timing before forwarding every notification to next.
type Observer struct {
	next  chatstream.Observer
	clock chatstream.Clock

	outcomes     *prometheus.CounterVec
	updates      prometheus.Counter
	firstContent prometheus.Histogram
	duration     *prometheus.HistogramVec
	active       prometheus.Gauge

	mu       sync.Mutex
	sessions map[string]*sessionTiming
}

type sessionTiming struct {
	startedAt  time.Time
	hasContent bool
}

// Option configures an [Observer].
type Option func(*Observer)

// WithClock sets the clock used to measure durations.
func WithClock(clock chatstream.Clock) Option {
	return func(o *Observer) { o.clock = clock }
}

// New registers the session metrics with reg and returns an Observer that
// forwards to next. next may be nil.
func New(reg prometheus.Registerer, next chatstream.Observer, opts ...Option) *Observer {
	if next == nil {
		next = chatstream.Observers(nil)
	}
	factory := promauto.With(reg)
	o := &Observer{
		next:     next,
		clock:    chatstream.SystemClock,
		sessions: make(map[string]*sessionTiming),

		// outcomes counts terminal notifications.
		// Labels: outcome (completed, cancelled, timed_out, failed), error_kind
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outcomes_total",
			Help:      "Total streaming sessions by terminal outcome",
		}, []string{"outcome", "error_kind"}),

		updates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "content_updates_total",
			Help:      "Total content updates delivered to the UI",
		}),

		firstContent: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "time_to_first_content_seconds",
			Help:      "Time from session start to the first content update",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		// duration measures session lifetime from start to terminal outcome.
		// Labels: outcome
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Streaming session duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),

		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active",
			Help:      "Streaming sessions currently in flight",
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Started marks the session start and forwards it.
func (o *Observer) Started(messageID string) {
	o.mu.Lock()
	if _, ok := o.sessions[messageID]; !ok {
		o.active.Inc()
	}
	o.sessions[messageID] = &sessionTiming{startedAt: o.clock.Now()}
	o.mu.Unlock()

	if so, ok := o.next.(chatstream.StartObserver); ok {
		so.Started(messageID)
	}
}

func (o *Observer) ContentUpdated(messageID, content string) {
	o.updates.Inc()
	o.mu.Lock()
	if st, ok := o.sessions[messageID]; ok && !st.hasContent {
		st.hasContent = true
		o.firstContent.Observe(o.clock.Now().Sub(st.startedAt).Seconds())
	}
	o.mu.Unlock()
	o.next.ContentUpdated(messageID, content)
}

func (o *Observer) Completed(messageID, content string) {
	o.finish(messageID, chatstream.OutcomeCompleted, "")
	o.next.Completed(messageID, content)
}

func (o *Observer) Cancelled(messageID, content string) {
	o.finish(messageID, chatstream.OutcomeCancelled, "")
	o.next.Cancelled(messageID, content)
}

func (o *Observer) Failed(messageID string, err *chatstream.Error) {
	outcome, kind := chatstream.OutcomeFailed, chatstream.ErrorUnknown
	if err != nil {
		kind = err.Kind
	}
	if kind == chatstream.ErrorTimeout {
		outcome = chatstream.OutcomeTimedOut
	}
	o.finish(messageID, outcome, kind)
	o.next.Failed(messageID, err)
}

func (o *Observer) finish(messageID string, outcome chatstream.OutcomeKind, kind chatstream.ErrorKind) {
	o.outcomes.WithLabelValues(outcome.String(), string(kind)).Inc()

	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[messageID]
	if !ok {
		return
	}
	delete(o.sessions, messageID)
	o.active.Dec()
	o.duration.WithLabelValues(outcome.String()).Observe(o.clock.Now().Sub(st.startedAt).Seconds())
}
