package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pratikoai/chatstream"
	bt "github.com/pratikoai/chatstream/bubbletea"
)

const (
	retryInitialInterval = time.Second
	retryMaxInterval     = 10 * time.Second
	retryMaxElapsedTime  = time.Minute
)

// retryStreamer restarts sessions that end in ConnectionLost. Every other
// outcome, including cancellation, is returned as is.
type retryStreamer struct {
	next    bt.Streamer
	retries uint64
	logger  *slog.Logger

	// newBackOff is swapped in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

func newRetryStreamer(next bt.Streamer, retries int, logger *slog.Logger) *retryStreamer {
	return &retryStreamer{
		next:       next,
		retries:    uint64(retries),
		logger:     logger,
		newBackOff: newRetryBackoff,
	}
}

// newRetryBackoff creates an exponential backoff with jitter.
func newRetryBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return b
}

func (r *retryStreamer) Start(ctx context.Context, messageID string, history []chatstream.Message, opts ...chatstream.StartOption) error {
	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.retries), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := r.next.Start(ctx, messageID, history, opts...)
		if err == nil || chatstream.KindOf(err) == chatstream.ErrorConnectionLost {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying lost connection",
			"message_id", messageID,
			"attempt", attempt,
			"wait", wait,
			"error", err)
	}
	return backoff.RetryNotify(op, b, notify)
}
