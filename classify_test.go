package chatstream_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/pratikoai/chatstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usageLimitBody = `{
	"detail": {
		"type": "USAGE_LIMIT_EXCEEDED",
		"message": "Daily limit reached",
		"limit_info": {
			"window_type": "daily",
			"cost_consumed": 5.25,
			"limit": 5,
			"reset_at": "2025-01-02T00:00:00Z",
			"can_bypass": true
		}
	}
}`

func TestClassifyHTTP(t *testing.T) {
	t.Parallel()

	t.Run("usage limit envelope", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusTooManyRequests, []byte(usageLimitBody))
		assert.Equal(t, chatstream.ErrorUsageLimitExceeded, e.Kind)
		assert.Equal(t, http.StatusTooManyRequests, e.Status)
		assert.Equal(t, "Daily limit reached", e.Message)
		require.NotNil(t, e.UsageLimit)
		assert.Equal(t, "daily", e.UsageLimit.WindowType)
		assert.InDelta(t, 5.25, e.UsageLimit.CostConsumed, 1e-9)
		assert.InDelta(t, 5.0, e.UsageLimit.Limit, 1e-9)
		assert.True(t, e.UsageLimit.CanBypass)
		assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), e.UsageLimit.ResetAt.UTC())
	})

	t.Run("usage limit envelope at top level", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusPaymentRequired, []byte(`{"type":"USAGE_LIMIT_EXCEEDED","message":"over"}`))
		assert.Equal(t, chatstream.ErrorUsageLimitExceeded, e.Kind)
		assert.Equal(t, "over", e.Message)
	})

	t.Run("unauthorized by status", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusUnauthorized, nil)
		assert.Equal(t, chatstream.ErrorUnauthorized, e.Kind)
		assert.Equal(t, "Unauthorized", e.Message)
	})

	t.Run("forbidden is unauthorized", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusForbidden, []byte(`{"detail":"Not allowed"}`))
		assert.Equal(t, chatstream.ErrorUnauthorized, e.Kind)
		assert.Equal(t, "Not allowed", e.Message)
	})

	t.Run("opaque body is kept as text", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusBadGateway, []byte("  upstream down \n"))
		assert.Equal(t, chatstream.ErrorUnknown, e.Kind)
		assert.Equal(t, "upstream down", e.Message)
	})

	t.Run("string detail becomes message", func(t *testing.T) {
		t.Parallel()
		e := chatstream.ClassifyHTTP(http.StatusInternalServerError, []byte(`{"detail":"Server exploded"}`))
		assert.Equal(t, chatstream.ErrorUnknown, e.Kind)
		assert.Equal(t, "Server exploded", e.Message)
	})

	t.Run("malformed reset time is zero", func(t *testing.T) {
		t.Parallel()
		body := `{"type":"USAGE_LIMIT_EXCEEDED","limit_info":{"reset_at":"tomorrow"}}`
		e := chatstream.ClassifyHTTP(http.StatusTooManyRequests, []byte(body))
		require.NotNil(t, e.UsageLimit)
		assert.True(t, e.UsageLimit.ResetAt.IsZero())
	})
}

func TestClassifyPayload(t *testing.T) {
	t.Parallel()

	t.Run("content is not an error", func(t *testing.T) {
		t.Parallel()
		_, ok := chatstream.ClassifyPayload([]byte(`{"content":"hi"}`))
		assert.False(t, ok)
	})

	t.Run("non-object is not an error", func(t *testing.T) {
		t.Parallel()
		_, ok := chatstream.ClassifyPayload([]byte(`"oops"`))
		assert.False(t, ok)
	})

	t.Run("usage limit", func(t *testing.T) {
		t.Parallel()
		e, ok := chatstream.ClassifyPayload([]byte(usageLimitBody))
		require.True(t, ok)
		assert.Equal(t, chatstream.ErrorUsageLimitExceeded, e.Kind)
		assert.Zero(t, e.Status)
	})

	t.Run("message with error field", func(t *testing.T) {
		t.Parallel()
		e, ok := chatstream.ClassifyPayload([]byte(`{"message":"rate limited","error":true}`))
		require.True(t, ok)
		assert.Equal(t, chatstream.ErrorUnknown, e.Kind)
		assert.Equal(t, "rate limited", e.Message)
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestClassifyError(t *testing.T) {
	t.Parallel()

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, chatstream.ClassifyError(nil))
	})

	t.Run("classified error passes through", func(t *testing.T) {
		t.Parallel()
		orig := &chatstream.Error{Kind: chatstream.ErrorUnauthorized, Status: 401}
		got := chatstream.ClassifyError(fmt.Errorf("open: %w", orig))
		assert.Same(t, orig, got)
	})

	connectionLost := []struct {
		name string
		err  error
	}{
		{"sentinel", fmt.Errorf("sse: %w", chatstream.ErrConnectionLost)},
		{"unexpected eof", io.ErrUnexpectedEOF},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED)},
		{"connection reset", syscall.ECONNRESET},
		{"broken pipe", syscall.EPIPE},
		{"net error", timeoutError{}},
	}
	for _, tt := range connectionLost {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := chatstream.ClassifyError(tt.err)
			assert.Equal(t, chatstream.ErrorConnectionLost, e.Kind)
			assert.ErrorIs(t, e, tt.err)
		})
	}

	t.Run("anything else is unknown", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("weird")
		e := chatstream.ClassifyError(cause)
		assert.Equal(t, chatstream.ErrorUnknown, e.Kind)
		assert.Equal(t, "weird", e.Message)
		assert.ErrorIs(t, e, cause)
	})
}

func TestError_Error(t *testing.T) {
	t.Parallel()
	e := &chatstream.Error{Kind: chatstream.ErrorUsageLimitExceeded, Status: 429, Message: "over"}
	assert.Equal(t, "usage_limit_exceeded (HTTP 429): over", e.Error())

	e = &chatstream.Error{Kind: chatstream.ErrorConnectionLost, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "connection_lost: unexpected EOF", e.Error())

	assert.Equal(t, "timeout", (&chatstream.Error{Kind: chatstream.ErrorTimeout}).Error())
}

func TestIsUsageLimit(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("start: %w", chatstream.ClassifyHTTP(429, []byte(usageLimitBody)))
	ul, ok := chatstream.IsUsageLimit(err)
	require.True(t, ok)
	assert.True(t, ul.CanBypass)

	_, ok = chatstream.IsUsageLimit(&chatstream.Error{Kind: chatstream.ErrorTimeout})
	assert.False(t, ok)
	_, ok = chatstream.IsUsageLimit(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, chatstream.ErrorTimeout, chatstream.KindOf(&chatstream.Error{Kind: chatstream.ErrorTimeout}))
	assert.Equal(t, chatstream.ErrorUnknown, chatstream.KindOf(errors.New("plain")))
	assert.Equal(t, chatstream.ErrorUnknown, chatstream.KindOf(nil))
}
