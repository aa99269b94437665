package chatstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// ErrorKind tags a terminal failure so callers can branch without re-parsing.
type ErrorKind string

const (
	ErrorUnknown            ErrorKind = "unknown"
	ErrorUsageLimitExceeded ErrorKind = "usage_limit_exceeded"
	ErrorUnauthorized       ErrorKind = "unauthorized"
	ErrorConnectionLost     ErrorKind = "connection_lost"
	ErrorTimeout            ErrorKind = "timeout"
)

// usageLimitType is the envelope discriminant for a usage-limit rejection.
const usageLimitType = "USAGE_LIMIT_EXCEEDED"

// Error is a classified terminal failure.
type Error struct {
	Kind       ErrorKind
	Status     int    // HTTP status, 0 when not HTTP-originated
	Message    string // human-readable, opaque text when no envelope was found
	UsageLimit *UsageLimit
	Err        error // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UsageLimit carries the provider details of a usage-limit rejection.
type UsageLimit struct {
	WindowType   string
	CostConsumed float64
	Limit        float64
	ResetAt      time.Time // zero when absent or unparseable
	CanBypass    bool
	Message      string
}

// IsUsageLimit reports whether err is a classified usage-limit failure and
// returns its details.
func IsUsageLimit(err error) (*UsageLimit, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrorUsageLimitExceeded {
		return nil, false
	}
	if e.UsageLimit == nil {
		return &UsageLimit{}, true
	}
	return e.UsageLimit, true
}

// KindOf returns the ErrorKind of err, or ErrorUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorUnknown
}

// errorEnvelope is the structured error body. The same shape may appear at the
// top level or nested under "detail" or "error".
type errorEnvelope struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Detail    json.RawMessage `json:"detail"`
	Error     json.RawMessage `json:"error"`
	LimitInfo *limitInfoDTO   `json:"limit_info"`
}

type limitInfoDTO struct {
	WindowType   string  `json:"window_type"`
	CostConsumed float64 `json:"cost_consumed"`
	Limit        float64 `json:"limit"`
	ResetAt      string  `json:"reset_at"`
	CanBypass    bool    `json:"can_bypass"`
	Message      string  `json:"message"`
}

// decodeEnvelope finds the innermost envelope carrying a discriminant or a
// message. It returns false for anything that is not a JSON object.
func decodeEnvelope(data []byte) (errorEnvelope, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return errorEnvelope{}, false
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errorEnvelope{}, false
	}
	if env.Type == "" || strings.EqualFold(env.Type, "error") {
		for _, nested := range []json.RawMessage{env.Detail, env.Error} {
			if inner, ok := decodeEnvelope(nested); ok && (inner.Type != "" || inner.Message != "") {
				return inner, true
			}
			if msg, ok := jsonString(nested); ok && env.Message == "" {
				env.Message = msg
			}
		}
	}
	return env, true
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (env errorEnvelope) usageLimit() *UsageLimit {
	ul := &UsageLimit{Message: env.Message}
	if li := env.LimitInfo; li != nil {
		ul.WindowType = li.WindowType
		ul.CostConsumed = li.CostConsumed
		ul.Limit = li.Limit
		ul.CanBypass = li.CanBypass
		if li.Message != "" && ul.Message == "" {
			ul.Message = li.Message
		}
		if t, err := time.Parse(time.RFC3339, li.ResetAt); err == nil {
			ul.ResetAt = t
		}
	}
	return ul
}

func kindForType(typ string) (ErrorKind, bool) {
	switch strings.ToUpper(typ) {
	case usageLimitType:
		return ErrorUsageLimitExceeded, true
	case "UNAUTHORIZED", "AUTHENTICATION_ERROR", "PERMISSION_ERROR":
		return ErrorUnauthorized, true
	default:
		return "", false
	}
}

// ClassifyHTTP classifies a non-2xx response. A structured envelope wins;
// otherwise the status decides and the body is kept as opaque text.
func ClassifyHTTP(status int, body []byte) *Error {
	e := &Error{Kind: ErrorUnknown, Status: status}
	env, ok := decodeEnvelope(body)
	if ok {
		e.Message = env.Message
		if kind, known := kindForType(env.Type); known {
			e.Kind = kind
			if kind == ErrorUsageLimitExceeded {
				e.UsageLimit = env.usageLimit()
			}
			return e
		}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.Kind = ErrorUnauthorized
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// ClassifyPayload classifies an error envelope delivered inside the stream.
// It returns false when data does not look like an error.
func ClassifyPayload(data []byte) (*Error, bool) {
	env, ok := decodeEnvelope(data)
	if !ok {
		return nil, false
	}
	if kind, known := kindForType(env.Type); known {
		e := &Error{Kind: kind, Message: env.Message}
		if kind == ErrorUsageLimitExceeded {
			e.UsageLimit = env.usageLimit()
		}
		return e, true
	}
	if strings.EqualFold(env.Type, "error") || (env.Message != "" && (len(env.Error) > 0 || len(env.Detail) > 0)) {
		return &Error{Kind: ErrorUnknown, Message: env.Message}, true
	}
	return nil, false
}

// ClassifyError classifies a transport-level failure.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if isConnectionLoss(err) {
		return &Error{Kind: ErrorConnectionLost, Message: err.Error(), Err: err}
	}
	return &Error{Kind: ErrorUnknown, Message: err.Error(), Err: err}
}

func isConnectionLoss(err error) bool {
	if errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
