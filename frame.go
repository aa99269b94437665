package chatstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FrameKind classifies an interpreted SSE record.
type FrameKind int

const (
	FrameKeepalive FrameKind = iota // Comment, empty or unknown record; activity only.
	FrameDelta                      // Incremental content.
	FrameDone                       // Completion signal.
	FrameError                      // Structured error delivered in-stream.
)

func (k FrameKind) String() string {
	switch k {
	case FrameKeepalive:
		return "keepalive"
	case FrameDelta:
		return "delta"
	case FrameDone:
		return "done"
	case FrameError:
		return "error"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Frame is a transient unit produced by ParseFrame and consumed immediately
// by the Controller. For FrameDone, Content is informational only and is
// never applied as a delta.
type Frame struct {
	Kind    FrameKind
	Content string
	Err     *Error
}

// doneSentinel is the OpenAI-style terminator some backends send as raw data.
const doneSentinel = "[DONE]"

// framePayload is the JSON data payload of a content frame.
type framePayload struct {
	Content *string         `json:"content"`
	Done    bool            `json:"done"`
	Type    string          `json:"type"`
	Error   json.RawMessage `json:"error"`
}

// ParseFrame interprets one raw SSE record. Comment-only records and records
// without usable fields are keepalives. A payload marked done is a completion
// and never also a delta. Undecodable JSON returns an error wrapping
// ErrMalformedFrame.
func ParseFrame(raw string) (Frame, error) {
	eventType, data, hasData := splitRecord(raw)
	if !hasData {
		return Frame{Kind: FrameKeepalive}, nil
	}

	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return Frame{Kind: FrameKeepalive}, nil
	}
	if trimmed == doneSentinel {
		return Frame{Kind: FrameDone}, nil
	}

	if eventType == "error" {
		if e, ok := ClassifyPayload([]byte(trimmed)); ok {
			return Frame{Kind: FrameError, Err: e}, nil
		}
		return Frame{Kind: FrameError, Err: &Error{Kind: ErrorUnknown, Message: trimmed}}, nil
	}

	var p framePayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if p.Done {
		f := Frame{Kind: FrameDone}
		if p.Content != nil {
			f.Content = *p.Content
		}
		return f, nil
	}

	if p.Type != "" || len(p.Error) > 0 {
		if e, ok := ClassifyPayload([]byte(trimmed)); ok {
			return Frame{Kind: FrameError, Err: e}, nil
		}
	}

	if p.Content != nil {
		return Frame{Kind: FrameDelta, Content: *p.Content}, nil
	}

	// Status and other unknown frames carry no content.
	return Frame{Kind: FrameKeepalive}, nil
}

// splitRecord extracts the event type and the joined data lines from a raw
// record. hasData is false for comment-only records.
func splitRecord(raw string) (eventType, data string, hasData bool) {
	var dataBuf strings.Builder
	for line := range strings.Lines(raw) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = value
		case "data":
			if hasData {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(value)
			hasData = true
		}
		// id, retry and unknown fields are ignored.
	}
	return eventType, dataBuf.String(), hasData
}
