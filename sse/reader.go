// Package sse splits a Server-Sent Events byte stream into raw records.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/pratikoai/chatstream"
)

// DefaultMaxRecordSize bounds how much of a single record is buffered.
const DefaultMaxRecordSize = 1 << 20

// Interface compliance check.
var _ chatstream.FrameStream = (*Reader)(nil)

// Reader implements [chatstream.FrameStream] over an SSE response body.
// Each Next call returns one record: the lines between two blank lines,
// joined with "\n" and without their terminators. Records are only returned
// once their terminating blank line has arrived.
type Reader struct {
	body          io.ReadCloser
	scanner       *bufio.Scanner
	maxRecordSize int
	err           error // terminal error, if any
	closed        atomic.Bool
}

// Option configures a [Reader].
type Option func(*Reader)

// WithMaxRecordSize sets the largest record, in bytes, the Reader buffers.
func WithMaxRecordSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRecordSize = n
		}
	}
}

// NewReader returns a Reader consuming body.
func NewReader(body io.ReadCloser, opts ...Option) *Reader {
	r := &Reader{body: body, maxRecordSize: DefaultMaxRecordSize}
	for _, o := range opts {
		o(r)
	}
	r.scanner = bufio.NewScanner(body)
	r.scanner.Buffer(make([]byte, 0, min(4096, r.maxRecordSize)), r.maxRecordSize)
	r.scanner.Split(scanLines)
	return r
}

// Next returns the next raw record. When the body ends, cleanly or inside a
// record, it returns an error wrapping [chatstream.ErrConnectionLost]; the
// same error is returned by every later call. After Close it returns
// [chatstream.ErrStreamClosed].
func (r *Reader) Next() (string, error) {
	if r.closed.Load() {
		return "", chatstream.ErrStreamClosed
	}
	if r.err != nil {
		return "", r.err
	}

	var lines []string
	size := 0
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			// Stray blank line between records.
			continue
		}
		size += len(line) + 1
		if size > r.maxRecordSize {
			r.err = fmt.Errorf("sse: record exceeds %d bytes", r.maxRecordSize)
			return "", r.err
		}
		lines = append(lines, line)
	}

	if r.closed.Load() {
		return "", chatstream.ErrStreamClosed
	}
	switch err := r.scanner.Err(); {
	case err == nil:
		r.err = fmt.Errorf("sse: %w: unexpected end of stream", chatstream.ErrConnectionLost)
	case errors.Is(err, bufio.ErrTooLong):
		r.err = fmt.Errorf("sse: record exceeds %d bytes: %w", r.maxRecordSize, err)
	default:
		r.err = fmt.Errorf("sse: %w: %w", chatstream.ErrConnectionLost, err)
	}
	return "", r.err
}

// Close closes the underlying body. It unblocks a pending Next.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.body.Close()
}

// scanLines is a bufio.SplitFunc accepting "\n", "\r\n" and bare "\r" line
// endings.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A trailing "\r" may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
