// Package http implements chatstream.Transport for the chatbot streaming
// endpoint over net/http.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pratikoai/chatstream"
	"github.com/pratikoai/chatstream/sse"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultPath    = "/api/v1/chatbot/chat/stream"

	// maxErrorBody bounds how much of a non-2xx body is read for classification.
	maxErrorBody = 64 << 10
)

// Interface compliance check.
var _ chatstream.Transport = (*Client)(nil)

// Client implements [chatstream.Transport] by POSTing the conversation and
// returning the SSE response body as an [sse.Reader].
type Client struct {
	baseURL       string
	path          string
	token         string
	bypass        bool
	maxRecordSize int
	httpClient    *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithPath overrides the streaming endpoint path.
func WithPath(path string) Option {
	return func(c *Client) { c.path = path }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom HTTP client. It must not set a total request
// timeout, which would cut long streams; liveness is the Controller's job.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBypassUsageLimit asks the backend to serve every request even when the
// caller's usage window is exhausted. A single request can opt in through
// chatstream.Request.BypassUsageLimit instead.
func WithBypassUsageLimit(bypass bool) Option {
	return func(c *Client) { c.bypass = bypass }
}

// WithMaxRecordSize sets the largest SSE record the stream buffers.
func WithMaxRecordSize(n int) Option {
	return func(c *Client) { c.maxRecordSize = n }
}

// New creates a [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		path:          defaultPath,
		maxRecordSize: sse.DefaultMaxRecordSize,
		httpClient:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// With returns a copy of c with opts applied.
func (c *Client) With(opts ...Option) *Client {
	cp := *c
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// Open sends req and returns the response stream. Non-2xx responses are
// returned as a classified *chatstream.Error; network failures are returned
// wrapped for chatstream.ClassifyError.
func (c *Client) Open(ctx context.Context, req chatstream.Request) (chatstream.FrameStream, error) {
	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return sse.NewReader(resp.Body, sse.WithMaxRecordSize(c.maxRecordSize)), nil
}

type apiRequest struct {
	MessageID        string       `json:"message_id"`
	Messages         []apiMessage `json:"messages"`
	BypassUsageLimit bool         `json:"bypass_usage_limit,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) buildRequestBody(req chatstream.Request) ([]byte, error) {
	apiReq := apiRequest{
		MessageID:        req.MessageID,
		Messages:         make([]apiMessage, len(req.Messages)),
		BypassUsageLimit: c.bypass || req.BypassUsageLimit,
	}
	for i, m := range req.Messages {
		apiReq.Messages[i] = apiMessage{Role: string(m.Role), Content: m.Content}
	}
	return json.Marshal(apiReq)
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &chatstream.Error{
			Kind:    chatstream.ErrorUnknown,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("failed to read body: %v", err),
			Err:     err,
		}
	}
	return chatstream.ClassifyHTTP(resp.StatusCode, body)
}
