package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoPayload is returned when an event stream carries no data frame.
var ErrNoPayload = errors.New("event stream contained no data payload")

// Error is an unsuccessful HTTP response.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// StatusCode extracts the HTTP status from err if it wraps an *Error.
func StatusCode(err error) (int, bool) {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.StatusCode, true
	}
	return 0, false
}

// Reply is one logical answer to a request.
type Reply struct {
	StatusCode int
	Header     http.Header
	// Raw is nil for an empty (notification) reply.
	Raw json.RawMessage
}

// Empty reports whether the server answered without a body.
func (r *Reply) Empty() bool {
	return r == nil || len(r.Raw) == 0
}

// Decode unmarshals the reply payload into v.
func (r *Reply) Decode(v any) error {
	if r.Empty() {
		return fmt.Errorf("cannot decode empty reply")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}

// Client sends JSON requests.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every single request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a transport client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues one request. body is marshalled as JSON when non-nil.
func (c *Client) Send(ctx context.Context, method, url string, body any, headers http.Header) (*Reply, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	reply := &Reply{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return reply, nil
	}

	if isEventStream(resp.Header.Get("Content-Type"), trimmed) {
		payload, err := selectEventPayload(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event stream from %s: %w", url, err)
		}
		reply.Raw = payload
		return reply, nil
	}

	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("response from %s is not valid JSON", url)
	}
	reply.Raw = json.RawMessage(trimmed)
	return reply, nil
}

func isEventStream(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/event-stream") {
		return true
	}
	return bytes.HasPrefix(body, []byte("event:")) || bytes.HasPrefix(body, []byte("data:"))
}
