package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatbox/internal/model/chat"
)

// PostMessageMutation is the fixed document sent for every user message.
const PostMessageMutation = `mutation PostMessage($content: String!) {
  postMessage(content: $content) {
    id
    role
    content
  }
}`

// maxBodySize caps how much of a response body is read. Larger 2xx bodies
// fail with ErrResponseTooLarge.
const maxBodySize = 4 << 20

// Client posts chat messages to a GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client bound to endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type responseBody struct {
	Data *struct {
		PostMessage *replyPayload `json:"postMessage"`
	} `json:"data"`
	// Errors stays nil when the key is absent or null; an explicit [] decodes
	// to an empty non-nil slice and still counts as an error payload.
	Errors []Error `json:"errors"`
}

// replyPayload accepts any JSON value for id; only role and content drive the thread.
type replyPayload struct {
	ID      json.RawMessage `json:"id"`
	Role    string          `json:"role"`
	Content string          `json:"content"`
}

func (p replyPayload) reply() chat.Reply {
	id := string(p.ID)
	var s string
	if err := json.Unmarshal(p.ID, &s); err == nil {
		id = s
	} else if id == "null" {
		id = ""
	}
	return chat.Reply{ID: id, Role: p.Role, Content: p.Content}
}

// decodeResponse parses a complete 2xx body. Trailing data after the JSON
// value and a top-level value that is not an object are transport failures.
func decodeResponse(raw []byte) (*responseBody, error) {
	var body *responseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: decode response: body is null", ErrTransport)
	}
	return body, nil
}

// PostMessage sends content through the postMessage mutation and returns the
// decoded reply. Failures are reported as *StatusError, *ApplicationError,
// ErrMalformedReply, ErrResponseTooLarge or an error wrapping ErrTransport.
func (c *Client) PostMessage(ctx context.Context, content string) (chat.Reply, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(requestBody{
		Query:     PostMessageMutation,
		Variables: map[string]any{"content": content},
	})
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("graphql postMessage completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return chat.Reply{}, &StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if len(raw) > maxBodySize {
		return chat.Reply{}, ErrResponseTooLarge
	}

	body, err := decodeResponse(raw)
	if err != nil {
		return chat.Reply{}, err
	}

	if body.Errors != nil {
		return chat.Reply{}, &ApplicationError{Errors: body.Errors}
	}

	if body.Data == nil || body.Data.PostMessage == nil {
		return chat.Reply{}, ErrMalformedReply
	}

	return body.Data.PostMessage.reply(), nil
}
