// Package agenthttp is the HTTP transport adapter for the agent service's
// chunked event-stream protocol. It speaks server-sent events with named
// event types (answer deltas, workflow status, interactive prompts) and
// falls back to a plain completion call for non-streaming use. It knows
// nothing about conversation semantics.
package agenthttp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avasile/agentwire/internal/domain"
	"github.com/avasile/agentwire/internal/ports"
)

const (
	defaultMaxRetries = 2
	retryBaseDelay    = time.Second
	retryMaxDelay     = 3 * time.Second
	retryFactor       = 1.5
)

// chunkEvents are the event types whose payload is an answer delta rather
// than an intermediate value.
var chunkEvents = map[string]struct{}{
	"answer":     {},
	"fastAnswer": {},
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxRetries sets the call-setup retry budget. The budget covers
// opening the stream; once bytes flow, failures are terminal.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client calls the agent service over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	appID      string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

var _ ports.TransportClient = (*Client)(nil)

// New creates a transport client for one agent app.
func New(endpoint, apiKey, appID string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" || apiKey == "" || appID == "" {
		return nil, fmt.Errorf("endpoint, api key, and app id are all required")
	}
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		appID:      appID,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StreamTurn drives one streaming turn, reporting everything through cb.
// Exactly one terminal callback is delivered unless ctx is cancelled, in
// which case no further callbacks fire at all.
func (c *Client) StreamTurn(ctx context.Context, history []*domain.Message, opts ports.TurnOptions, cb ports.TurnCallbacks) {
	body, err := json.Marshal(c.buildRequest(history, opts, true))
	if err != nil {
		c.terminalError(ctx, cb, fmt.Errorf("marshal request: %w", err))
		return
	}

	resp, err := c.connect(ctx, body)
	if err != nil {
		c.terminalError(ctx, cb, err)
		return
	}
	defer resp.Body.Close()

	if cb.OnStart != nil {
		cb.OnStart()
	}
	c.readStream(ctx, resp.Body, cb)
}

// Chat is the non-streaming fallback call.
func (c *Client) Chat(ctx context.Context, history []*domain.Message, opts ports.TurnOptions) (string, error) {
	body, err := json.Marshal(c.buildRequest(history, opts, false))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.connect(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrorKindTransport, "read response", err)
	}

	var parsed ChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", domain.WrapError(domain.ErrorKindTransport, "unmarshal response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.NewError(domain.ErrorKindTransport, "response carries no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) buildRequest(history []*domain.Message, opts ports.TurnOptions, stream bool) *ChatRequest {
	msgs := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return &ChatRequest{
		Model:       c.appID,
		ChatID:      opts.SessionID,
		Stream:      stream,
		Detail:      stream,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

// connect opens the call, retrying setup failures with exponential backoff
// up to the configured budget.
func (c *Client) connect(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying agent call",
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * retryFactor)
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = domain.WrapError(domain.ErrorKindTransport, "request failed", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = domain.NewError(domain.ErrorKindTransport,
				fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(respBody)))
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// readStream consumes the SSE body line by line. Named events arrive as an
// "event:" line followed by its "data:" line; bare "data:" lines default
// to answer deltas for compatibility with plain completion streams.
func (c *Client) readStream(ctx context.Context, body io.Reader, cb ports.TurnCallbacks) {
	scanner := bufio.NewScanner(body)
	// Workflow payloads can be large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	eventType := ""
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		currentEvent := eventType
		eventType = ""

		if data == "[DONE]" {
			continue
		}

		if currentEvent == "error" {
			var se streamError
			_ = json.Unmarshal([]byte(data), &se)
			msg := se.Error
			if msg == "" {
				msg = se.Message
			}
			if msg == "" {
				msg = "stream reported an error"
			}
			c.terminalError(ctx, cb, domain.NewError(domain.ErrorKindTransport, msg))
			return
		}

		if _, ok := chunkEvents[currentEvent]; ok || currentEvent == "" {
			if delta, ok := parseDelta([]byte(data)); ok {
				if delta != "" && cb.OnChunk != nil {
					cb.OnChunk(delta)
				}
				continue
			}
			if currentEvent == "" {
				// Unframed non-JSON data lines carry raw text on some
				// server versions.
				if cb.OnChunk != nil && !json.Valid([]byte(data)) {
					cb.OnChunk(data)
				}
				continue
			}
		}

		if cb.OnIntermediate != nil {
			cb.OnIntermediate(currentEvent, json.RawMessage(data))
		}
	}

	if err := scanner.Err(); err != nil {
		c.terminalError(ctx, cb, domain.WrapError(domain.ErrorKindTransport, "stream read error", err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if cb.OnFinish != nil {
		cb.OnFinish()
	}
}

// parseDelta extracts the text delta from a completion chunk. The second
// return reports whether the payload was a chunk at all.
func parseDelta(data []byte) (string, bool) {
	var chunk StreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

// terminalError delivers OnError unless the caller already cancelled, in
// which case the engine has moved on and nothing may fire.
func (c *Client) terminalError(ctx context.Context, cb ports.TurnCallbacks, err error) {
	if ctx.Err() != nil {
		return
	}
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
