// Package feedback forwards message feedback to the agent service. The
// sink is fire-and-forget: the engine never waits on or reacts to it.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avasile/agentwire/internal/ports"
)

// SinkOption configures the sink.
type SinkOption func(*Sink)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) SinkOption {
	return func(s *Sink) {
		s.httpClient = httpClient
	}
}

// Sink posts feedback to the service's feedback endpoint.
type Sink struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.FeedbackSink = (*Sink)(nil)

// NewSink creates an HTTP feedback sink.
func NewSink(endpoint, apiKey string, opts ...SinkOption) (*Sink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("feedback endpoint required")
	}
	s := &Sink{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit posts one feedback record.
func (s *Sink) Submit(ctx context.Context, fb *ports.Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.endpoint+"/api/message-feedback", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feedback rejected (status %d)", resp.StatusCode)
	}
	return nil
}
