// Package probe polls the agent service's health endpoint and drives a
// session's recovery out of offline mode. The probe is the only thing
// allowed to do so: the engine itself never guesses that connectivity is
// back. Polls are idempotent and side-effect-free.
package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultInterval = 30 * time.Second

// Target is the session surface the probe drives.
type Target interface {
	IsOffline() bool
	Online()
}

// Option configures a Probe.
type Option func(*Probe)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(p *Probe) {
		p.interval = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Probe) {
		p.httpClient = httpClient
	}
}

// WithLogger sets the probe's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

// Probe periodically checks connectivity to the agent service.
type Probe struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a probe against the service's health URL.
func New(url string, opts ...Option) *Probe {
	p := &Probe{
		url:        url,
		interval:   defaultInterval,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled, moving offline targets back online
// when the service answers.
func (p *Probe) Run(ctx context.Context, target Target) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !target.IsOffline() {
				continue
			}
			if p.Healthy(ctx) {
				p.logger.Info("connectivity restored, leaving offline mode")
				target.Online()
			}
		}
	}
}

// Healthy reports whether the service currently answers.
func (p *Probe) Healthy(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
