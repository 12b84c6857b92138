// Package proxy is the streaming chat proxy: a small HTTP surface that
// forwards browser-originated agent calls to the remote service, streaming
// event-stream bodies through unbuffered and answering with a degraded
// fallback body when the upstream cannot be reached. It also exposes the
// health endpoint the connectivity probe polls.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const fallbackContent = "Sorry, there was a problem reaching the server. Check your network connection or API configuration and try again."

// forwardRequest is the proxy's POST body: the upstream call to make on
// the caller's behalf.
type forwardRequest struct {
	TargetURL string            `json:"targetUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      json.RawMessage   `json:"body"`
}

// fallbackResponse is returned with HTTP 200 on upstream failure so thin
// clients can always parse one shape.
type fallbackResponse struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Fallback bool   `json:"fallback"`
	Data     struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"data"`
}

// Option configures the server.
type Option func(*Server)

// WithUpstreamTimeout bounds each forwarded call.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.upstreamTimeout = d
	}
}

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Server) {
		s.httpClient = httpClient
	}
}

// Server is the proxy HTTP server.
type Server struct {
	Router          *chi.Mux
	port            int
	logger          *slog.Logger
	httpClient      *http.Client
	upstreamTimeout time.Duration
}

// New builds the proxy with the usual middleware stack: request ids,
// structured logging, panic recovery, and OpenTelemetry HTTP
// instrumentation.
func New(port int, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:            port,
		logger:          logger,
		httpClient:      &http.Client{},
		upstreamTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "agentwire-proxy")
	})

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/chat-proxy", s.handleForwardGet)
	r.Post("/api/chat-proxy", s.handleForwardPost)

	s.Router = r
	return s
}

// Start runs the server until the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting chat proxy", slog.Int("port", s.port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleForwardGet(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("targetUrl")
	if !validTarget(target) {
		s.writeFallback(w, "missing or invalid targetUrl parameter")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		s.writeFallback(w, err.Error())
		return
	}
	copyHeaders(req, r.Header)
	s.forward(w, req)
}

func (s *Server) handleForwardPost(w http.ResponseWriter, r *http.Request) {
	var fwd forwardRequest
	if err := json.NewDecoder(r.Body).Decode(&fwd); err != nil {
		s.writeFallback(w, "invalid request body")
		return
	}
	if !validTarget(fwd.TargetURL) {
		s.writeFallback(w, "missing or invalid targetUrl")
		return
	}
	method := fwd.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(r.Context(), method, fwd.TargetURL,
		bytes.NewReader(fwd.Body))
	if err != nil {
		s.writeFallback(w, err.Error())
		return
	}
	for k, v := range fwd.Headers {
		req.Header.Set(k, v)
	}
	s.forward(w, req)
}

// forward executes the upstream call and streams the response through,
// flushing after every read so event streams arrive chunk by chunk.
func (s *Server) forward(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), s.upstreamTimeout)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("upstream call failed",
			slog.String("target", req.URL.String()),
			slog.String("error", err.Error()))
		s.writeFallback(w, "upstream unreachable")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				s.logger.Warn("upstream stream ended abnormally",
					slog.String("error", readErr.Error()))
			}
			return
		}
	}
}

// writeFallback answers with HTTP 200 and a canned degraded body.
func (s *Server) writeFallback(w http.ResponseWriter, message string) {
	var body fallbackResponse
	body.Status = http.StatusBadGateway
	body.Message = message
	body.Fallback = true
	body.Data.Choices = make([]struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	body.Data.Choices[0].Message.Content = fallbackContent

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func validTarget(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func copyHeaders(req *http.Request, src http.Header) {
	for k, vals := range src {
		if k == "Host" {
			continue
		}
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}
