package agenthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/avasile/agentwire/internal/domain"
	"github.com/avasile/agentwire/internal/ports"
)

// recorder captures the callback sequence a stream produced.
type recorder struct {
	mu            sync.Mutex
	started       bool
	chunks        []string
	intermediates []string
	finished      bool
	err           error
}

func (r *recorder) callbacks() ports.TurnCallbacks {
	return ports.TurnCallbacks{
		OnStart: func() {
			r.mu.Lock()
			r.started = true
			r.mu.Unlock()
		},
		OnChunk: func(text string) {
			r.mu.Lock()
			r.chunks = append(r.chunks, text)
			r.mu.Unlock()
		},
		OnIntermediate: func(eventType string, payload json.RawMessage) {
			r.mu.Lock()
			r.intermediates = append(r.intermediates, eventType)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		},
		OnFinish: func() {
			r.mu.Lock()
			r.finished = true
			r.mu.Unlock()
		},
	}
}

func streamHandler(t *testing.T, lines []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
		}
	}
}

func history() []*domain.Message {
	return []*domain.Message{{ID: "u1", Role: domain.RoleUser, Content: "hello"}}
}

func TestStreamTurnDeliversChunksAndEvents(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		`event: answer`,
		`data: {"choices":[{"delta":{"content":"Hi"}}]}`,
		``,
		`event: flowNodeStatus`,
		`data: {"nodeId":"n1","status":"running"}`,
		``,
		`event: answer`,
		`data: {"choices":[{"delta":{"content":" there"}}]}`,
		``,
		`data: [DONE]`,
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.StreamTurn(context.Background(), history(), ports.TurnOptions{SessionID: "s1"}, rec.callbacks())

	if !rec.started {
		t.Error("OnStart not delivered")
	}
	if len(rec.chunks) != 2 || rec.chunks[0] != "Hi" || rec.chunks[1] != " there" {
		t.Fatalf("unexpected chunks: %v", rec.chunks)
	}
	if len(rec.intermediates) != 1 || rec.intermediates[0] != "flowNodeStatus" {
		t.Fatalf("unexpected intermediates: %v", rec.intermediates)
	}
	if !rec.finished {
		t.Error("OnFinish not delivered")
	}
	if rec.err != nil {
		t.Errorf("unexpected error: %v", rec.err)
	}
}

func TestStreamTurnBareDataLinesAreDeltas(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		`data: {"choices":[{"delta":{"content":"plain"}}]}`,
		`data: [DONE]`,
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.StreamTurn(context.Background(), history(), ports.TurnOptions{}, rec.callbacks())

	if len(rec.chunks) != 1 || rec.chunks[0] != "plain" {
		t.Fatalf("unexpected chunks: %v", rec.chunks)
	}
	if !rec.finished {
		t.Error("OnFinish not delivered")
	}
}

func TestStreamTurnErrorEventIsTerminal(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		`event: answer`,
		`data: {"choices":[{"delta":{"content":"partial"}}]}`,
		`event: error`,
		`data: {"message":"workflow exploded"}`,
		`event: answer`,
		`data: {"choices":[{"delta":{"content":"never seen"}}]}`,
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.StreamTurn(context.Background(), history(), ports.TurnOptions{}, rec.callbacks())

	if rec.err == nil {
		t.Fatal("expected OnError for the error event")
	}
	if !domain.IsKind(rec.err, domain.ErrorKindTransport) {
		t.Errorf("expected transport kind, got %v", rec.err)
	}
	if rec.finished {
		t.Error("OnFinish must not follow OnError")
	}
	if len(rec.chunks) != 1 {
		t.Errorf("chunks after the error event must not deliver: %v", rec.chunks)
	}
}

func TestStreamTurnRetriesSetupFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `event: answer`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"ok"}}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1", WithMaxRetries(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.StreamTurn(context.Background(), history(), ports.TurnOptions{}, rec.callbacks())

	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(rec.chunks) != 1 || rec.chunks[0] != "ok" {
		t.Fatalf("unexpected chunks after retry: %v", rec.chunks)
	}
	if !rec.finished {
		t.Error("OnFinish not delivered after successful retry")
	}
}

func TestStreamTurnExhaustedRetriesReportError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1", WithMaxRetries(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	c.StreamTurn(context.Background(), history(), ports.TurnOptions{}, rec.callbacks())

	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 attempts with a budget of 1, got %d", got)
	}
	if rec.err == nil {
		t.Fatal("expected OnError after the retry budget is exhausted")
	}
	if rec.started || rec.finished {
		t.Error("no stream callbacks may fire when setup never succeeds")
	}
}

func TestStreamTurnCancelledContextSuppressesCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1", WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	c.StreamTurn(ctx, history(), ports.TurnOptions{}, rec.callbacks())
	if rec.err != nil || rec.finished || rec.started {
		t.Error("no callbacks may fire once the context is cancelled")
	}
}

func TestBuildRequest(t *testing.T) {
	var captured ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: [DONE]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	opts := ports.TurnOptions{SessionID: "chat-42", Temperature: 0.5, MaxTokens: 256}
	c.StreamTurn(context.Background(), history(), opts, rec.callbacks())

	if captured.Model != "app1" {
		t.Errorf("model = %s, want the app id", captured.Model)
	}
	if captured.ChatID != "chat-42" {
		t.Errorf("chatId = %s", captured.ChatID)
	}
	if !captured.Stream || !captured.Detail {
		t.Error("streaming turns must set stream and detail")
	}
	if captured.Temperature != 0.5 || captured.MaxTokens != 256 {
		t.Errorf("tuning not forwarded: %+v", captured)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Errorf("history not forwarded: %+v", captured.Messages)
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("Chat must not request streaming")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "full answer"}},
			},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", "app1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := c.Chat(context.Background(), history(), ports.TurnOptions{})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "full answer" {
		t.Errorf("Chat() = %q", got)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", "key", "app"); err == nil {
		t.Error("expected an error without an endpoint")
	}
	if _, err := New("http://x", "", "app"); err == nil {
		t.Error("expected an error without an api key")
	}
	if _, err := New("http://x", "key", ""); err == nil {
		t.Error("expected an error without an app id")
	}
}
