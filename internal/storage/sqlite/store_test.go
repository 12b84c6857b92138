package sqlite

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avasile/agentwire/internal/domain"
)

var dbCounter atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:transcripts%d?mode=memory&cache=shared", dbCounter.Add(1))
	s, err := New(dsn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0).UTC()
	msgs := []*domain.Message{
		{ID: "u1", Role: domain.RoleUser, Content: "hello", Timestamp: at},
		{
			ID:             "a1",
			Role:           domain.RoleAssistant,
			Content:        "hi there",
			Timestamp:      at,
			ThinkingStatus: domain.ThinkingCompleted,
			ProcessingSteps: []domain.ProcessingStep{
				{ID: "s1", Type: "toolCall", Name: "search", Status: domain.StepSuccess, Timestamp: at},
			},
			Interactive: &domain.InteractivePrompt{
				Kind:    domain.PromptUserSelect,
				Options: []domain.SelectOption{{Value: "Yes", Key: "option1"}},
			},
			ResponseID: "resp-1",
		},
	}
	if err := s.Save(ctx, "s1", msgs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	got := loaded[1]
	if got.Content != "hi there" || got.ResponseID != "resp-1" {
		t.Errorf("fields lost in round trip: %+v", got)
	}
	if len(got.ProcessingSteps) != 1 || got.ProcessingSteps[0].Name != "search" {
		t.Errorf("processing steps lost: %+v", got.ProcessingSteps)
	}
	if got.Interactive == nil || got.Interactive.Options[0].Key != "option1" {
		t.Errorf("interactive prompt lost: %+v", got.Interactive)
	}
}

func TestLoadUnknownSessionIsEmpty(t *testing.T) {
	s := newTestStore(t)
	loaded, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(loaded))
	}
}

func TestSaveReplacesTranscript(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "s1", []*domain.Message{{ID: "a"}, {ID: "b"}, {ID: "c"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "s1", []*domain.Message{{ID: "x"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "x" {
		t.Fatalf("expected last snapshot only, got %+v", loaded)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Save(ctx, "s1", []*domain.Message{{ID: "a", Content: "one"}})
	s.Save(ctx, "s2", []*domain.Message{{ID: "b", Content: "two"}})

	loaded, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].Content != "one" {
		t.Fatalf("session isolation broken: %+v", loaded)
	}
}

func TestLoadPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var msgs []*domain.Message
	for i := 0; i < 20; i++ {
		msgs = append(msgs, &domain.Message{ID: fmt.Sprintf("m%02d", i)})
	}
	if err := s.Save(ctx, "s1", msgs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for i, m := range loaded {
		if m.ID != fmt.Sprintf("m%02d", i) {
			t.Fatalf("order broken at %d: %s", i, m.ID)
		}
	}
}
