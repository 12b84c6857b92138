package assemble

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avasile/agentwire/internal/domain"
)

// listSink collects messages the way the controller's transcript does.
type listSink struct {
	messages []*domain.Message
}

func (s *listSink) Append(msg *domain.Message) {
	s.messages = append(s.messages, msg)
}

func (s *listSink) Remove(id string) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

func newTestAssembler(sink Sink) *Assembler {
	n := 0
	return New(sink, nil,
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		WithIDGenerator(func() string {
			n++
			return map[int]string{1: "id-1", 2: "id-2", 3: "id-3"}[n]
		}))
}

func TestChunksConcatenateInOrder(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.OnStart()
	a.ApplyChunk("Hi")
	a.ApplyChunk(" there")

	if len(sink.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sink.messages))
	}
	msg := sink.messages[0]
	if msg.ID != domain.TypingID {
		t.Errorf("expected typing id, got %s", msg.ID)
	}
	if msg.Content != "Hi there" {
		t.Errorf("expected concatenated content, got %q", msg.Content)
	}
	if msg.ThinkingStatus != domain.ThinkingInProgress {
		t.Errorf("expected in-progress thinking, got %s", msg.ThinkingStatus)
	}
}

func TestSinglePlaceholderPerTurn(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.OnStart()
	a.OnStart()
	a.ApplyChunk("a")
	a.ApplyStep(&domain.ProcessingStep{ID: "s1", Type: "toolCall"}, false, false)

	if len(sink.messages) != 1 {
		t.Fatalf("expected exactly 1 placeholder, got %d messages", len(sink.messages))
	}
}

func TestSealAssignsPermanentID(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.ApplyChunk("done")
	id, sealed := a.Seal()
	if !sealed {
		t.Fatal("expected first Seal to perform the seal")
	}
	if id == domain.TypingID || id == "" {
		t.Fatalf("expected a permanent id, got %q", id)
	}
	if sink.messages[0].ID != id {
		t.Errorf("placeholder id not replaced: %s", sink.messages[0].ID)
	}
	if sink.messages[0].ThinkingStatus != domain.ThinkingCompleted {
		t.Errorf("expected completed thinking after seal")
	}
}

func TestSealIsIdempotent(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.ApplyChunk("x")
	first, sealed := a.Seal()
	if !sealed {
		t.Fatal("expected first Seal to seal")
	}
	second, sealedAgain := a.Seal()
	if sealedAgain {
		t.Fatal("second Seal must be a no-op")
	}
	if second != first {
		t.Errorf("second Seal returned %s, want %s", second, first)
	}

	// Mutations after sealing are dropped.
	a.ApplyChunk("late")
	if sink.messages[0].Content != "x" {
		t.Errorf("content mutated after seal: %q", sink.messages[0].Content)
	}
}

func TestSealWithoutPlaceholder(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	id, sealed := a.Seal()
	if sealed || id != "" {
		t.Fatalf("Seal() with no placeholder = (%q, %v), want empty no-op", id, sealed)
	}
}

func TestTransientEvictedByPlaceholder(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.StartTransient("Processing your request")
	if len(sink.messages) != 1 || sink.messages[0].Role != domain.RoleSystem {
		t.Fatalf("expected one transient system message, got %+v", sink.messages)
	}

	a.ApplyChunk("real output")
	if len(sink.messages) != 1 {
		t.Fatalf("transient must be evicted when the placeholder appears, got %d messages", len(sink.messages))
	}
	if sink.messages[0].Role != domain.RoleAssistant {
		t.Errorf("expected the assistant placeholder to remain, got %s", sink.messages[0].Role)
	}
}

func TestTransientRemovedOnEmptySeal(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.StartTransient("Processing your request")
	_, sealed := a.Seal()
	if sealed {
		t.Fatal("sealing an empty turn must not report a seal")
	}
	if len(sink.messages) != 0 {
		t.Fatalf("transient must not survive the turn, got %d messages", len(sink.messages))
	}
}

func TestTransientNotCreatedAfterPlaceholder(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.ApplyChunk("output")
	a.StartTransient("Processing your request")
	if len(sink.messages) != 1 {
		t.Fatalf("transient must not coexist with the placeholder, got %d messages", len(sink.messages))
	}
}

func TestApplyStepRecordsTrail(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.ApplyStep(&domain.ProcessingStep{ID: "s1", Type: "thinkingStart"}, true, false)
	a.ApplyStep(&domain.ProcessingStep{ID: "s2", Type: "thinkingEnd"}, true, true)

	msg := sink.messages[0]
	if len(msg.ProcessingSteps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(msg.ProcessingSteps))
	}
	if msg.ProcessingSteps[0].ID != "s1" || msg.ProcessingSteps[1].ID != "s2" {
		t.Errorf("steps out of order: %+v", msg.ProcessingSteps)
	}
	if msg.ThinkingStatus != domain.ThinkingCompleted {
		t.Errorf("thinkingEnd must complete the thinking state, got %s", msg.ThinkingStatus)
	}
}

func TestAttachPrompt(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	prompt := &domain.InteractivePrompt{
		Kind:    domain.PromptUserSelect,
		Options: []domain.SelectOption{{Value: "Yes", Key: "option1"}},
	}
	a.ApplyChunk("Pick one:")
	a.AttachPrompt(prompt)

	msg := sink.messages[0]
	if msg.Interactive == nil {
		t.Fatal("prompt not attached")
	}
	if msg.Interactive.Processed {
		t.Error("freshly attached prompt must be unprocessed")
	}
	if msg.InteractionStatus != domain.InteractionReady {
		t.Errorf("expected interaction ready, got %s", msg.InteractionStatus)
	}
	if msg.ThinkingStatus != domain.ThinkingCompleted {
		t.Errorf("prompt arrival must complete thinking, got %s", msg.ThinkingStatus)
	}

	// The assembler copies; mutating the caller's prompt must not leak in.
	prompt.Options[0].Value = "mutated"
	if msg.Interactive.Options[0].Value == "mutated" {
		t.Error("attached prompt aliases the caller's value")
	}
}

func TestCaptureResponseID(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	// No placeholder yet: nothing to correlate.
	a.CaptureResponseID("resp-1")
	if len(sink.messages) != 0 {
		t.Fatal("CaptureResponseID must not create the placeholder")
	}

	a.ApplyChunk("hello")
	a.CaptureResponseID("resp-2")
	if sink.messages[0].ResponseID != "resp-2" {
		t.Errorf("expected resp-2, got %s", sink.messages[0].ResponseID)
	}
}

func TestFallbackSynthesizesApology(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	id, sealed := a.Fallback("sorry, offline now")
	if !sealed {
		t.Fatal("expected Fallback to seal")
	}
	if len(sink.messages) != 1 {
		t.Fatalf("expected exactly 1 message, got %d", len(sink.messages))
	}
	msg := sink.messages[0]
	if msg.ID != id {
		t.Errorf("message id %s does not match returned id %s", msg.ID, id)
	}
	if msg.Content != "sorry, offline now" {
		t.Errorf("expected the apology content, got %q", msg.Content)
	}
	if !msg.Offline {
		t.Error("fallback message must be marked offline")
	}
}

func TestFallbackKeepsPartialContent(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	a.ApplyChunk("partial answer")
	_, sealed := a.Fallback("sorry")
	if !sealed {
		t.Fatal("expected Fallback to seal")
	}
	if sink.messages[0].Content != "partial answer" {
		t.Errorf("partial content must survive, got %q", sink.messages[0].Content)
	}
	if !sink.messages[0].Offline {
		t.Error("fallback message must be marked offline")
	}
}

func TestStepCopiesRawDetails(t *testing.T) {
	sink := &listSink{}
	a := newTestAssembler(sink)

	raw := json.RawMessage(`{"k":"v"}`)
	a.ApplyStep(&domain.ProcessingStep{ID: "s1", Type: "toolCall", RawDetails: raw}, false, false)
	if string(sink.messages[0].ProcessingSteps[0].RawDetails) != `{"k":"v"}` {
		t.Errorf("raw details lost: %s", sink.messages[0].ProcessingSteps[0].RawDetails)
	}
}
