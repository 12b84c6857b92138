// Package assemble owns the single in-flight assistant message for one
// turn and applies stream events to it: chunk concatenation, processing
// steps, interactive prompts, correlation ids, and the one-time seal.
package assemble

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avasile/agentwire/internal/domain"
)

// Sink is the transcript surface the assembler writes through. The session
// controller owns the actual message list.
type Sink interface {
	Append(msg *domain.Message)
	Remove(id string)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithIDGenerator overrides permanent id generation.
func WithIDGenerator(newID func() string) Option {
	return func(a *Assembler) {
		a.newID = newID
	}
}

// Assembler builds the placeholder assistant message for a single turn.
// It is not safe for concurrent use; the controller serializes callbacks.
type Assembler struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	placeholder *domain.Message
	transientID string
	sealed      bool
}

// New creates an assembler for one turn.
func New(sink Sink, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartTransient appends a transient status overlay message shown before
// any assistant output exists. It is a no-op once the placeholder exists:
// the overlay must never coexist with real in-flight output.
func (a *Assembler) StartTransient(name string) {
	if a.placeholder != nil || a.sealed || a.transientID != "" {
		return
	}
	a.transientID = "transient-" + a.newID()
	a.sink.Append(&domain.Message{
		ID:        a.transientID,
		Role:      domain.RoleSystem,
		Content:   name,
		Timestamp: a.now(),
	})
}

// OnStart creates the placeholder eagerly when the transport signals the
// stream opened.
func (a *Assembler) OnStart() {
	a.ensure()
}

// ApplyChunk appends one text fragment in delivery order.
func (a *Assembler) ApplyChunk(text string) {
	if a.sealed {
		return
	}
	a.ensure()
	a.placeholder.Content += text
}

// ApplyStep records one processing step and updates the thinking state.
// Steps are append-only; earlier entries are never rewritten.
func (a *Assembler) ApplyStep(step *domain.ProcessingStep, thinkingSeen, thinkingDone bool) {
	if a.sealed || step == nil {
		return
	}
	a.ensure()
	a.placeholder.ProcessingSteps = append(a.placeholder.ProcessingSteps, *step)
	if thinkingDone {
		a.placeholder.ThinkingStatus = domain.ThinkingCompleted
	} else if thinkingSeen {
		a.placeholder.ThinkingStatus = domain.ThinkingInProgress
	}
}

// AttachPrompt attaches a validated interactive prompt. The turn does not
// end here; later chunks and steps still apply.
func (a *Assembler) AttachPrompt(prompt *domain.InteractivePrompt) {
	if a.sealed || prompt == nil {
		return
	}
	a.ensure()
	attached := *prompt
	attached.Processed = false
	a.placeholder.Interactive = &attached
	a.placeholder.ThinkingStatus = domain.ThinkingCompleted
	a.placeholder.InteractionStatus = domain.InteractionReady
}

// CaptureResponseID records an external correlation id on the in-flight
// message. Without a placeholder there is nothing to correlate yet.
func (a *Assembler) CaptureResponseID(id string) {
	if a.sealed || a.placeholder == nil || id == "" {
		return
	}
	a.placeholder.ResponseID = id
}

// Seal replaces the placeholder's temporary id with a permanent one and
// marks thinking completed. Sealing is idempotent: a second terminal
// callback finds the turn already sealed and changes nothing. The returned
// bool reports whether this call performed the seal.
func (a *Assembler) Seal() (string, bool) {
	if a.sealed {
		if a.placeholder != nil {
			return a.placeholder.ID, false
		}
		return "", false
	}
	if a.placeholder == nil {
		a.sealed = true
		if a.transientID != "" {
			a.sink.Remove(a.transientID)
			a.transientID = ""
		}
		return "", false
	}
	a.sealed = true
	a.placeholder.ID = a.newID()
	a.placeholder.ThinkingStatus = domain.ThinkingCompleted
	return a.placeholder.ID, true
}

// Fallback converts the turn's output into exactly one settled assistant
// message carrying the apology when no content arrived, creating the
// message if the stream produced nothing at all.
func (a *Assembler) Fallback(apology string) (string, bool) {
	if a.sealed {
		if a.placeholder != nil {
			return a.placeholder.ID, false
		}
		return "", false
	}
	a.ensure()
	if a.placeholder.Content == "" {
		a.placeholder.Content = apology
	}
	a.placeholder.Offline = true
	return a.Seal()
}

// HasPlaceholder reports whether the in-flight message exists.
func (a *Assembler) HasPlaceholder() bool {
	return a.placeholder != nil
}

// Placeholder exposes the in-flight message for the controller's
// observation (awaiting-interaction checks, partial-content sealing).
func (a *Assembler) Placeholder() *domain.Message {
	return a.placeholder
}

// Sealed reports whether the terminal transition already happened.
func (a *Assembler) Sealed() bool {
	return a.sealed
}

// ensure lazily creates the placeholder. The transport normally announces
// the stream via OnStart, but a step or prompt arriving first still gets a
// message to land on. Creating the placeholder evicts any transient
// overlay so the two never coexist.
func (a *Assembler) ensure() {
	if a.placeholder != nil {
		return
	}
	if a.transientID != "" {
		a.sink.Remove(a.transientID)
		a.transientID = ""
	}
	a.placeholder = &domain.Message{
		ID:                domain.TypingID,
		Role:              domain.RoleAssistant,
		Timestamp:         a.now(),
		ThinkingStatus:    domain.ThinkingInProgress,
		InteractionStatus: domain.InteractionNone,
	}
	a.sink.Append(a.placeholder)
}
