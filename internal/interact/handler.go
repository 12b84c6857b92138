// Package interact implements the interactive-prompt sub-protocol: a
// mid-turn event that asks the user to choose an option or fill a form and
// then resumes the turn with the answer, without restarting the
// conversation.
package interact

import (
	"time"

	"github.com/google/uuid"

	"github.com/avasile/agentwire/internal/domain"
)

// Option configures a Handler.
type Option func(*Handler)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithIDGenerator overrides continuation message id generation.
func WithIDGenerator(newID func() string) Option {
	return func(h *Handler) {
		h.newID = newID
	}
}

// Handler resolves answered prompts into continuation messages.
type Handler struct {
	now   func() time.Time
	newID func() string
}

// New creates a prompt handler.
func New(opts ...Option) *Handler {
	h := &Handler{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Answerable reports whether the message carries a prompt still waiting
// for the user.
func (h *Handler) Answerable(msg *domain.Message) bool {
	return msg != nil && msg.Interactive != nil && !msg.Interactive.Processed
}

// Resolve marks the prompt on msg as processed with the user's answer and
// returns the continuation user message. The resumed turn's history is
// that single message only: the remote agent holds server-side flow state
// for interactive continuations, so replaying the transcript would be
// redundant and semantically wrong.
func (h *Handler) Resolve(msg *domain.Message, value, key string) (*domain.Message, error) {
	if !h.Answerable(msg) {
		return nil, domain.NewError(domain.ErrorKindValidation,
			"message has no unanswered interactive prompt")
	}
	if value == "" {
		return nil, domain.NewError(domain.ErrorKindValidation,
			"interactive answer value must not be empty")
	}

	at := h.now()
	msg.Interactive.Processed = true
	msg.Interactive.SelectedValue = value
	msg.Interactive.SelectedKey = key
	msg.Interactive.SelectedAt = &at
	msg.InteractionStatus = domain.InteractionCompleted

	return &domain.Message{
		ID:        h.newID(),
		Role:      domain.RoleUser,
		Content:   value,
		Timestamp: at,
	}, nil
}
