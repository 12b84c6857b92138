package ports

import (
	"context"
	"time"

	"github.com/avasile/agentwire/internal/domain"
)

// SessionEventType identifies a session lifecycle notification.
type SessionEventType string

const (
	// EventStatusChanged fires on every session state transition.
	EventStatusChanged SessionEventType = "status_changed"
	// EventMessageAppended fires when a message joins the transcript.
	EventMessageAppended SessionEventType = "message_appended"
	// EventMessageSealed fires when the placeholder receives its permanent id.
	EventMessageSealed SessionEventType = "message_sealed"
	// EventPromptReady fires when an interactive prompt awaits an answer.
	EventPromptReady SessionEventType = "prompt_ready"
)

// SessionEvent is a notification published by the session controller. The
// publisher port replaces the ambient window-scoped listeners of earlier
// designs: hosts inject an implementation and the engine stays free of
// global state.
type SessionEvent struct {
	Type      SessionEventType     `json:"type"`
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status,omitempty"`
	MessageID string               `json:"message_id,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// EventPublisher delivers session lifecycle events to the host.
// Implementations must not block the engine's callback path.
type EventPublisher interface {
	Publish(ctx context.Context, event *SessionEvent) error
	Close() error
}

// Feedback is a user's verdict on a single assistant message.
type Feedback struct {
	AppID     string `json:"app_id"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Positive  bool   `json:"positive"`
}

// FeedbackSink receives fire-and-forget message feedback. It is a peer
// collaborator of the engine, not part of the turn state machine.
type FeedbackSink interface {
	Submit(ctx context.Context, fb *Feedback) error
}
