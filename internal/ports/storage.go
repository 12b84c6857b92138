package ports

import (
	"context"

	"github.com/avasile/agentwire/internal/domain"
)

// TranscriptStore is the persistence bridge for conversation transcripts.
// Writes are full-transcript and last-writer-wins: the engine always saves
// the complete message list rather than deltas. Both operations are
// best-effort from the engine's point of view; failures are logged and
// never block or roll back conversation state.
type TranscriptStore interface {
	Load(ctx context.Context, sessionID string) ([]*domain.Message, error)
	Save(ctx context.Context, sessionID string, messages []*domain.Message) error
	Close() error
}
