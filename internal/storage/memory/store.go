// Package memory is an in-memory transcript store for tests and hosts
// that don't need durability.
package memory

import (
	"context"
	"sync"

	"github.com/avasile/agentwire/internal/domain"
	"github.com/avasile/agentwire/internal/ports"
)

// Store is an in-memory implementation of TranscriptStore.
type Store struct {
	mu          sync.RWMutex
	transcripts map[string][]*domain.Message
}

var _ ports.TranscriptStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		transcripts: make(map[string][]*domain.Message),
	}
}

func (s *Store) Load(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneMessages(s.transcripts[sessionID]), nil
}

func (s *Store) Save(ctx context.Context, sessionID string, messages []*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[sessionID] = domain.CloneMessages(messages)
	return nil
}

func (s *Store) Close() error {
	return nil
}
