// Package ports defines the interfaces the session engine depends on:
// the transport client, the transcript store, the event publisher, and the
// feedback sink. Adapters live under internal/transport, internal/storage,
// internal/events, and internal/feedback.
package ports

import (
	"context"
	"encoding/json"

	"github.com/avasile/agentwire/internal/domain"
)

// TurnCallbacks is the callback surface a transport invokes while driving
// one turn. The transport guarantees: exactly one OnStart precedes any
// OnChunk/OnIntermediate; exactly one terminal callback (OnFinish or
// OnError, never both) is delivered; no callback fires after the terminal
// callback or after ctx is cancelled; callbacks are delivered one at a
// time.
type TurnCallbacks struct {
	OnStart        func()
	OnChunk        func(text string)
	OnIntermediate func(eventType string, payload json.RawMessage)
	OnError        func(err error)
	OnFinish       func()
}

// TurnOptions carries per-turn tuning passed through to the remote agent.
type TurnOptions struct {
	SessionID   string
	Temperature float64
	MaxTokens   int
}

// TransportClient opens calls to the remote agent service. It knows nothing
// about conversation semantics; retry policy for call setup belongs to the
// adapter, not to the engine.
type TransportClient interface {
	// StreamTurn drives a streaming turn and reports everything through cb.
	// It blocks until the terminal callback has been delivered.
	StreamTurn(ctx context.Context, history []*domain.Message, opts TurnOptions, cb TurnCallbacks)

	// Chat is the non-streaming fallback. The engine treats its resolved
	// value as an atomic chunk-plus-finish pair.
	Chat(ctx context.Context, history []*domain.Message, opts TurnOptions) (string, error)
}
