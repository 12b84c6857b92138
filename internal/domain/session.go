package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	// SessionIdle accepts new sends.
	SessionIdle SessionStatus = "idle"
	// SessionSending validates input and appends the user message.
	SessionSending SessionStatus = "sending"
	// SessionStreaming consumes the agent's event stream.
	SessionStreaming SessionStatus = "streaming"
	// SessionAwaitingInteraction holds a ready interactive prompt while the
	// stream may still be producing output.
	SessionAwaitingInteraction SessionStatus = "awaiting_interaction"
	// SessionAborting is the transient state while a cancel settles.
	SessionAborting SessionStatus = "aborting"
	// SessionOffline synthesizes local responses and never touches the
	// transport. Recovery is driven only by an external connectivity probe.
	SessionOffline SessionStatus = "offline"
)

const fallbackIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewFallbackSessionID generates a local session id for use when the remote
// service cannot mint one. The local_ prefix marks transcripts that were
// started without a server-side session.
func NewFallbackSessionID() string {
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = fallbackIDAlphabet[rand.Intn(len(fallbackIDAlphabet))]
	}
	return fmt.Sprintf("local_%d_%s", time.Now().UnixMilli(), suffix)
}
