// Package turn owns the per-turn cancellation token and the offline
// degradation policy.
package turn

import (
	"context"
	"fmt"
	"time"
)

// Apology is the fixed payload of the single assistant message synthesized
// when a turn fails at the transport.
const Apology = "Sorry, I hit a network problem while reaching the agent service. I will keep helping you in offline mode."

// Token is a turn's cancellation token. It is created when a send is
// accepted and destroyed at the terminal callback or on explicit cancel.
// Cancellation is cooperative: the controller checks the token before
// applying any callback, so anything arriving after the signal is dropped.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken creates a turn token. A non-zero timeout bounds the turn; zero
// leaves it unbounded, matching servers that legitimately stream for a
// long time.
func NewToken(parent context.Context, timeout time.Duration) *Token {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &Token{ctx: ctx, cancel: cancel}
}

// Context exposes the token for transports and stores.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel signals the token. Safe to call more than once.
func (t *Token) Cancel() {
	t.cancel()
}

// Signalled reports whether the token has been cancelled or timed out.
func (t *Token) Signalled() bool {
	return t.ctx.Err() != nil
}

// OfflineResponse synthesizes the deterministic local reply used while the
// session is offline and the transport must not be invoked.
func OfflineResponse(input string) string {
	return fmt.Sprintf("I am currently offline and cannot reach the agent service. I received your message: %q. Ask again once the connection recovers and I will give you a full answer.", input)
}
