// Package direct provides an in-process session event publisher. It is
// the explicit pub/sub port hosts inject into the session controller in
// place of ambient global listeners.
package direct

import (
	"context"
	"fmt"
	"sync"

	"github.com/avasile/agentwire/internal/ports"
)

const defaultBuffer = 16

// Publisher fans session events out to in-process subscribers. Publish
// never blocks: a subscriber that falls behind loses events rather than
// stalling the engine's callback path.
type Publisher struct {
	mu     sync.Mutex
	subs   map[int]chan *ports.SessionEvent
	next   int
	buffer int
	closed bool
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher. A non-positive buffer gets a default.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Publisher{
		subs:   make(map[int]chan *ports.SessionEvent),
		buffer: buffer,
	}
}

// Subscribe registers a listener. The cancel function unregisters it and
// closes the channel.
func (p *Publisher) Subscribe() (<-chan *ports.SessionEvent, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan *ports.SessionEvent, p.buffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (p *Publisher) Publish(ctx context.Context, event *ports.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher closed")
	}
	for _, ch := range p.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Close unregisters and closes all subscribers.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	return nil
}
