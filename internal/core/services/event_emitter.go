package services

import (
	"sync"

	"github.com/btps-org/btps-core/internal/core/domain"
)

// Event is the closed tagged-sum of everything the connector can
// report to a caller (spec §9 Design Notes: "model events as a tagged
// sum... subscribers register a handler per variant, or receive events
// through a typed channel"). Each concrete type below implements
// Event via its unexported marker method.
type Event interface {
	event()
}

// EventConnected reports a successful TLS handshake.
type EventConnected struct{}

func (EventConnected) event() {}

// EventMessage reports an inbound, verified (and decrypted, if
// applicable) envelope.
type EventMessage struct {
	Envelope *domain.ArtifactEnvelope
}

func (EventMessage) event() {}

// EventMessageSent reports that an outbound artifact was written to
// the socket (not merely enqueued).
type EventMessageSent struct {
	ID string
}

func (EventMessageSent) event() {}

// EventError reports a failure, classified with retry guidance.
type EventError struct {
	Err  error
	Info domain.RetryInfo
}

func (EventError) event() {}

// EventEnd reports the connection closing, gracefully or otherwise.
type EventEnd struct {
	Info domain.RetryInfo
}

func (EventEnd) event() {}

// EventClose reports the connector instance is fully torn down.
type EventClose struct{}

func (EventClose) event() {}

// Emitter is a multi-subscriber event bus. Events are delivered in the
// order Emit is called; no event is delivered after Close. Emit is
// safe to call from several goroutines (the connector's owning
// goroutine and its read loop both emit); a mutex serializes delivery.
// Emitter does not buffer beyond each subscriber's channel capacity —
// a slow subscriber can block Emit.
type Emitter struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe returns a channel of buffered capacity buf that receives
// every subsequent Emit call. Call the returned cancel func to
// unsubscribe.
func (e *Emitter) Subscribe(buf int) (ch <-chan Event, cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := make(chan Event, buf)
	e.subs = append(e.subs, c)
	return c, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s == c {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				close(c)
				return
			}
		}
	}
}

// Emit delivers ev to every current subscriber. A no-op once Close
// has been called, honoring "no event is emitted after Destroyed"
// (spec §4.8).
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for _, s := range e.subs {
		s <- ev
	}
}

// Close marks the emitter closed and closes every subscriber channel.
// Idempotent.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, s := range e.subs {
		close(s)
	}
	e.subs = nil
}
