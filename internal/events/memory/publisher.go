// Package memory contains an in-memory event publisher for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/sitecrawler/internal/events"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []events.Event
	err    error
}

var _ events.Publisher = (*Publisher)(nil)

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes subsequent publishes return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the event and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, event events.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns the recorded events.
func (p *Publisher) Events() []events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}
