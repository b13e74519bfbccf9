package testutil

import (
	"context"
	"sync"

	"github.com/chronobill/chronobill/internal/types"
)

// InMemoryEventPublisher implements publisher.EventPublisher, capturing
// published events for assertions.
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	events []*types.WebhookEvent
}

// NewInMemoryEventPublisher creates a new capturing event publisher
func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event *types.WebhookEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *InMemoryEventPublisher) Close() error {
	return nil
}

// Events returns a snapshot of every published event
func (p *InMemoryEventPublisher) Events() []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.WebhookEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsByName returns published events with the given name
func (p *InMemoryEventPublisher) EventsByName(name string) []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*types.WebhookEvent
	for _, e := range p.events {
		if e.EventName == name {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops captured events
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
