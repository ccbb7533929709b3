// Package memory is the default events.Bus: an in-process fan-out used when
// the coordinator's Config.EventsURL is empty. It has no durability and no cross-
// process delivery, which is fine for the job-lifecycle events this engine
// publishes (JobStarted, PhaseCompleted, JobCompleted, JobFailed) — nothing
// downstream of a single coordinator process currently listens remotely.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chris-alexander-pop/mapreduce-engine/pkg/events"
)

type Event = events.Event

type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]events.Handler
}

func New() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]events.Handler),
	}
}

func (m *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.RLock()
	handlers := make([]events.Handler, len(m.handlers[topic]))
	copy(handlers, m.handlers[topic])
	m.mu.RUnlock()

	for _, h := range handlers {
		go func(handler events.Handler, evt events.Event) {
			_ = handler(context.Background(), evt)
		}(h, event)
	}

	return nil
}

func (m *MemoryBus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[topic] = append(m.handlers[topic], handler)
	return nil
}

func (m *MemoryBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string][]events.Handler)
	return nil
}
