// Package nats is an optional events.Bus backed by core NATS pub/sub, used
// when the coordinator's Config.EventsURL is set. It carries no delivery
// guarantees beyond what NATS core pub/sub gives, which matches the
// observability-only role job-lifecycle events play here: nothing in the
// map/reduce protocol itself depends on an event being delivered.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chris-alexander-pop/mapreduce-engine/pkg/events"
)

// Config controls the connection. JetStream and durable consumer groups
// (as the library's fuller messaging adapter supports) are not needed for
// a fire-and-forget job event stream.
type Config struct {
	URL  string `env:"NATS_URL" env-default:"nats://localhost:4222"`
	Name string `env:"NATS_CLIENT_NAME" env-default:"mapreduce-engine"`
}

type Bus struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

func New(cfg Config) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name(cfg.Name), nats.ReconnectWait(2*time.Second), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	return &Bus{conn: conn}, nil
}

func (b *Bus) Publish(ctx context.Context, topic string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.conn.Publish(topic, payload)
}

func (b *Bus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	sub, err := b.conn.Subscribe(topic, func(msg *nats.Msg) {
		var event events.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		_ = handler(context.Background(), event)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

func (b *Bus) Close() error {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}
