package messaging

import (
	"context"
)

// ChannelEvents carries change notifications from the outbox to every API instance.
const ChannelEvents = "adherence.events"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
