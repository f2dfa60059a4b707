package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/messaging"
)

// Relay forwards events published by the outbox processor to the hub. Every
// API instance runs one, so a connection receives events whichever instance
// recorded them.
type Relay struct {
	broker  messaging.Broker
	hub     *Hub
	channel string
	// listeners see every event before it is broadcast.
	listeners []func(model.ChangeEvent)
}

func NewRelay(broker messaging.Broker, hub *Hub, channel string) *Relay {
	if channel == "" {
		channel = messaging.ChannelEvents
	}
	return &Relay{broker: broker, hub: hub, channel: channel}
}

func (r *Relay) OnEvent(fn func(model.ChangeEvent)) {
	r.listeners = append(r.listeners, fn)
}

// Run blocks until ctx is cancelled or the subscription ends.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	log.Info().Str("channel", r.channel).Msg("Realtime relay started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.dispatch(msg)
		}
	}
}

func (r *Relay) dispatch(msg []byte) {
	var ev model.ChangeEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed realtime event")
		return
	}
	if ev.Topic == "" {
		return
	}
	for _, fn := range r.listeners {
		fn(ev)
	}
	r.hub.Broadcast(ev.Topic, msg)
}
