package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

// Recorder records change notifications for later delivery to realtime subscribers.
type Recorder interface {
	Record(ctx context.Context, eventType string, resourceID uuid.UUID, data interface{}, topics ...string) error
}

type OutboxRecorder struct {
	outboxRepo repository.OutboxRepository
	now        func() time.Time
}

func NewOutboxRecorder(outboxRepo repository.OutboxRepository) *OutboxRecorder {
	return &OutboxRecorder{outboxRepo: outboxRepo, now: time.Now}
}

// Record writes one outbox row per topic, each carrying a ChangeEvent payload.
func (r *OutboxRecorder) Record(ctx context.Context, eventType string, resourceID uuid.UUID, data interface{}, topics ...string) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		raw = b
	}

	ts := r.now().UTC()
	for _, topic := range topics {
		payload, err := json.Marshal(model.ChangeEvent{
			Type:       eventType,
			Topic:      topic,
			ResourceID: resourceID,
			Timestamp:  ts,
			Data:       raw,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		event := &model.OutboxEvent{
			EventType: eventType,
			Topic:     topic,
			Payload:   payload,
		}
		if err := r.outboxRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
	}
	return nil
}

// Notify records an event and logs instead of failing the caller; the
// domain change has already been committed.
func Notify(ctx context.Context, rec Recorder, eventType string, resourceID uuid.UUID, data interface{}, topics ...string) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, eventType, resourceID, data, topics...); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("resource_id", resourceID.String()).
			Msg("Failed to record change event")
	}
}
