package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/messaging"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

type failingBroker struct{ calls int }

func (b *failingBroker) Publish(context.Context, string, interface{}) error {
	b.calls++
	return errors.New("connection refused")
}

func (b *failingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *failingBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxRetries:    2,
	}
}

func TestProcessEventsPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repos := memory.New()
	broker := messaging.NewMemoryBroker()
	m := metrics.NewNop()

	sub, err := broker.Subscribe(ctx, messaging.ChannelEvents)
	require.NoError(t, err)

	pharmacyID, clientID := uuid.New(), uuid.New()
	rec := event.NewOutboxRecorder(repos.Outbox)
	require.NoError(t, rec.Record(ctx, model.EventDosesChanged, uuid.New(), map[string]string{"status": "taken"},
		model.PharmacyTopic(pharmacyID), model.ClientTopic(clientID)))

	p := NewOutboxProcessor(repos.Outbox, broker, testConfig(), logger.Nop(), m)
	require.NoError(t, p.processEvents(ctx))

	var topics []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-sub:
			var ev model.ChangeEvent
			require.NoError(t, json.Unmarshal(msg, &ev))
			assert.Equal(t, model.EventDosesChanged, ev.Type)
			topics = append(topics, ev.Topic)
		case <-time.After(time.Second):
			t.Fatal("expected published event")
		}
	}
	assert.ElementsMatch(t, []string{model.PharmacyTopic(pharmacyID), model.ClientTopic(clientID)}, topics)

	for _, e := range repos.DB.OutboxEvents() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
		assert.NotNil(t, e.ProcessedAt)
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxEventsProcessed))

	// nothing left to claim
	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestProcessEventsRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	repos := memory.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repos.DB.SetClock(func() time.Time { return now })
	broker := &failingBroker{}
	m := metrics.NewNop()

	rec := event.NewOutboxRecorder(repos.Outbox)
	require.NoError(t, rec.Record(ctx, model.EventAdsChanged, uuid.New(), nil, "ads:x"))

	p := NewOutboxProcessor(repos.Outbox, broker, testConfig(), logger.Nop(), m)
	p.now = func() time.Time { return now }

	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, 2, broker.calls)
	e := repos.DB.OutboxEvents()[0]
	assert.Equal(t, model.OutboxStatusRetry, e.Status)
	assert.Equal(t, 1, e.RetryCount)
	require.NotNil(t, e.RetryAt)
	assert.Equal(t, now.Add(time.Millisecond), *e.RetryAt)
	require.NotNil(t, e.ErrorMessage)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventAdsChanged)))

	// not yet due
	repos.DB.SetClock(func() time.Time { return now.Add(-time.Second) })
	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, 2, broker.calls)

	repos.DB.SetClock(func() time.Time { return now.Add(time.Second) })
	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, 4, broker.calls)
	assert.Equal(t, model.OutboxStatusFailed, repos.DB.OutboxEvents()[0].Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestProcessEventsReclaimsStaleClaims(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repos := memory.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repos.DB.SetClock(func() time.Time { return now })
	broker := messaging.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, messaging.ChannelEvents)
	require.NoError(t, err)

	rec := event.NewOutboxRecorder(repos.Outbox)
	require.NoError(t, rec.Record(ctx, model.EventAdsChanged, uuid.New(), nil, "ads:x"))

	// a poller claimed the event and died before publishing
	claimed, err := repos.Outbox.GetPendingEventsWithLock(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	cfg := testConfig()
	cfg.ClaimTimeout = time.Minute
	p := NewOutboxProcessor(repos.Outbox, broker, cfg, logger.Nop(), metrics.NewNop())

	repos.DB.SetClock(func() time.Time { return now.Add(30 * time.Second) })
	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, model.OutboxStatusProcessing, repos.DB.OutboxEvents()[0].Status)

	repos.DB.SetClock(func() time.Time { return now.Add(time.Minute) })
	require.NoError(t, p.processEvents(ctx))
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected published event")
	}
	assert.Equal(t, model.OutboxStatusProcessed, repos.DB.OutboxEvents()[0].Status)
}

func TestBackoff(t *testing.T) {
	p := NewOutboxProcessor(memory.New().Outbox, messaging.NewMemoryBroker(), OutboxProcessorConfig{
		BatchSize: 1, PollInterval: time.Second, RetryAttempts: 1, RetryDelay: time.Minute,
	}, logger.Nop(), metrics.NewNop())
	assert.Equal(t, time.Minute, p.backoff(0))
	assert.Equal(t, 4*time.Minute, p.backoff(2))
	assert.Equal(t, time.Hour, p.backoff(20))
}

func TestOutboxCleanup(t *testing.T) {
	ctx := context.Background()
	repos := memory.New()
	old := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repos.DB.SetClock(func() time.Time { return old })

	rec := event.NewOutboxRecorder(repos.Outbox)
	require.NoError(t, rec.Record(ctx, model.EventClientsChanged, uuid.New(), nil, "pharmacy:a", "pharmacy:b"))
	events, err := repos.Outbox.GetPendingEventsWithLock(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repos.Outbox.UpdateStatus(ctx, events[0].ID, model.OutboxStatusProcessed, nil, nil))

	m := metrics.NewNop()
	w := NewOutboxCleanupWorker(repos.Outbox, 7, logger.Nop(), m)
	w.now = func() time.Time { return old.AddDate(0, 0, 8) }

	n, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repos.DB.OutboxEvents(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsDeleted))
}
