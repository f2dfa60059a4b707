package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
)

func TestRecordWritesOneRowPerTopic(t *testing.T) {
	repos := memory.New()
	rec := NewOutboxRecorder(repos.Outbox)

	pharmacyID, clientID, doseID := uuid.New(), uuid.New(), uuid.New()
	err := rec.Record(context.Background(), model.EventDosesChanged, doseID,
		map[string]string{"status": "taken"},
		model.PharmacyTopic(pharmacyID), model.ClientTopic(clientID))
	require.NoError(t, err)

	rows := repos.DB.OutboxEvents()
	require.Len(t, rows, 2)
	assert.Equal(t, model.PharmacyTopic(pharmacyID), rows[0].Topic)
	assert.Equal(t, model.ClientTopic(clientID), rows[1].Topic)

	var evt model.ChangeEvent
	require.NoError(t, json.Unmarshal(rows[1].Payload, &evt))
	assert.Equal(t, model.EventDosesChanged, evt.Type)
	assert.Equal(t, doseID, evt.ResourceID)
	assert.JSONEq(t, `{"status":"taken"}`, string(evt.Data))
	assert.Equal(t, model.OutboxStatusPending, rows[0].Status)
}
