package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "%d/%d", tt.part, tt.total)
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	// 01:30 UTC is still the previous day in UTC-3
	got := StartOfDay(time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, loc), got)
}

func TestRemainingDelta(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{DoseStatusPending, DoseStatusTaken, -1},
		{DoseStatusSkipped, DoseStatusTaken, -1},
		{DoseStatusTaken, DoseStatusSkipped, 1},
		{DoseStatusTaken, DoseStatusPending, 1},
		{DoseStatusTaken, DoseStatusTaken, 0},
		{DoseStatusPending, DoseStatusSkipped, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemainingDelta(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestApplyRemaining(t *testing.T) {
	assert.Nil(t, ApplyRemaining(nil, -1))

	zero := 0
	assert.Equal(t, 0, *ApplyRemaining(&zero, -1))

	three := 3
	assert.Equal(t, 4, *ApplyRemaining(&three, 1))
	assert.Equal(t, 3, three)
}

func TestAdherenceLevel(t *testing.T) {
	assert.Equal(t, AdherenceExcellent, AdherenceLevel(80))
	assert.Equal(t, AdherenceGood, AdherenceLevel(60))
	assert.Equal(t, AdherenceLow, AdherenceLevel(1))
	assert.Equal(t, AdherenceStart, AdherenceLevel(0))
}

func TestTopics(t *testing.T) {
	id := uuid.MustParse("7f0c1d7e-8a59-4d4c-b1b6-2d2b7f0f4a11")
	assert.Equal(t, "pharmacy:7f0c1d7e-8a59-4d4c-b1b6-2d2b7f0f4a11", PharmacyTopic(id))
	assert.Equal(t, "client:7f0c1d7e-8a59-4d4c-b1b6-2d2b7f0f4a11", ClientTopic(id))

	parsed, ok := PharmacyIDFromTopic(PharmacyTopic(id))
	assert.True(t, ok)
	assert.Equal(t, id, parsed)
	_, ok = PharmacyIDFromTopic(ClientTopic(id))
	assert.False(t, ok)
	_, ok = PharmacyIDFromTopic("pharmacy:nope")
	assert.False(t, ok)
}

func TestIsLowStock(t *testing.T) {
	five, six := 5, 6
	assert.True(t, (&Medication{RemainingDoses: &five}).IsLowStock())
	assert.False(t, (&Medication{RemainingDoses: &six}).IsLowStock())
	assert.False(t, (&Medication{}).IsLowStock())
}
