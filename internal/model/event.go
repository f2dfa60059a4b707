package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventClientsChanged     = "clients.changed"
	EventMedicationsChanged = "medications.changed"
	EventDosesChanged       = "doses.changed"
	EventAdsChanged         = "ads.changed"
)

// ChangeEvent is the realtime notification pushed to websocket subscribers.
type ChangeEvent struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	ResourceID uuid.UUID       `json:"resource_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func PharmacyTopic(id uuid.UUID) string { return fmt.Sprintf("pharmacy:%s", id) }

func ClientTopic(id uuid.UUID) string { return fmt.Sprintf("client:%s", id) }

// AdsTopic carries banner changes to a pharmacy's clients.
func AdsTopic(pharmacyID uuid.UUID) string { return fmt.Sprintf("ads:%s", pharmacyID) }

// PharmacyIDFromTopic parses the id out of a PharmacyTopic.
func PharmacyIDFromTopic(topic string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(topic, "pharmacy:")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
