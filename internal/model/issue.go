package model

import (
	"time"

	"github.com/google/uuid"
)

type AdverseEvent struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	ClientID     uuid.UUID  `json:"client_id" db:"client_id"`
	MedicationID *uuid.UUID `json:"medication_id,omitempty" db:"medication_id"`
	DoseRecordID *uuid.UUID `json:"dose_record_id,omitempty" db:"dose_record_id"`
	PharmacyID   uuid.UUID  `json:"pharmacy_id" db:"pharmacy_id"`
	EventType    string     `json:"event_type" db:"event_type"`
	Severity     string     `json:"severity" db:"severity"`
	Description  string     `json:"description" db:"description"`
	OccurredAt   time.Time  `json:"occurred_at" db:"occurred_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type DoseCorrection struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OriginalDoseID uuid.UUID `json:"original_dose_id" db:"original_dose_id"`
	ClientID       uuid.UUID `json:"client_id" db:"client_id"`
	MedicationID   uuid.UUID `json:"medication_id" db:"medication_id"`
	PharmacyID     uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	CorrectionType string    `json:"correction_type" db:"correction_type"`
	Description    string    `json:"description" db:"description"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type ReportCorrectionRequest struct {
	CorrectionType string `json:"correction_type" binding:"required,oneof=double_dose wrong_medication wrong_time missed_then_taken other"`
	Description    string `json:"description" binding:"required"`
}

type ReportAdverseEventRequest struct {
	MedicationID *uuid.UUID `json:"medication_id"`
	EventType    string     `json:"event_type" binding:"required,oneof=symptom side_effect allergic_reaction other"`
	Severity     string     `json:"severity" binding:"required,oneof=mild moderate severe"`
	Description  string     `json:"description" binding:"required"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

// ClientIssues lists everything a client reported, with the medications referenced.
type ClientIssues struct {
	AdverseEvents []*AdverseEvent           `json:"adverse_events"`
	Corrections   []*DoseCorrection         `json:"corrections"`
	Medications   map[uuid.UUID]*Medication `json:"medications"`
}
