package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	DoseStatusPending = "pending"
	DoseStatusTaken   = "taken"
	DoseStatusSkipped = "skipped"
)

// ValidDoseStatus reports whether s is a known dose status.
func ValidDoseStatus(s string) bool {
	switch s {
	case DoseStatusPending, DoseStatusTaken, DoseStatusSkipped:
		return true
	}
	return false
}

// RemainingDelta is the change to a medication's remaining-dose counter when
// a dose moves from one status to another.
func RemainingDelta(from, to string) int {
	switch {
	case from != DoseStatusTaken && to == DoseStatusTaken:
		return -1
	case from == DoseStatusTaken && to != DoseStatusTaken:
		return 1
	}
	return 0
}

// ApplyRemaining adjusts a nullable counter by delta, never going below zero.
func ApplyRemaining(remaining *int, delta int) *int {
	if remaining == nil {
		return nil
	}
	v := *remaining + delta
	if v < 0 {
		v = 0
	}
	return &v
}

type DoseRecord struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	MedicationID    uuid.UUID  `json:"medication_id" db:"medication_id"`
	PharmacyID      uuid.UUID  `json:"pharmacy_id" db:"pharmacy_id"`
	ClientID        uuid.UUID  `json:"client_id" db:"client_id"`
	ScheduledTime   time.Time  `json:"scheduled_time" db:"scheduled_time"`
	ActualTime      *time.Time `json:"actual_time,omitempty" db:"actual_time"`
	Status          string     `json:"status" db:"status"`
	HasAdverseEvent bool       `json:"has_adverse_event" db:"has_adverse_event"`
	HasCorrection   bool       `json:"has_correction" db:"has_correction"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	// Populated by list queries that join medications and clients.
	MedicationName   string `json:"medication_name,omitempty" db:"medication_name"`
	MedicationDosage string `json:"medication_dosage,omitempty" db:"medication_dosage"`
	ClientName       string `json:"client_name,omitempty" db:"client_name"`
}

type UpdateDoseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending taken skipped"`
}

type LogPRNRequest struct {
	TakenAt *time.Time `json:"taken_at"`
}

// DoseDetails is a dose with everything reported against it.
type DoseDetails struct {
	Dose          *DoseRecord     `json:"dose"`
	Medication    *Medication     `json:"medication,omitempty"`
	AdverseEvents []*AdverseEvent `json:"adverse_events"`
	Correction    *DoseCorrection `json:"correction,omitempty"`
}
