package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecurrenceContinuous = "continuous"
	RecurrenceCustom     = "custom"

	// LowStockThreshold is the remaining-dose count at or below which a
	// medication is reported as running out.
	LowStockThreshold = 5
)

type Medication struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	PharmacyID            uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	ClientID              uuid.UUID `json:"client_id" db:"client_id"`
	Name                  string    `json:"name" db:"name"`
	Dosage                string    `json:"dosage" db:"dosage"`
	Schedules             string    `json:"schedules" db:"schedules"`
	TotalQuantity         *int      `json:"total_quantity,omitempty" db:"total_quantity"`
	RemainingDoses        *int      `json:"remaining_doses,omitempty" db:"remaining_doses"`
	TreatmentDurationDays int       `json:"treatment_duration_days" db:"treatment_duration_days"`
	StartDate             time.Time `json:"start_date" db:"start_date"`
	Notes                 *string   `json:"notes,omitempty" db:"notes"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	RecurrenceType        string    `json:"recurrence_type" db:"recurrence_type"`
	RecurrenceCustomDates string    `json:"recurrence_custom_dates" db:"recurrence_custom_dates"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether a tracked counter has reached the threshold.
func (m *Medication) IsLowStock() bool {
	return m.RemainingDoses != nil && *m.RemainingDoses <= LowStockThreshold
}

// PrescribeMedicationRequest is the pharmacy prescribing form.
type PrescribeMedicationRequest struct {
	Name                  string   `json:"name" binding:"required"`
	Dosage                string   `json:"dosage" binding:"required"`
	DosageUnit            string   `json:"dosage_unit"`
	Schedules             []string `json:"schedules" binding:"dive,clock"`
	TotalQuantity         *int     `json:"total_quantity" binding:"omitempty,min=0"`
	TreatmentDurationDays int      `json:"treatment_duration_days"`
	StartDate             string   `json:"start_date" binding:"omitempty,isodate"`
	Notes                 string   `json:"notes"`
	RecurrenceType        string   `json:"recurrence_type" binding:"omitempty,oneof=continuous custom"`
	CustomDates           []string `json:"custom_dates" binding:"dive,isodate"`
}

// SelfMedicationRequest is the form a client uses for their own medications.
type SelfMedicationRequest struct {
	Name                  string   `json:"name" binding:"required"`
	Dosage                string   `json:"dosage" binding:"required"`
	Schedules             []string `json:"schedules" binding:"dive,clock"`
	TotalQuantity         *int     `json:"total_quantity" binding:"omitempty,min=0"`
	TreatmentDurationDays int      `json:"treatment_duration_days"`
	StartDate             string   `json:"start_date" binding:"omitempty,isodate"`
	Notes                 string   `json:"notes"`
}

type UpdateMedicationRequest struct {
	Name      string   `json:"name" binding:"required"`
	Dosage    string   `json:"dosage" binding:"required"`
	Schedules []string `json:"schedules" binding:"dive,clock"`
	Notes     *string  `json:"notes"`
}
