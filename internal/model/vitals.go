package model

import (
	"time"

	"github.com/google/uuid"
)

type VitalSign struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ClientID   uuid.UUID `json:"client_id" db:"client_id"`
	PharmacyID uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	MeasuredAt time.Time `json:"measured_at" db:"measured_at"`
	Systolic   *int      `json:"systolic,omitempty" db:"systolic"`
	Diastolic  *int      `json:"diastolic,omitempty" db:"diastolic"`
	Glucose    *int      `json:"glucose,omitempty" db:"glucose"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HasBP reports whether the reading carries blood pressure.
func (v *VitalSign) HasBP() bool {
	return v.Systolic != nil && v.Diastolic != nil
}

type AddVitalSignRequest struct {
	MeasuredAt *time.Time `json:"measured_at"`
	Systolic   *int       `json:"systolic"`
	Diastolic  *int       `json:"diastolic"`
	Glucose    *int       `json:"glucose"`
	Notes      string     `json:"notes"`
}

// VitalReading is a stored reading with its classification labels.
type VitalReading struct {
	*VitalSign
	BPClass      string `json:"bp_class,omitempty"`
	GlucoseClass string `json:"glucose_class,omitempty"`
}

type VitalAverages struct {
	Systolic     *int `json:"systolic,omitempty"`
	Diastolic    *int `json:"diastolic,omitempty"`
	Glucose      *int `json:"glucose,omitempty"`
	BPCount      int  `json:"bp_count"`
	GlucoseCount int  `json:"glucose_count"`
}

type VitalHistory struct {
	Readings []*VitalReading `json:"readings"`
	Averages VitalAverages   `json:"averages"`
}
