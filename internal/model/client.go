package model

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PharmacyID     uuid.UUID  `json:"pharmacy_id" db:"pharmacy_id"`
	AuthID         *uuid.UUID `json:"auth_id,omitempty" db:"auth_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Phone          string     `json:"phone" db:"phone"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	MonitorBP      bool       `json:"monitor_bp" db:"monitor_bp"`
	MonitorGlucose bool       `json:"monitor_glucose" db:"monitor_glucose"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ClientListItem is a roster row with its 7-day adherence.
type ClientListItem struct {
	*Client
	DosesTotal  int `json:"doses_total_7d"`
	DosesTaken  int `json:"doses_taken_7d"`
	Adherence7d int `json:"adherence_7d"`
}

type CreateClientRequest struct {
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone" binding:"required,phone"`
	Email          string `json:"email" binding:"omitempty,email"`
	DateOfBirth    string `json:"date_of_birth" binding:"omitempty,isodate"`
	Password       string `json:"password" binding:"required,min=6"`
	MonitorBP      bool   `json:"monitor_bp"`
	MonitorGlucose bool   `json:"monitor_glucose"`
}

type UpdateClientRequest struct {
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone" binding:"required,phone"`
	Email          string `json:"email" binding:"omitempty,email"`
	DateOfBirth    string `json:"date_of_birth" binding:"omitempty,isodate"`
	MonitorBP      bool   `json:"monitor_bp"`
	MonitorGlucose bool   `json:"monitor_glucose"`
}

type MonitoringSettings struct {
	MonitorBP      bool `json:"monitor_bp"`
	MonitorGlucose bool `json:"monitor_glucose"`
}
