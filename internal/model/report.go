package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AdherenceExcellent = "excellent"
	AdherenceGood      = "good"
	AdherenceLow       = "low"
	AdherenceStart     = "start"
)

// AdherenceLevel buckets a percentage for the client dashboard.
func AdherenceLevel(pct int) string {
	switch {
	case pct >= 80:
		return AdherenceExcellent
	case pct >= 60:
		return AdherenceGood
	case pct > 0:
		return AdherenceLow
	}
	return AdherenceStart
}

type TodayAdherence struct {
	Total      int    `json:"total"`
	Taken      int    `json:"taken"`
	Percentage int    `json:"percentage"`
	Level      string `json:"level"`
}

type ClientAdherence struct {
	ClientID   uuid.UUID `json:"client_id"`
	Days       int       `json:"days"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Total      int       `json:"total"`
	Taken      int       `json:"taken"`
	Percentage int       `json:"percentage"`
}

type MedicationProgress struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Name         string    `json:"name"`
	Total        int       `json:"total"`
	Taken        int       `json:"taken"`
	Adherence    int       `json:"adherence"`
}

type Progress struct {
	Period      string                `json:"period"`
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
	Total       int                   `json:"total"`
	Taken       int                   `json:"taken"`
	Skipped     int                   `json:"skipped"`
	Pending     int                   `json:"pending"`
	Adherence   int                   `json:"adherence"`
	Medications []*MedicationProgress `json:"medications"`
}

type CalendarDay struct {
	Date  string `json:"date"`
	Taken int    `json:"taken"`
	Total int    `json:"total"`
}

type DoseCounts struct {
	Total   int `json:"total"`
	Taken   int `json:"taken"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
}

type OverallAdherence struct {
	Taken int `json:"taken"`
	Total int `json:"total"`
	Pct   int `json:"pct"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ClientAdherenceRow struct {
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
	Taken    int       `json:"taken"`
	Total    int       `json:"total"`
	Pct      int       `json:"pct"`
}

type LowStockRow struct {
	MedicationID   uuid.UUID `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	ClientID       uuid.UUID `json:"client_id"`
	ClientName     string    `json:"client_name"`
	ClientPhone    string    `json:"client_phone"`
	Remaining      int       `json:"remaining"`
	WhatsAppLink   string    `json:"whatsapp_link,omitempty"`
}

type PharmacySummary struct {
	Range             string                `json:"range"`
	From              time.Time             `json:"from"`
	To                time.Time             `json:"to"`
	Today             DoseCounts            `json:"today"`
	Overall           OverallAdherence      `json:"overall"`
	TopMedications    []NameCount           `json:"top_medications"`
	LowestAdherence   []*ClientAdherenceRow `json:"lowest_adherence"`
	ActiveMedications int                   `json:"active_medications"`
	LowStock          []*LowStockRow        `json:"low_stock"`
}

type PharmacyOverview struct {
	TopRegistered []NameCount    `json:"top_registered"`
	TopTaken      []NameCount    `json:"top_taken"`
	RunningOut    []*LowStockRow `json:"running_out"`
}

// LowStockEntry is a medication with its client, as read for stock reports.
type LowStockEntry struct {
	MedicationID   uuid.UUID `db:"medication_id"`
	MedicationName string    `db:"medication_name"`
	ClientID       uuid.UUID `db:"client_id"`
	ClientName     string    `db:"client_name"`
	ClientPhone    string    `db:"client_phone"`
	Remaining      int       `db:"remaining_doses"`
}
