package model

import (
	"time"

	"github.com/google/uuid"
)

type PharmacyAd struct {
	ID              uuid.UUID `json:"id" db:"id"`
	PharmacyID      uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	ImageKey        string    `json:"image_key" db:"image_key"`
	ImageURL        string    `json:"image_url" db:"image_url"`
	WhatsAppPhone   *string   `json:"whatsapp_phone,omitempty" db:"whatsapp_phone"`
	WhatsAppMessage *string   `json:"whatsapp_message,omitempty" db:"whatsapp_message"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	DisplayOrder    int       `json:"display_order" db:"display_order"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ClientAd is an active banner as shown to a client.
type ClientAd struct {
	*PharmacyAd
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}
