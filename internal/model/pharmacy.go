package model

import (
	"time"

	"github.com/google/uuid"
)

type Pharmacy struct {
	ID        uuid.UUID `json:"id" db:"id"`
	AuthID    uuid.UUID `json:"auth_id" db:"auth_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type UpdatePharmacyRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
