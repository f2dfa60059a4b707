package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePharmacy = "pharmacy"
	RoleClient   = "client"
)

type Account struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          string     `json:"role" db:"role"`
	LoginAttempts int        `json:"-" db:"login_attempts"`
	LockedUntil   *time.Time `json:"-" db:"locked_until"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLocked reports whether the account is locked at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

type RegisterPharmacyRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	// Identifier is a phone number or an email address. Email and Phone are
	// accepted as aliases.
	Identifier string `json:"identifier" binding:"required_without_all=Email Phone"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required"`
}

// Login returns the first identifier given.
func (r *LoginRequest) Login() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	}
	return r.Phone
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdatePasswordRequest struct {
	Phone       string `json:"phone"`
	NewPassword string `json:"new_password"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	TokenResponse
	Role     string    `json:"role"`
	Pharmacy *Pharmacy `json:"pharmacy,omitempty"`
	Client   *Client   `json:"client,omitempty"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	AccountID  uuid.UUID  `json:"account_id"`
	Role       string     `json:"role"`
	PharmacyID uuid.UUID  `json:"pharmacy_id"`
	ClientID   *uuid.UUID `json:"client_id,omitempty"`
}

// Profile is what Me returns: exactly one of Pharmacy or Client is set.
type Profile struct {
	Role     string    `json:"role"`
	Pharmacy *Pharmacy `json:"pharmacy,omitempty"`
	Client   *Client   `json:"client,omitempty"`
}

func (p *Principal) IsClient() bool {
	return p.Role == RoleClient && p.ClientID != nil
}

// CanAccess reports whether the principal may act on a record owned by the
// given pharmacy and client.
func (p *Principal) CanAccess(pharmacyID, clientID uuid.UUID) bool {
	if p.IsClient() {
		return *p.ClientID == clientID
	}
	return p.Role == RolePharmacy && p.PharmacyID == pharmacyID
}
