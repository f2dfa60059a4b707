package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RolePharmacy = "pharmacy"
	RoleClient   = "client"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrMissingSecret    = errors.New("jwt secret is required")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
)

// Subject is the identity encoded into a token.
type Subject struct {
	AccountID  uuid.UUID
	Role       string
	PharmacyID uuid.UUID
	ClientID   *uuid.UUID
}

// Claims are the JWT claims issued by the service.
type Claims struct {
	AccountID  uuid.UUID  `json:"account_id"`
	Role       string     `json:"role"`
	PharmacyID uuid.UUID  `json:"pharmacy_id"`
	ClientID   *uuid.UUID `json:"client_id,omitempty"`
	TokenType  string     `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateAccessToken(sub Subject) (string, error)
	GenerateRefreshToken(sub Subject) (string, error)
	ValidateToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
}

type Config struct {
	Secret        string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type jwtService struct {
	cfg Config
	now func() time.Time
}

func NewJWTService(cfg Config) (JWTService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.Secret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &jwtService{cfg: cfg, now: time.Now}, nil
}

func (s *jwtService) GenerateAccessToken(sub Subject) (string, error) {
	return s.sign(sub, tokenTypeAccess, s.cfg.Secret, s.cfg.AccessTTL)
}

func (s *jwtService) GenerateRefreshToken(sub Subject) (string, error) {
	return s.sign(sub, tokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *jwtService) ValidateToken(token string) (*Claims, error) {
	return s.parse(token, tokenTypeAccess, s.cfg.Secret)
}

func (s *jwtService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.parse(token, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *jwtService) sign(sub Subject, tokenType, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		AccountID:  sub.AccountID,
		Role:       sub.Role,
		PharmacyID: sub.PharmacyID,
		ClientID:   sub.ClientID,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.AccountID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *jwtService) parse(token, tokenType, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedMethod
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
