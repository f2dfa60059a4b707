package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/auth"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
	"github.com/jwalitptl/adherence-api/pkg/security"
)

const (
	maxLoginAttempts      = 5
	lockoutDuration       = 15 * time.Minute
	passwordUpdateTimeout = 15 * time.Second
)

var errInvalidCredentials = errors.Unauthorized("invalid credentials")

type AuthService interface {
	RegisterPharmacy(ctx context.Context, req *model.RegisterPharmacyRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, identifier, password, role string) (*model.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Me(ctx context.Context, principal *model.Principal) (*model.Profile, error)
	UpdatePasswordByPhone(ctx context.Context, phoneNumber, newPassword string) error
}

type Service struct {
	accountRepo  repository.AccountRepository
	pharmacyRepo repository.PharmacyRepository
	clientRepo   repository.ClientRepository
	hasher       security.PasswordHasher
	jwtSvc       auth.JWTService
	now          func() time.Time
}

func NewService(
	accountRepo repository.AccountRepository,
	pharmacyRepo repository.PharmacyRepository,
	clientRepo repository.ClientRepository,
	hasher security.PasswordHasher,
	jwtSvc auth.JWTService,
) *Service {
	return &Service{
		accountRepo:  accountRepo,
		pharmacyRepo: pharmacyRepo,
		clientRepo:   clientRepo,
		hasher:       hasher,
		jwtSvc:       jwtSvc,
		now:          time.Now,
	}
}

func (s *Service) RegisterPharmacy(ctx context.Context, req *model.RegisterPharmacyRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, errors.BadRequest("name is required", nil)
	}
	if !phone.IsValidEmail(email) {
		return nil, errors.BadRequest("invalid email", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, passwordError(err)
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RolePharmacy,
	}
	pharmacy := &model.Pharmacy{
		Name:    name,
		Email:   email,
		Phone:   phone.Digits(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.accountRepo.CreatePharmacyAccount(ctx, account, pharmacy); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(auth.Subject{
		AccountID:  account.ID,
		Role:       auth.RolePharmacy,
		PharmacyID: pharmacy.ID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("pharmacy_id", pharmacy.ID.String()).Msg("Pharmacy registered")
	return &model.AuthResponse{TokenResponse: *tokens, Role: model.RolePharmacy, Pharmacy: pharmacy}, nil
}

// Login authenticates a phone-or-email identifier for the given role.
func (s *Service) Login(ctx context.Context, identifier, password, role string) (*model.AuthResponse, error) {
	account, err := s.accountRepo.GetByEmail(ctx, phone.AuthEmail(identifier))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	now := s.now()
	if account.IsLocked(now) {
		return nil, errors.Locked("account is locked, please try again later")
	}
	if account.LockedUntil != nil {
		account.LockedUntil = nil
		account.LoginAttempts = 0
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		account.LoginAttempts++
		if account.LoginAttempts >= maxLoginAttempts {
			until := now.Add(lockoutDuration)
			account.LockedUntil = &until
			log.Warn().Str("account_id", account.ID.String()).Msg("Account locked after failed logins")
		}
		if err := s.accountRepo.UpdateLoginState(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to update login attempts: %w", err)
		}
		return nil, errInvalidCredentials
	}

	if account.Role != role {
		return nil, errInvalidCredentials
	}

	account.LoginAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
	if err := s.accountRepo.UpdateLoginState(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update login state: %w", err)
	}

	resp := &model.AuthResponse{Role: account.Role}
	sub := auth.Subject{AccountID: account.ID, Role: account.Role}
	switch account.Role {
	case model.RolePharmacy:
		p, err := s.pharmacyRepo.GetByAuthID(ctx, account.ID)
		if err != nil {
			return nil, profileError(err)
		}
		sub.PharmacyID = p.ID
		resp.Pharmacy = p
	case model.RoleClient:
		c, err := s.clientRepo.GetByAuthID(ctx, account.ID)
		if err != nil {
			return nil, profileError(err)
		}
		sub.PharmacyID = c.PharmacyID
		sub.ClientID = &c.ID
		resp.Client = c
	}

	tokens, err := s.issueTokens(sub)
	if err != nil {
		return nil, err
	}
	resp.TokenResponse = *tokens
	return resp, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid refresh token")
	}
	if _, err := s.accountRepo.Get(ctx, claims.AccountID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	return s.issueTokens(auth.Subject{
		AccountID:  claims.AccountID,
		Role:       claims.Role,
		PharmacyID: claims.PharmacyID,
		ClientID:   claims.ClientID,
	})
}

// Me returns the caller's pharmacy profile, or its client profile when the
// account has no pharmacy.
func (s *Service) Me(ctx context.Context, principal *model.Principal) (*model.Profile, error) {
	p, err := s.pharmacyRepo.GetByAuthID(ctx, principal.AccountID)
	if err == nil {
		return &model.Profile{Role: model.RolePharmacy, Pharmacy: p}, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	c, err := s.clientRepo.GetByAuthID(ctx, principal.AccountID)
	if err != nil {
		return nil, profileError(err)
	}
	return &model.Profile{Role: model.RoleClient, Client: c}, nil
}

// UpdatePasswordByPhone resets the password of the client owning phone.
func (s *Service) UpdatePasswordByPhone(ctx context.Context, phoneNumber, newPassword string) error {
	digits := phone.Digits(phoneNumber)
	if !phone.IsValidLocal(digits) {
		return errors.BadRequest("invalid phone", nil)
	}
	if len(newPassword) < security.MinPasswordLen {
		return errors.BadRequest("password too short", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, passwordUpdateTimeout)
	defer cancel()

	client, err := s.clientRepo.GetByPhone(ctx, digits)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.NotFound("client", nil)
		}
		return timeoutOr(ctx, err)
	}
	if client.AuthID == nil {
		return &errors.AppError{Code: errors.ErrNotFound, Message: "client has no login"}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return passwordError(err)
	}
	if err := s.accountRepo.UpdatePassword(ctx, *client.AuthID, hash); err != nil {
		return timeoutOr(ctx, err)
	}

	log.Info().Str("client_id", client.ID.String()).Msg("Client password updated")
	return nil
}

func (s *Service) issueTokens(sub auth.Subject) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// Principal converts validated access-token claims.
func Principal(claims *auth.Claims) *model.Principal {
	return &model.Principal{
		AccountID:  claims.AccountID,
		Role:       claims.Role,
		PharmacyID: claims.PharmacyID,
		ClientID:   claims.ClientID,
	}
}

func passwordError(err error) error {
	if stderrors.Is(err, security.ErrPasswordTooShort) {
		return errors.BadRequest("password too short", err)
	}
	return fmt.Errorf("failed to hash password: %w", err)
}

func profileError(err error) error {
	if errors.Is(err, errors.ErrNotFound) {
		return errors.Unauthorized("profile not found")
	}
	return fmt.Errorf("failed to load profile: %w", err)
}

func timeoutOr(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Timeout("password update timed out", err)
	}
	return fmt.Errorf("failed to update password: %w", err)
}
