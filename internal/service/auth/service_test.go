package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/pkg/auth"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/phone"
	"github.com/jwalitptl/adherence-api/pkg/security"
)

func setup(t *testing.T) (*Service, *memory.Repositories) {
	t.Helper()
	repos := memory.New()
	jwtSvc, err := auth.NewJWTService(auth.Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	svc := NewService(repos.Accounts, repos.Pharmacies, repos.Clients,
		security.NewBcryptHasher(bcrypt.MinCost), jwtSvc)
	return svc, repos
}

func seedClient(t *testing.T, svc *Service, repos *memory.Repositories, pharmacyID uuid.UUID, phoneNumber, password string) *model.Client {
	t.Helper()
	hash, err := svc.hasher.Hash(password)
	require.NoError(t, err)
	client := &model.Client{PharmacyID: pharmacyID, Name: "Maria", Phone: phone.LocalDigits(phoneNumber)}
	account := &model.Account{Email: phone.SyntheticEmail(phoneNumber), PasswordHash: hash, Role: model.RoleClient}
	require.NoError(t, repos.Accounts.CreateClientAccount(context.Background(), account, client))
	return client
}

func TestRegisterAndLoginPharmacy(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	resp, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{
		Name:     "Farmácia Central",
		Email:    "Central@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "central@example.com", resp.Pharmacy.Email)

	login, err := svc.Login(ctx, "central@example.com", "secret1", model.RolePharmacy)
	require.NoError(t, err)
	assert.Equal(t, resp.Pharmacy.ID, login.Pharmacy.ID)

	claims, err := svc.jwtSvc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Pharmacy.ID, claims.PharmacyID)
	assert.Nil(t, claims.ClientID)

	_, err = svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{
		Name: "Other", Email: "central@example.com", Password: "secret1",
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestRegisterPharmacyValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "A", Email: "bad", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	_, err = svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "A", Email: "a@b.com", Password: "123"})
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestLoginClientByPhone(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()

	ph, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "P", Email: "p@x.com", Password: "secret1"})
	require.NoError(t, err)
	client := seedClient(t, svc, repos, ph.Pharmacy.ID, "(11) 98765-4321", "client1")

	resp, err := svc.Login(ctx, "11987654321", "client1", model.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, client.ID, resp.Client.ID)

	claims, err := svc.jwtSvc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.ClientID)
	assert.Equal(t, client.ID, *claims.ClientID)
	assert.Equal(t, ph.Pharmacy.ID, claims.PharmacyID)

	// right password, wrong portal
	_, err = svc.Login(ctx, "11987654321", "client1", model.RolePharmacy)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestLoginLockout(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "P", Email: "p@x.com", Password: "secret1"})
	require.NoError(t, err)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err = svc.Login(ctx, "p@x.com", "wrong", model.RolePharmacy)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	}

	_, err = svc.Login(ctx, "p@x.com", "secret1", model.RolePharmacy)
	assert.True(t, errors.Is(err, errors.ErrLocked))

	now = now.Add(lockoutDuration + time.Second)
	_, err = svc.Login(ctx, "p@x.com", "secret1", model.RolePharmacy)
	assert.NoError(t, err)
}

func TestLoginUnknownAccount(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Login(context.Background(), "nobody@x.com", "secret1", model.RolePharmacy)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestRefresh(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	resp, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "P", Email: "p@x.com", Password: "secret1"})
	require.NoError(t, err)

	tokens, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = svc.Refresh(ctx, resp.AccessToken)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestMe(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()

	ph, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "P", Email: "p@x.com", Password: "secret1"})
	require.NoError(t, err)
	client := seedClient(t, svc, repos, ph.Pharmacy.ID, "11987654321", "client1")

	profile, err := svc.Me(ctx, &model.Principal{AccountID: ph.Pharmacy.AuthID})
	require.NoError(t, err)
	assert.Equal(t, model.RolePharmacy, profile.Role)

	profile, err = svc.Me(ctx, &model.Principal{AccountID: *client.AuthID})
	require.NoError(t, err)
	assert.Equal(t, model.RoleClient, profile.Role)
	assert.Equal(t, client.ID, profile.Client.ID)
}

func TestUpdatePasswordByPhone(t *testing.T) {
	svc, repos := setup(t)
	ctx := context.Background()

	ph, err := svc.RegisterPharmacy(ctx, &model.RegisterPharmacyRequest{Name: "P", Email: "p@x.com", Password: "secret1"})
	require.NoError(t, err)
	seedClient(t, svc, repos, ph.Pharmacy.ID, "11987654321", "client1")

	require.NoError(t, svc.UpdatePasswordByPhone(ctx, "(11) 98765-4321", "newpass"))

	_, err = svc.Login(ctx, "11987654321", "newpass", model.RoleClient)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		phone    string
		password string
		code     errors.ErrorCode
	}{
		{"short phone", "1198765", "newpass", errors.ErrBadRequest},
		{"short password", "11987654321", "123", errors.ErrBadRequest},
		{"unknown client", "11911112222", "newpass", errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpdatePasswordByPhone(ctx, tt.phone, tt.password)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}
