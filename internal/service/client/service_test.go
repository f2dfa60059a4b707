package client

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
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/security"
)

func setup(t *testing.T) (*Service, *memory.Repositories, uuid.UUID) {
	t.Helper()
	repos := memory.New()
	p := &model.Pharmacy{Name: "P", Email: "p@x.com"}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(context.Background(),
		&model.Account{Email: "p@x.com", Role: model.RolePharmacy}, p))

	svc := NewService(repos.Clients, repos.Accounts, repos.Doses,
		security.NewBcryptHasher(bcrypt.MinCost), event.NewOutboxRecorder(repos.Outbox), time.UTC)
	return svc, repos, p.ID
}

func validRequest() *model.CreateClientRequest {
	return &model.CreateClientRequest{
		Name:        "Maria Silva",
		Phone:       "+55 (11) 98765-4321",
		Email:       "Maria@Example.com",
		DateOfBirth: "1960-05-02",
		Password:    "secret1",
		MonitorBP:   true,
	}
}

func TestCreate(t *testing.T) {
	svc, repos, pharmacyID := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "11987654321", c.Phone)
	assert.Equal(t, "maria@example.com", c.Email)
	assert.True(t, c.MonitorBP)
	assert.False(t, c.MonitorGlucose)
	require.NotNil(t, c.AuthID)
	require.NotNil(t, c.DateOfBirth)

	account, err := repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	assert.Equal(t, "phone_5511987654321@system.local", account.Email)
	assert.Equal(t, model.RoleClient, account.Role)

	events := repos.DB.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventClientsChanged, events[0].EventType)
	assert.Equal(t, model.PharmacyTopic(pharmacyID), events[0].Topic)

	_, err = svc.Create(ctx, pharmacyID, validRequest())
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCreateValidation(t *testing.T) {
	svc, _, pharmacyID := setup(t)

	tests := []struct {
		name   string
		mutate func(r *model.CreateClientRequest)
	}{
		{"missing name", func(r *model.CreateClientRequest) { r.Name = "  " }},
		{"bad phone", func(r *model.CreateClientRequest) { r.Phone = "12345" }},
		{"bad email", func(r *model.CreateClientRequest) { r.Email = "maria" }},
		{"bad birth date", func(r *model.CreateClientRequest) { r.DateOfBirth = "02/05/1960" }},
		{"short password", func(r *model.CreateClientRequest) { r.Password = "12" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), pharmacyID, req)
			assert.True(t, errors.Is(err, errors.ErrBadRequest), "got %v", err)
		})
	}
}

func TestListWithAdherence(t *testing.T) {
	svc, repos, pharmacyID := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)

	med := &model.Medication{PharmacyID: pharmacyID, ClientID: c.ID, Name: "Losartana", IsActive: true}
	doses := []*model.DoseRecord{
		{ScheduledTime: now.Add(-2 * time.Hour), Status: model.DoseStatusTaken},
		{ScheduledTime: now.Add(-26 * time.Hour), Status: model.DoseStatusTaken},
		{ScheduledTime: now.Add(-50 * time.Hour), Status: model.DoseStatusSkipped},
		{ScheduledTime: now.Add(-30 * 24 * time.Hour), Status: model.DoseStatusSkipped},
	}
	require.NoError(t, repos.Medications.CreateWithDoses(ctx, med, doses))

	items, err := svc.List(ctx, pharmacyID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].DosesTotal)
	assert.Equal(t, 2, items[0].DosesTaken)
	assert.Equal(t, 67, items[0].Adherence7d)
}

func TestUpdateMovesLoginWithPhone(t *testing.T) {
	svc, repos, pharmacyID := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, pharmacyID, c.ID, &model.UpdateClientRequest{
		Name:  "Maria S.",
		Phone: "21912345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "21912345678", updated.Phone)
	assert.Nil(t, updated.DateOfBirth)

	account, err := repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	assert.Equal(t, "phone_5521912345678@system.local", account.Email)

	// another pharmacy cannot see the client
	_, err = svc.Update(ctx, uuid.New(), c.ID, &model.UpdateClientRequest{Name: "X", Phone: "21912345678"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdateDuplicatePhone(t *testing.T) {
	svc, _, pharmacyID := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)
	other := validRequest()
	other.Phone = "21912345678"
	c2, err := svc.Create(ctx, pharmacyID, other)
	require.NoError(t, err)

	_, err = svc.Update(ctx, pharmacyID, c2.ID, &model.UpdateClientRequest{Name: "B", Phone: "11987654321"})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestUpdateLoginEmailTaken(t *testing.T) {
	svc, repos, pharmacyID := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)
	before, err := repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	oldEmail := before.Email

	// an unrelated account already owns the login the new phone maps to
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx,
		&model.Account{Email: "phone_5521999998888@system.local", Role: model.RolePharmacy},
		&model.Pharmacy{Name: "Q", Email: "q@x.com"}))

	_, err = svc.Update(ctx, pharmacyID, c.ID, &model.UpdateClientRequest{
		Name:  "Maria S.",
		Phone: "21999998888",
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))

	stored, err := repos.Clients.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Phone, stored.Phone)
	assert.Equal(t, "Maria Silva", stored.Name)

	account, err := repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	assert.Equal(t, oldEmail, account.Email)
}

func TestDelete(t *testing.T) {
	svc, repos, pharmacyID := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)

	assert.True(t, errors.Is(svc.Delete(ctx, uuid.New(), c.ID), errors.ErrNotFound))
	require.NoError(t, svc.Delete(ctx, pharmacyID, c.ID))

	_, err = repos.Clients.Get(ctx, c.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = repos.Accounts.Get(ctx, *c.AuthID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMonitoring(t *testing.T) {
	svc, _, pharmacyID := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, pharmacyID, validRequest())
	require.NoError(t, err)

	self := &model.Principal{Role: model.RoleClient, PharmacyID: pharmacyID, ClientID: &c.ID}
	_, err = svc.SetMonitoring(ctx, self, c.ID, &model.MonitoringSettings{MonitorGlucose: true})
	require.NoError(t, err)

	pharmacy := &model.Principal{Role: model.RolePharmacy, PharmacyID: pharmacyID}
	got, err := svc.Monitoring(ctx, pharmacy, c.ID)
	require.NoError(t, err)
	assert.False(t, got.MonitorBP)
	assert.True(t, got.MonitorGlucose)

	stranger := uuid.New()
	_, err = svc.Monitoring(ctx, &model.Principal{Role: model.RoleClient, ClientID: &stranger}, c.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
