package pharmacy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

func TestUpdate(t *testing.T) {
	repos := memory.New()
	ctx := context.Background()
	p := &model.Pharmacy{Name: "Old", Email: "old@x.com"}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx,
		&model.Account{Email: "old@x.com", Role: model.RolePharmacy}, p))

	svc := NewService(repos.Pharmacies)

	updated, err := svc.Update(ctx, p.ID, &model.UpdatePharmacyRequest{
		Name:    " New Name ",
		Email:   "NEW@x.com",
		Phone:   "(11) 3333-4444",
		Address: "Rua A, 10",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new@x.com", updated.Email)
	assert.Equal(t, "1133334444", updated.Phone)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rua A, 10", got.Address)

	_, err = svc.Update(ctx, p.ID, &model.UpdatePharmacyRequest{Name: "X", Email: "nope"})
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
