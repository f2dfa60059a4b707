package vitals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestClassifyBP(t *testing.T) {
	tests := []struct {
		sys, dia int
		want     string
	}{
		{115, 75, BPNormal},
		{125, 79, BPElevated},
		{135, 85, BPStage1},
		{150, 85, BPStage1},
		{150, 95, BPStage2},
		{185, 110, BPStage2},
		{185, 125, BPCrisis},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBP(tt.sys, tt.dia), "%d/%d", tt.sys, tt.dia)
	}
}

func TestClassifyGlucose(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{65, GlucoseLow},
		{70, GlucoseNormal},
		{99, GlucoseNormal},
		{100, GlucosePre},
		{125, GlucosePre},
		{199, GlucoseDiabetes},
		{200, GlucoseHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyGlucose(tt.value), "%d", tt.value)
	}
}

func setup(t *testing.T) (*Service, *model.Principal, *model.Principal, uuid.UUID, time.Time) {
	t.Helper()
	ctx := context.Background()
	repos := memory.New()
	p := &model.Pharmacy{Name: "P", Email: "p@x.com"}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx, &model.Account{Email: "p@x.com", Role: model.RolePharmacy}, p))
	c := &model.Client{PharmacyID: p.ID, Name: "Ana", Phone: "11987654321"}
	require.NoError(t, repos.Accounts.CreateClientAccount(ctx, &model.Account{Email: "c@x.com", Role: model.RoleClient}, c))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repos.Vitals, repos.Clients)
	svc.now = func() time.Time { return now }
	return svc,
		&model.Principal{Role: model.RolePharmacy, PharmacyID: p.ID},
		&model.Principal{Role: model.RoleClient, PharmacyID: p.ID, ClientID: &c.ID},
		c.ID, now
}

func TestAddValidation(t *testing.T) {
	svc, _, self, clientID, _ := setup(t)

	tests := []struct {
		name string
		req  model.AddVitalSignRequest
	}{
		{"empty", model.AddVitalSignRequest{}},
		{"systolic only", model.AddVitalSignRequest{Systolic: intPtr(120)}},
		{"systolic low", model.AddVitalSignRequest{Systolic: intPtr(40), Diastolic: intPtr(80)}},
		{"diastolic high", model.AddVitalSignRequest{Systolic: intPtr(120), Diastolic: intPtr(210)}},
		{"glucose high", model.AddVitalSignRequest{Glucose: intPtr(601)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), self, clientID, &tt.req)
			assert.True(t, errors.Is(err, errors.ErrBadRequest), "got %v", err)
		})
	}
}

func TestAddAndList(t *testing.T) {
	svc, pharmacy, self, clientID, now := setup(t)
	ctx := context.Background()

	add := func(p *model.Principal, age time.Duration, sys, dia, glu *int) {
		at := now.Add(-age)
		_, err := svc.Add(ctx, p, clientID, &model.AddVitalSignRequest{MeasuredAt: &at, Systolic: sys, Diastolic: dia, Glucose: glu})
		require.NoError(t, err)
	}
	add(self, time.Hour, intPtr(120), intPtr(80), nil)
	add(pharmacy, 2*24*time.Hour, intPtr(131), intPtr(85), intPtr(110))
	add(self, 3*24*time.Hour, nil, nil, intPtr(90))
	add(self, 20*24*time.Hour, intPtr(160), intPtr(100), nil)

	history, err := svc.List(ctx, self, clientID, FilterAll, RangeWeek)
	require.NoError(t, err)
	require.Len(t, history.Readings, 3)
	assert.Equal(t, BPStage1, history.Readings[0].BPClass)
	assert.Equal(t, 2, history.Averages.BPCount)
	assert.Equal(t, 126, *history.Averages.Systolic)
	assert.Equal(t, 83, *history.Averages.Diastolic)
	assert.Equal(t, 100, *history.Averages.Glucose)

	history, err = svc.List(ctx, pharmacy, clientID, FilterBP, RangeMonth)
	require.NoError(t, err)
	assert.Len(t, history.Readings, 3)
	assert.Equal(t, 3, history.Averages.BPCount)

	history, err = svc.List(ctx, self, clientID, FilterGlucose, RangeAll)
	require.NoError(t, err)
	require.Len(t, history.Readings, 2)
	assert.Equal(t, GlucosePre, history.Readings[0].GlucoseClass)

	_, err = svc.List(ctx, self, clientID, "weight", RangeAll)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestDelete(t *testing.T) {
	svc, _, self, clientID, _ := setup(t)
	ctx := context.Background()

	r, err := svc.Add(ctx, self, clientID, &model.AddVitalSignRequest{Glucose: intPtr(95)})
	require.NoError(t, err)

	other := uuid.New()
	err = svc.Delete(ctx, &model.Principal{Role: model.RoleClient, ClientID: &other}, r.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, self, r.ID))
	history, err := svc.List(ctx, self, clientID, FilterAll, RangeAll)
	require.NoError(t, err)
	assert.Empty(t, history.Readings)
}
