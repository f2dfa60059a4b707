package medication

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/internal/service/event"
	"github.com/jwalitptl/adherence-api/pkg/errors"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

type fixture struct {
	svc      *Service
	repos    *memory.Repositories
	pharmacy *model.Principal
	client   *model.Principal
	clientID uuid.UUID
	now      time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.New()

	p := &model.Pharmacy{Name: "P", Email: "p@x.com"}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx, &model.Account{Email: "p@x.com", Role: model.RolePharmacy}, p))
	c := &model.Client{PharmacyID: p.ID, Name: "Ana", Phone: "11987654321"}
	require.NoError(t, repos.Accounts.CreateClientAccount(ctx, &model.Account{Email: "c@x.com", Role: model.RoleClient}, c))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repos.Medications, repos.Clients, event.NewOutboxRecorder(repos.Outbox), metrics.NewNop(), time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{
		svc:      svc,
		repos:    repos,
		pharmacy: &model.Principal{Role: model.RolePharmacy, PharmacyID: p.ID},
		client:   &model.Principal{Role: model.RoleClient, PharmacyID: p.ID, ClientID: &c.ID},
		clientID: c.ID,
		now:      now,
	}
}

func intPtr(v int) *int { return &v }

func TestCreateForClient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	med, err := f.svc.CreateForClient(ctx, f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name:                  "Losartana",
		Dosage:                "50",
		Schedules:             []string{"20:00", "08:00", ""},
		TotalQuantity:         intPtr(60),
		TreatmentDurationDays: 3,
		StartDate:             "2026-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "50mg", med.Dosage)
	assert.Equal(t, "08:00, 20:00", med.Schedules)
	require.NotNil(t, med.RemainingDoses)
	assert.Equal(t, 60, *med.RemainingDoses)
	assert.Equal(t, model.RecurrenceContinuous, med.RecurrenceType)

	doses := f.repos.DB.DosesOf(med.ID)
	require.Len(t, doses, 6)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), doses[0].ScheduledTime.UTC())
	assert.Equal(t, time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC), doses[5].ScheduledTime.UTC())
	for _, d := range doses {
		assert.Equal(t, model.DoseStatusPending, d.Status)
		assert.Equal(t, f.clientID, d.ClientID)
	}

	events := f.repos.DB.OutboxEvents()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventMedicationsChanged, events[0].EventType)
}

func TestCreateForClientValidation(t *testing.T) {
	f := setup(t)
	valid := func() *model.PrescribeMedicationRequest {
		return &model.PrescribeMedicationRequest{
			Name: "Losartana", Dosage: "50", Schedules: []string{"08:00"}, TreatmentDurationDays: 7,
		}
	}

	tests := []struct {
		name   string
		mutate func(r *model.PrescribeMedicationRequest)
	}{
		{"dosage with letters", func(r *model.PrescribeMedicationRequest) { r.Dosage = "50mg" }},
		{"no schedule", func(r *model.PrescribeMedicationRequest) { r.Schedules = nil }},
		{"bad schedule", func(r *model.PrescribeMedicationRequest) { r.Schedules = []string{"25:00"} }},
		{"zero duration", func(r *model.PrescribeMedicationRequest) { r.TreatmentDurationDays = 0 }},
		{"bad custom date", func(r *model.PrescribeMedicationRequest) {
			r.RecurrenceType = model.RecurrenceCustom
			r.CustomDates = []string{"2026-02-30"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := f.svc.CreateForClient(context.Background(), f.pharmacy.PharmacyID, f.clientID, req)
			assert.True(t, errors.Is(err, errors.ErrBadRequest), "got %v", err)
		})
	}

	_, err := f.svc.CreateForClient(context.Background(), uuid.New(), f.clientID, valid())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCreatePRN(t *testing.T) {
	f := setup(t)

	med, err := f.svc.CreateForClient(context.Background(), f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name:                  "Dipirona",
		Dosage:                "500",
		DosageUnit:            "mg",
		RecurrenceType:        model.RecurrenceCustom,
		TreatmentDurationDays: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, f.repos.DB.DosesOf(med.ID))
}

func TestCreateCustomDates(t *testing.T) {
	f := setup(t)

	med, err := f.svc.CreateForClient(context.Background(), f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name:                  "Vitamina D",
		Dosage:                "7000",
		DosageUnit:            "UI",
		Schedules:             []string{"09:00"},
		RecurrenceType:        model.RecurrenceCustom,
		CustomDates:           []string{"2026-03-20", "2026-03-13", "2026-03-13"},
		TreatmentDurationDays: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "7000UI", med.Dosage)
	assert.Equal(t, "2026-03-13, 2026-03-20", med.RecurrenceCustomDates)
	assert.Len(t, f.repos.DB.DosesOf(med.ID), 2)
}

func TestCreateSelfAppendsUnit(t *testing.T) {
	f := setup(t)

	tests := []struct {
		dosage string
		want   string
	}{
		{"500", "500mg"},
		{"1 comprimido", "1 comprimido"},
		{"10 ML", "10 ML"},
	}
	for _, tt := range tests {
		t.Run(tt.dosage, func(t *testing.T) {
			med, err := f.svc.CreateSelf(context.Background(), f.client, &model.SelfMedicationRequest{
				Name: "Omeprazol", Dosage: tt.dosage, Schedules: []string{"07:00"}, TreatmentDurationDays: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, med.Dosage)
			assert.Equal(t, f.pharmacy.PharmacyID, med.PharmacyID)
		})
	}

	_, err := f.svc.CreateSelf(context.Background(), f.pharmacy, &model.SelfMedicationRequest{
		Name: "X", Dosage: "1", Schedules: []string{"07:00"}, TreatmentDurationDays: 1,
	})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestUpdateRegeneratesFutureDoses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	med, err := f.svc.CreateForClient(ctx, f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name: "Losartana", Dosage: "50", Schedules: []string{"08:00", "20:00"},
		TreatmentDurationDays: 2, StartDate: "2026-03-10",
	})
	require.NoError(t, err)
	require.Len(t, f.repos.DB.DosesOf(med.ID), 4)

	// 08:00 on the 10th is in the past relative to noon and must survive
	notes := "after lunch"
	updated, err := f.svc.Update(ctx, f.client, med.ID, &model.UpdateMedicationRequest{
		Name: "Losartana", Dosage: "50mg", Schedules: []string{"13:00"}, Notes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, "13:00", updated.Schedules)

	var times []string
	for _, d := range f.repos.DB.DosesOf(med.ID) {
		times = append(times, d.ScheduledTime.UTC().Format("02 15:04"))
	}
	assert.Equal(t, []string{"10 08:00", "10 13:00", "11 13:00"}, times)
}

func TestUpdateKeepsRecordedSlots(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	med, err := f.svc.CreateForClient(ctx, f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name: "Losartana", Dosage: "50", Schedules: []string{"08:00", "20:00"},
		TreatmentDurationDays: 1, StartDate: "2026-03-10",
	})
	require.NoError(t, err)

	var evening model.DoseRecord
	for _, d := range f.repos.DB.DosesOf(med.ID) {
		if d.ScheduledTime.Hour() == 20 {
			evening = d
		}
	}
	takenAt := f.now
	_, err = f.repos.Doses.UpdateStatus(ctx, evening.ID, model.DoseStatusTaken, &takenAt)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.client, med.ID, &model.UpdateMedicationRequest{
		Name: "Losartana", Dosage: "50mg", Schedules: []string{"08:00", "20:00", "22:00"},
	})
	require.NoError(t, err)

	perSlot := map[string][]string{}
	for _, d := range f.repos.DB.DosesOf(med.ID) {
		key := d.ScheduledTime.UTC().Format("15:04")
		perSlot[key] = append(perSlot[key], d.Status)
	}
	assert.Equal(t, map[string][]string{
		"08:00": {model.DoseStatusPending},
		"20:00": {model.DoseStatusTaken},
		"22:00": {model.DoseStatusPending},
	}, perSlot)
}

func TestDeactivateRemovesFutureDoses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	med, err := f.svc.CreateForClient(ctx, f.pharmacy.PharmacyID, f.clientID, &model.PrescribeMedicationRequest{
		Name: "Losartana", Dosage: "50", Schedules: []string{"08:00"},
		TreatmentDurationDays: 3, StartDate: "2026-03-10",
	})
	require.NoError(t, err)

	stranger := &model.Principal{Role: model.RolePharmacy, PharmacyID: uuid.New()}
	assert.True(t, errors.Is(f.svc.Deactivate(ctx, stranger, med.ID), errors.ErrNotFound))

	require.NoError(t, f.svc.Deactivate(ctx, f.pharmacy, med.ID))
	got, err := f.repos.Medications.Get(ctx, med.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Len(t, f.repos.DB.DosesOf(med.ID), 1)
}

func TestListAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	med, err := f.svc.CreateSelf(ctx, f.client, &model.SelfMedicationRequest{
		Name: "Omeprazol", Dosage: "20", Schedules: []string{"07:00"}, TreatmentDurationDays: 2,
	})
	require.NoError(t, err)

	meds, err := f.svc.List(ctx, f.pharmacy, f.clientID)
	require.NoError(t, err)
	require.Len(t, meds, 1)

	require.NoError(t, f.svc.Delete(ctx, f.client, med.ID))
	assert.Empty(t, f.repos.DB.DosesOf(med.ID))

	meds, err = f.svc.List(ctx, f.client, f.clientID)
	require.NoError(t, err)
	assert.Empty(t, meds)
}
