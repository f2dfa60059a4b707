package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/email"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository/memory"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/mailer"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

type fakeDoses struct {
	n   int64
	err error
}

func (f *fakeDoses) MarkAllMissed(context.Context) (int64, error) { return f.n, f.err }

type fakeReports map[uuid.UUID][]*model.LowStockRow

func (f fakeReports) LowStock(_ context.Context, pharmacyID uuid.UUID, _ int) ([]*model.LowStockRow, error) {
	return f[pharmacyID], nil
}

type fakeCleaner struct{ calls int }

func (f *fakeCleaner) Run(context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

func addPharmacy(t *testing.T, repos *memory.Repositories, email string) *model.Pharmacy {
	t.Helper()
	p := &model.Pharmacy{Name: "Farmácia " + email, Email: email}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(context.Background(),
		&model.Account{Email: uuid.NewString() + "@x.com", Role: model.RolePharmacy}, p))
	return p
}

func TestSendLowStockDigests(t *testing.T) {
	ctx := context.Background()
	repos := memory.New()
	withRows := addPharmacy(t, repos, "a@x.com")
	addPharmacy(t, repos, "b@x.com")
	noEmail := addPharmacy(t, repos, "")

	row := &model.LowStockRow{MedicationName: "Losartana", ClientName: "Ana", Remaining: 2}
	reports := fakeReports{withRows.ID: {row}, noEmail.ID: {row}}

	outbox := &mailer.Outbox{}
	m := metrics.NewNop()
	jobs := NewJobs(JobsConfig{}, &fakeDoses{}, repos.Pharmacies, reports, email.NewService(outbox), &fakeCleaner{}, logger.Nop(), m)

	require.NoError(t, jobs.SendLowStockDigests(ctx))
	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"a@x.com"}, sent[0].To)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsSent.WithLabelValues("low_stock_digest", "success")))

	outbox.Err = errors.New("smtp down")
	assert.Error(t, jobs.SendLowStockDigests(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsSent.WithLabelValues("low_stock_digest", "error")))
}

func TestDigestDisabledWithoutMailer(t *testing.T) {
	repos := memory.New()
	addPharmacy(t, repos, "a@x.com")
	jobs := NewJobs(JobsConfig{LowStockDigest: "0 8 * * *"}, &fakeDoses{}, repos.Pharmacies, fakeReports{}, nil, &fakeCleaner{}, logger.Nop(), metrics.NewNop())

	assert.NoError(t, jobs.SendLowStockDigests(context.Background()))
	require.NoError(t, jobs.Schedule(context.Background()))
	assert.Empty(t, jobs.cron.Entries())
}

func TestSchedule(t *testing.T) {
	jobs := NewJobs(JobsConfig{
		MissedDoseSweep: "*/15 * * * *",
		LowStockDigest:  "0 8 * * *",
		OutboxCleanup:   "0 3 * * *",
	}, &fakeDoses{}, memory.New().Pharmacies, fakeReports{}, email.NewService(&mailer.Outbox{}), &fakeCleaner{}, logger.Nop(), metrics.NewNop())

	require.NoError(t, jobs.Schedule(context.Background()))
	assert.Len(t, jobs.cron.Entries(), 3)

	bad := NewJobs(JobsConfig{MissedDoseSweep: "every minute"}, &fakeDoses{}, nil, nil, nil, nil, logger.Nop(), metrics.NewNop())
	assert.Error(t, bad.Schedule(context.Background()))
}

func TestSweepAndCleanup(t *testing.T) {
	ctx := context.Background()
	cleaner := &fakeCleaner{}
	jobs := NewJobs(JobsConfig{}, &fakeDoses{n: 4}, nil, nil, nil, cleaner, logger.Nop(), metrics.NewNop())

	assert.NoError(t, jobs.SweepMissedDoses(ctx))
	assert.NoError(t, jobs.CleanupOutbox(ctx))
	assert.Equal(t, 1, cleaner.calls)

	failing := NewJobs(JobsConfig{}, &fakeDoses{err: errors.New("db down")}, nil, nil, nil, cleaner, logger.Nop(), metrics.NewNop())
	assert.Error(t, failing.SweepMissedDoses(ctx))
}
