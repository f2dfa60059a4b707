package postgres

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/migrate"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/errors"
)

// testDB migrates a throwaway schema on the database named by
// ADHERENCE_TEST_DATABASE_URL (postgres:// URL form).
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("ADHERENCE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ADHERENCE_TEST_DATABASE_URL not set")
	}

	admin, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	schema := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	admin.MustExec("CREATE SCHEMA " + schema)
	t.Cleanup(func() {
		admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		admin.Close()
	})

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sqlx.Connect("postgres", dsn+sep+"search_path="+schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrations, err := migrate.Load(os.DirFS("../../../migrations"))
	require.NoError(t, err)
	for _, m := range migrations {
		_, err := db.Exec(m.SQL)
		require.NoError(t, err, m.Name)
	}
	return db
}

func seedClient(t *testing.T, repos *repository.Repositories, phone string) (*model.Pharmacy, *model.Client) {
	t.Helper()
	ctx := context.Background()
	p := &model.Pharmacy{Name: "P", Email: "p@x.com"}
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx,
		&model.Account{Email: uuid.NewString() + "@x.com", PasswordHash: "h", Role: model.RolePharmacy}, p))
	c := &model.Client{PharmacyID: p.ID, Name: "Ana", Phone: phone}
	require.NoError(t, repos.Accounts.CreateClientAccount(ctx,
		&model.Account{Email: "phone_55" + phone + "@system.local", PasswordHash: "h", Role: model.RoleClient}, c))
	return p, c
}

func TestClientUpdateWithLoginRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := New(testDB(t))
	_, c := seedClient(t, repos, "11987654321")
	require.NoError(t, repos.Accounts.CreatePharmacyAccount(ctx,
		&model.Account{Email: "phone_5521999998888@system.local", PasswordHash: "h", Role: model.RolePharmacy},
		&model.Pharmacy{Name: "Q", Email: "q@x.com"}))

	changed := *c
	changed.Phone = "21999998888"
	err := repos.Clients.UpdateWithLogin(ctx, &changed, "phone_5521999998888@system.local")
	assert.True(t, errors.Is(err, errors.ErrConflict))

	stored, err := repos.Clients.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "11987654321", stored.Phone)
	account, err := repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	assert.Equal(t, "phone_5511987654321@system.local", account.Email)

	changed.Phone = "21912345678"
	require.NoError(t, repos.Clients.UpdateWithLogin(ctx, &changed, "phone_5521912345678@system.local"))
	account, err = repos.Accounts.Get(ctx, *c.AuthID)
	require.NoError(t, err)
	assert.Equal(t, "phone_5521912345678@system.local", account.Email)
}

func TestDoseSlotsStayUnique(t *testing.T) {
	ctx := context.Background()
	repos := New(testDB(t))
	p, c := seedClient(t, repos, "11987654321")

	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := morning.Add(12 * time.Hour)
	slot := func(at time.Time) *model.DoseRecord {
		return &model.DoseRecord{ScheduledTime: at, Status: model.DoseStatusPending}
	}
	med := &model.Medication{
		PharmacyID: p.ID, ClientID: c.ID, Name: "Losartana", Dosage: "50mg",
		Schedules: "08:00,20:00", TreatmentDurationDays: 1, StartDate: morning,
		IsActive: true, RecurrenceType: model.RecurrenceContinuous,
	}
	require.NoError(t, repos.Medications.CreateWithDoses(ctx, med, []*model.DoseRecord{slot(morning), slot(evening)}))

	doses, err := repos.Doses.ListByMedication(ctx, med.ID)
	require.NoError(t, err)
	require.Len(t, doses, 2)
	_, err = repos.Doses.UpdateStatus(ctx, doses[1].ID, model.DoseStatusTaken, &evening)
	require.NoError(t, err)

	// regenerating over a recorded slot keeps the recorded dose only
	med.Schedules = "08:00,20:00,22:00"
	require.NoError(t, repos.Medications.Update(ctx, med, morning.Add(-time.Hour),
		[]*model.DoseRecord{slot(morning), slot(evening), slot(evening.Add(2 * time.Hour))}))
	doses, err = repos.Doses.ListByMedication(ctx, med.ID)
	require.NoError(t, err)
	require.Len(t, doses, 3)
	assert.Equal(t, model.DoseStatusTaken, doses[1].Status)

	err = repos.Doses.CreateTaken(ctx, &model.DoseRecord{
		MedicationID: med.ID, PharmacyID: p.ID, ClientID: c.ID, ScheduledTime: evening, ActualTime: &evening,
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestOutboxReclaimsStaleClaims(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repos := New(db)

	ev := &model.OutboxEvent{EventType: model.EventAdsChanged, Topic: "ads:x", Payload: json.RawMessage(`{}`)}
	require.NoError(t, repos.Outbox.Create(ctx, ev))

	claimed, err := repos.Outbox.GetPendingEventsWithLock(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	claimed, err = repos.Outbox.GetPendingEventsWithLock(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	db.MustExec(`UPDATE outbox_events SET updated_at = NOW() - interval '2 minutes' WHERE id = $1`, ev.ID)
	claimed, err = repos.Outbox.GetPendingEventsWithLock(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, ev.ID, claimed[0].ID)
}
