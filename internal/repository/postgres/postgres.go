package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/adherence-api/internal/repository"
)

// New returns the sqlx-backed repositories over one pool.
func New(db *sqlx.DB) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Accounts:    NewAccountRepository(base),
		Pharmacies:  NewPharmacyRepository(base),
		Clients:     NewClientRepository(base),
		Medications: NewMedicationRepository(base),
		Doses:       NewDoseRepository(base),
		Issues:      NewIssueRepository(base),
		Vitals:      NewVitalsRepository(base),
		Ads:         NewAdRepository(base),
		Outbox:      NewOutboxRepository(base),
	}
}
