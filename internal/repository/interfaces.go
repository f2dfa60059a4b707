package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
)

// All repository interfaces in one file
type (
	// AccountRepository handles login accounts. Profile rows are created in
	// the same transaction as their account.
	AccountRepository interface {
		CreatePharmacyAccount(ctx context.Context, account *model.Account, pharmacy *model.Pharmacy) error
		CreateClientAccount(ctx context.Context, account *model.Account, client *model.Client) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		UpdateLoginState(ctx context.Context, account *model.Account) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}

	PharmacyRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error)
		GetByAuthID(ctx context.Context, authID uuid.UUID) (*model.Pharmacy, error)
		Update(ctx context.Context, pharmacy *model.Pharmacy) error
		List(ctx context.Context) ([]*model.Pharmacy, error)
	}

	ClientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
		GetByAuthID(ctx context.Context, authID uuid.UUID) (*model.Client, error)
		GetByPhone(ctx context.Context, phone string) (*model.Client, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Client, error)
		// UpdateWithLogin saves client. A non-empty loginEmail moves the
		// client's login account to that email in the same transaction.
		UpdateWithLogin(ctx context.Context, client *model.Client, loginEmail string) error
		SetMonitoring(ctx context.Context, id uuid.UUID, bp, glucose bool) error
		// Delete removes the client with its medications, doses, issues,
		// vitals and login account.
		Delete(ctx context.Context, id uuid.UUID) error
	}

	MedicationRepository interface {
		CreateWithDoses(ctx context.Context, med *model.Medication, doses []*model.DoseRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Medication, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Medication, error)
		// Update saves med. When doses is non-nil, pending doses scheduled
		// after regenerateAfter are replaced by doses in the same transaction.
		// A dose whose slot (medication, scheduled_time) is already occupied
		// is skipped.
		Update(ctx context.Context, med *model.Medication, regenerateAfter time.Time, doses []*model.DoseRecord) error
		// Deactivate marks the medication inactive and deletes its pending
		// doses scheduled after the given time.
		Deactivate(ctx context.Context, id uuid.UUID, after time.Time) error
		Delete(ctx context.Context, id uuid.UUID) error
		LowStock(ctx context.Context, pharmacyID uuid.UUID, threshold, limit int) ([]*model.LowStockEntry, error)
	}

	DoseRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.DoseRecord, error)
		ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error)
		ListByMedication(ctx context.Context, medicationID uuid.UUID) ([]*model.DoseRecord, error)
		// UpdateStatus changes the status and adjusts the medication's
		// remaining-dose counter in one transaction.
		UpdateStatus(ctx context.Context, id uuid.UUID, status string, actualTime *time.Time) (*model.DoseRecord, error)
		// CreateTaken inserts an already taken dose and decrements the counter.
		CreateTaken(ctx context.Context, dose *model.DoseRecord) error
		// MarkMissed moves pending doses scheduled before the cutoff to
		// skipped. A nil clientID applies to every client.
		MarkMissed(ctx context.Context, clientID *uuid.UUID, before time.Time) (int64, error)
	}

	IssueRepository interface {
		CreateCorrection(ctx context.Context, correction *model.DoseCorrection) error
		CreateAdverseEvent(ctx context.Context, event *model.AdverseEvent) error
		ListAdverseEventsByClient(ctx context.Context, clientID uuid.UUID) ([]*model.AdverseEvent, error)
		ListAdverseEventsByDose(ctx context.Context, doseID uuid.UUID) ([]*model.AdverseEvent, error)
		ListCorrectionsByClient(ctx context.Context, clientID uuid.UUID) ([]*model.DoseCorrection, error)
		GetCorrectionByDose(ctx context.Context, doseID uuid.UUID) (*model.DoseCorrection, error)
	}

	VitalsRepository interface {
		Create(ctx context.Context, vital *model.VitalSign) error
		Get(ctx context.Context, id uuid.UUID) (*model.VitalSign, error)
		// List returns the newest readings first; a zero since means no lower bound.
		List(ctx context.Context, clientID uuid.UUID, since time.Time, limit int) ([]*model.VitalSign, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	AdRepository interface {
		Create(ctx context.Context, ad *model.PharmacyAd) error
		Get(ctx context.Context, id uuid.UUID) (*model.PharmacyAd, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error)
		ListActiveByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock claims up to limit due events by moving
		// them to processing; concurrent callers never receive the same row.
		// Events claimed more than staleAfter ago are claimed again.
		GetPendingEventsWithLock(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Accounts    AccountRepository
	Pharmacies  PharmacyRepository
	Clients     ClientRepository
	Medications MedicationRepository
	Doses       DoseRepository
	Issues      IssueRepository
	Vitals      VitalsRepository
	Ads         AdRepository
	Outbox      OutboxRepository
}
