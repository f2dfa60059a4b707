package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

type issueRepository struct {
	BaseRepository
}

func NewIssueRepository(base BaseRepository) repository.IssueRepository {
	return &issueRepository{base}
}

const (
	adverseEventColumns = `id, client_id, medication_id, dose_record_id, pharmacy_id, event_type,
		severity, description, occurred_at, created_at`
	correctionColumns = `id, original_dose_id, client_id, medication_id, pharmacy_id,
		correction_type, description, created_at`
)

func flagDose(ctx context.Context, tx *sqlx.Tx, doseID uuid.UUID, column string) error {
	query := `UPDATE dose_records SET ` + column + ` = TRUE, updated_at = NOW() WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, doseID)
	if err != nil {
		return fmt.Errorf("failed to flag dose record: %w", err)
	}
	return mustAffect(res, "dose record")
}

func (r *issueRepository) CreateCorrection(ctx context.Context, c *model.DoseCorrection) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO dose_corrections (` + correctionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			c.ID, c.OriginalDoseID, c.ClientID, c.MedicationID, c.PharmacyID,
			c.CorrectionType, c.Description, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create dose correction: %w", err)
		}
		return flagDose(ctx, tx, c.OriginalDoseID, "has_correction")
	})
}

func (r *issueRepository) CreateAdverseEvent(ctx context.Context, e *model.AdverseEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO adverse_events (` + adverseEventColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err := tx.ExecContext(ctx, query,
			e.ID, e.ClientID, e.MedicationID, e.DoseRecordID, e.PharmacyID,
			e.EventType, e.Severity, e.Description, e.OccurredAt, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create adverse event: %w", err)
		}
		if e.DoseRecordID == nil {
			return nil
		}
		return flagDose(ctx, tx, *e.DoseRecordID, "has_adverse_event")
	})
}

func (r *issueRepository) ListAdverseEventsByClient(ctx context.Context, clientID uuid.UUID) ([]*model.AdverseEvent, error) {
	var out []*model.AdverseEvent
	query := `SELECT ` + adverseEventColumns + ` FROM adverse_events WHERE client_id = $1 ORDER BY occurred_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list adverse events: %w", err)
	}
	return out, nil
}

func (r *issueRepository) ListAdverseEventsByDose(ctx context.Context, doseID uuid.UUID) ([]*model.AdverseEvent, error) {
	var out []*model.AdverseEvent
	query := `SELECT ` + adverseEventColumns + ` FROM adverse_events WHERE dose_record_id = $1 ORDER BY occurred_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, doseID); err != nil {
		return nil, fmt.Errorf("failed to list dose adverse events: %w", err)
	}
	return out, nil
}

func (r *issueRepository) ListCorrectionsByClient(ctx context.Context, clientID uuid.UUID) ([]*model.DoseCorrection, error) {
	var out []*model.DoseCorrection
	query := `SELECT ` + correctionColumns + ` FROM dose_corrections WHERE client_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list dose corrections: %w", err)
	}
	return out, nil
}

func (r *issueRepository) GetCorrectionByDose(ctx context.Context, doseID uuid.UUID) (*model.DoseCorrection, error) {
	var c model.DoseCorrection
	query := `
		SELECT ` + correctionColumns + ` FROM dose_corrections
		WHERE original_dose_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &c, query, doseID); err != nil {
		return nil, notFound(err, "dose correction")
	}
	return &c, nil
}
