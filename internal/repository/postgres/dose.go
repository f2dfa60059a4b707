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

type doseRepository struct {
	BaseRepository
}

func NewDoseRepository(base BaseRepository) repository.DoseRepository {
	return &doseRepository{base}
}

const doseSelect = `
	SELECT d.id, d.medication_id, d.pharmacy_id, d.client_id, d.scheduled_time, d.actual_time,
		d.status, d.has_adverse_event, d.has_correction, d.created_at, d.updated_at,
		m.name AS medication_name, m.dosage AS medication_dosage, c.name AS client_name
	FROM dose_records d
	JOIN medications m ON m.id = d.medication_id
	JOIN clients c ON c.id = d.client_id
`

func (r *doseRepository) Get(ctx context.Context, id uuid.UUID) (*model.DoseRecord, error) {
	return getDose(ctx, r.db, id)
}

func getDose(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*model.DoseRecord, error) {
	var d model.DoseRecord
	if err := sqlx.GetContext(ctx, q, &d, doseSelect+` WHERE d.id = $1`, id); err != nil {
		return nil, notFound(err, "dose record")
	}
	return &d, nil
}

func (r *doseRepository) ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	var out []*model.DoseRecord
	query := doseSelect + `
		WHERE d.client_id = $1 AND d.scheduled_time >= $2 AND d.scheduled_time < $3
		ORDER BY d.scheduled_time ASC
	`
	if err := r.db.SelectContext(ctx, &out, query, clientID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list client doses: %w", err)
	}
	return out, nil
}

func (r *doseRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, from, to time.Time) ([]*model.DoseRecord, error) {
	var out []*model.DoseRecord
	query := doseSelect + `
		WHERE d.pharmacy_id = $1 AND d.scheduled_time >= $2 AND d.scheduled_time < $3
		ORDER BY d.scheduled_time ASC
	`
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list pharmacy doses: %w", err)
	}
	return out, nil
}

func (r *doseRepository) ListByMedication(ctx context.Context, medicationID uuid.UUID) ([]*model.DoseRecord, error) {
	var out []*model.DoseRecord
	query := doseSelect + ` WHERE d.medication_id = $1 ORDER BY d.scheduled_time ASC`
	if err := r.db.SelectContext(ctx, &out, query, medicationID); err != nil {
		return nil, fmt.Errorf("failed to list medication doses: %w", err)
	}
	return out, nil
}

func adjustRemaining(ctx context.Context, tx *sqlx.Tx, medicationID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	query := `
		UPDATE medications
		SET remaining_doses = GREATEST(remaining_doses + $1, 0), updated_at = NOW()
		WHERE id = $2 AND remaining_doses IS NOT NULL
	`
	if _, err := tx.ExecContext(ctx, query, delta, medicationID); err != nil {
		return fmt.Errorf("failed to update remaining doses: %w", err)
	}
	return nil
}

func (r *doseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actualTime *time.Time) (*model.DoseRecord, error) {
	var updated *model.DoseRecord
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			Status       string    `db:"status"`
			MedicationID uuid.UUID `db:"medication_id"`
		}
		err := tx.GetContext(ctx, &current, `SELECT status, medication_id FROM dose_records WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err, "dose record")
		}

		query := `UPDATE dose_records SET status = $1, actual_time = $2, updated_at = NOW() WHERE id = $3`
		if _, err := tx.ExecContext(ctx, query, status, actualTime, id); err != nil {
			return fmt.Errorf("failed to update dose status: %w", err)
		}
		if err := adjustRemaining(ctx, tx, current.MedicationID, model.RemainingDelta(current.Status, status)); err != nil {
			return err
		}

		updated, err = getDose(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *doseRepository) CreateTaken(ctx context.Context, dose *model.DoseRecord) error {
	if dose.ID == uuid.Nil {
		dose.ID = uuid.New()
	}
	now := time.Now()
	dose.Status = model.DoseStatusTaken
	dose.CreatedAt, dose.UpdatedAt = now, now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO dose_records (
				id, medication_id, pharmacy_id, client_id, scheduled_time, actual_time,
				status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, query,
			dose.ID,
			dose.MedicationID,
			dose.PharmacyID,
			dose.ClientID,
			dose.ScheduledTime,
			dose.ActualTime,
			dose.Status,
			dose.CreatedAt,
			dose.UpdatedAt,
		)
		if err != nil {
			return conflict(err, "a dose is already recorded at this time", "create dose record")
		}
		return adjustRemaining(ctx, tx, dose.MedicationID, -1)
	})
}

func (r *doseRepository) MarkMissed(ctx context.Context, clientID *uuid.UUID, before time.Time) (int64, error) {
	query := `
		UPDATE dose_records
		SET status = 'skipped', updated_at = NOW()
		WHERE status = 'pending' AND scheduled_time < $1
			AND ($2::uuid IS NULL OR client_id = $2)
	`
	res, err := r.db.ExecContext(ctx, query, before, clientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed doses: %w", err)
	}
	return res.RowsAffected()
}
