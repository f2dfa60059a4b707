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

// doseInsertChunk keeps batched inserts well under the bind parameter limit.
const doseInsertChunk = 500

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

const medicationColumns = `id, pharmacy_id, client_id, name, dosage, schedules, total_quantity,
	remaining_doses, treatment_duration_days, start_date, notes, is_active, recurrence_type,
	recurrence_custom_dates, created_at, updated_at`

// insertDoses leaves slots that already hold a dose untouched, so a
// regenerated schedule never duplicates a taken or skipped dose.
func insertDoses(ctx context.Context, tx *sqlx.Tx, med *model.Medication, doses []*model.DoseRecord) error {
	now := time.Now()
	for _, d := range doses {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.MedicationID, d.PharmacyID, d.ClientID = med.ID, med.PharmacyID, med.ClientID
		d.CreatedAt, d.UpdatedAt = now, now
	}

	query := `
		INSERT INTO dose_records (
			id, medication_id, pharmacy_id, client_id, scheduled_time, actual_time,
			status, created_at, updated_at
		) VALUES (
			:id, :medication_id, :pharmacy_id, :client_id, :scheduled_time, :actual_time,
			:status, :created_at, :updated_at
		)
		ON CONFLICT (medication_id, scheduled_time) DO NOTHING
	`
	for start := 0; start < len(doses); start += doseInsertChunk {
		end := start + doseInsertChunk
		if end > len(doses) {
			end = len(doses)
		}
		if _, err := tx.NamedExecContext(ctx, query, doses[start:end]); err != nil {
			return fmt.Errorf("failed to insert dose records: %w", err)
		}
	}
	return nil
}

func (r *medicationRepository) CreateWithDoses(ctx context.Context, med *model.Medication, doses []*model.DoseRecord) error {
	if med.ID == uuid.Nil {
		med.ID = uuid.New()
	}
	now := time.Now()
	med.CreatedAt, med.UpdatedAt = now, now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO medications (
				id, pharmacy_id, client_id, name, dosage, schedules, total_quantity,
				remaining_doses, treatment_duration_days, start_date, notes, is_active,
				recurrence_type, recurrence_custom_dates, created_at, updated_at
			) VALUES (
				:id, :pharmacy_id, :client_id, :name, :dosage, :schedules, :total_quantity,
				:remaining_doses, :treatment_duration_days, :start_date, :notes, :is_active,
				:recurrence_type, :recurrence_custom_dates, :created_at, :updated_at
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, med); err != nil {
			return fmt.Errorf("failed to create medication: %w", err)
		}
		return insertDoses(ctx, tx, med, doses)
	})
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	var m model.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, notFound(err, "medication")
	}
	return &m, nil
}

func (r *medicationRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Medication, error) {
	var out []*model.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE client_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return out, nil
}

func (r *medicationRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Medication, error) {
	var out []*model.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE pharmacy_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return out, nil
}

func deletePendingAfter(ctx context.Context, tx *sqlx.Tx, medID uuid.UUID, after time.Time) error {
	query := `
		DELETE FROM dose_records
		WHERE medication_id = $1 AND status = 'pending' AND scheduled_time > $2
	`
	if _, err := tx.ExecContext(ctx, query, medID, after); err != nil {
		return fmt.Errorf("failed to delete future doses: %w", err)
	}
	return nil
}

func (r *medicationRepository) Update(ctx context.Context, med *model.Medication, regenerateAfter time.Time, doses []*model.DoseRecord) error {
	med.UpdatedAt = time.Now()
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE medications
			SET name = $1, dosage = $2, schedules = $3, notes = $4, updated_at = $5
			WHERE id = $6
		`
		res, err := tx.ExecContext(ctx, query, med.Name, med.Dosage, med.Schedules, med.Notes, med.UpdatedAt, med.ID)
		if err != nil {
			return fmt.Errorf("failed to update medication: %w", err)
		}
		if err := mustAffect(res, "medication"); err != nil {
			return err
		}
		if doses == nil {
			return nil
		}
		if err := deletePendingAfter(ctx, tx, med.ID, regenerateAfter); err != nil {
			return err
		}
		return insertDoses(ctx, tx, med, doses)
	})
}

func (r *medicationRepository) Deactivate(ctx context.Context, id uuid.UUID, after time.Time) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE medications SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to deactivate medication: %w", err)
		}
		if err := mustAffect(res, "medication"); err != nil {
			return err
		}
		return deletePendingAfter(ctx, tx, id, after)
	})
}

func (r *medicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dose_records WHERE medication_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete medication doses: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete medication: %w", err)
		}
		return mustAffect(res, "medication")
	})
}

func (r *medicationRepository) LowStock(ctx context.Context, pharmacyID uuid.UUID, threshold, limit int) ([]*model.LowStockEntry, error) {
	query := `
		SELECT m.id AS medication_id, m.name AS medication_name, m.client_id,
			c.name AS client_name, c.phone AS client_phone, m.remaining_doses
		FROM medications m
		JOIN clients c ON c.id = m.client_id
		WHERE m.pharmacy_id = $1
			AND m.remaining_doses IS NOT NULL
			AND m.remaining_doses <= $2
		ORDER BY m.remaining_doses ASC, m.name ASC
		LIMIT $3
	`
	var out []*model.LowStockEntry
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID, threshold, limit); err != nil {
		return nil, fmt.Errorf("failed to list low stock medications: %w", err)
	}
	return out, nil
}
