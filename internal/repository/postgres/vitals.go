package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

type vitalsRepository struct {
	BaseRepository
}

func NewVitalsRepository(base BaseRepository) repository.VitalsRepository {
	return &vitalsRepository{base}
}

const vitalColumns = `id, client_id, pharmacy_id, measured_at, systolic, diastolic, glucose, notes, created_at`

func (r *vitalsRepository) Create(ctx context.Context, v *model.VitalSign) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()

	query := `INSERT INTO vital_signs (` + vitalColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.ClientID, v.PharmacyID, v.MeasuredAt, v.Systolic, v.Diastolic, v.Glucose, v.Notes, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vital sign: %w", err)
	}
	return nil
}

func (r *vitalsRepository) Get(ctx context.Context, id uuid.UUID) (*model.VitalSign, error) {
	var v model.VitalSign
	query := `SELECT ` + vitalColumns + ` FROM vital_signs WHERE id = $1`
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		return nil, notFound(err, "vital sign")
	}
	return &v, nil
}

func (r *vitalsRepository) List(ctx context.Context, clientID uuid.UUID, since time.Time, limit int) ([]*model.VitalSign, error) {
	var out []*model.VitalSign
	query := `
		SELECT ` + vitalColumns + ` FROM vital_signs
		WHERE client_id = $1 AND measured_at >= $2
		ORDER BY measured_at DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &out, query, clientID, since, limit); err != nil {
		return nil, fmt.Errorf("failed to list vital signs: %w", err)
	}
	return out, nil
}

func (r *vitalsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vital_signs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vital sign: %w", err)
	}
	return mustAffect(res, "vital sign")
}
