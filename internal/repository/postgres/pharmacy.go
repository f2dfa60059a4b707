package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

type pharmacyRepository struct {
	BaseRepository
}

func NewPharmacyRepository(base BaseRepository) repository.PharmacyRepository {
	return &pharmacyRepository{base}
}

const pharmacyColumns = `id, auth_id, name, email, phone, address, created_at, updated_at`

func (r *pharmacyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	var p model.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFound(err, "pharmacy")
	}
	return &p, nil
}

func (r *pharmacyRepository) GetByAuthID(ctx context.Context, authID uuid.UUID) (*model.Pharmacy, error) {
	var p model.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies WHERE auth_id = $1`
	if err := r.db.GetContext(ctx, &p, query, authID); err != nil {
		return nil, notFound(err, "pharmacy")
	}
	return &p, nil
}

func (r *pharmacyRepository) Update(ctx context.Context, p *model.Pharmacy) error {
	p.UpdatedAt = time.Now()
	query := `
		UPDATE pharmacies
		SET name = $1, email = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Email, p.Phone, p.Address, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pharmacy: %w", err)
	}
	return mustAffect(res, "pharmacy")
}

func (r *pharmacyRepository) List(ctx context.Context) ([]*model.Pharmacy, error) {
	var out []*model.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies ORDER BY name`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list pharmacies: %w", err)
	}
	return out, nil
}
