package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

type adRepository struct {
	BaseRepository
}

func NewAdRepository(base BaseRepository) repository.AdRepository {
	return &adRepository{base}
}

const adColumns = `id, pharmacy_id, image_key, image_url, whatsapp_phone, whatsapp_message,
	is_active, display_order, created_at, updated_at`

func (r *adRepository) Create(ctx context.Context, ad *model.PharmacyAd) error {
	if ad.ID == uuid.Nil {
		ad.ID = uuid.New()
	}
	now := time.Now()
	ad.CreatedAt, ad.UpdatedAt = now, now

	query := `INSERT INTO pharmacy_ads (` + adColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		ad.ID, ad.PharmacyID, ad.ImageKey, ad.ImageURL, ad.WhatsAppPhone, ad.WhatsAppMessage,
		ad.IsActive, ad.DisplayOrder, ad.CreatedAt, ad.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ad: %w", err)
	}
	return nil
}

func (r *adRepository) Get(ctx context.Context, id uuid.UUID) (*model.PharmacyAd, error) {
	var ad model.PharmacyAd
	query := `SELECT ` + adColumns + ` FROM pharmacy_ads WHERE id = $1`
	if err := r.db.GetContext(ctx, &ad, query, id); err != nil {
		return nil, notFound(err, "ad")
	}
	return &ad, nil
}

func (r *adRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error) {
	var out []*model.PharmacyAd
	query := `
		SELECT ` + adColumns + ` FROM pharmacy_ads
		WHERE pharmacy_id = $1
		ORDER BY is_active DESC, display_order ASC, created_at DESC
	`
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID); err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	return out, nil
}

func (r *adRepository) ListActiveByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.PharmacyAd, error) {
	var out []*model.PharmacyAd
	query := `
		SELECT ` + adColumns + ` FROM pharmacy_ads
		WHERE pharmacy_id = $1 AND is_active
		ORDER BY display_order ASC, created_at DESC
	`
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID); err != nil {
		return nil, fmt.Errorf("failed to list active ads: %w", err)
	}
	return out, nil
}

func (r *adRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pharmacy_ads SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update ad: %w", err)
	}
	return mustAffect(res, "ad")
}

func (r *adRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pharmacy_ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	return mustAffect(res, "ad")
}
