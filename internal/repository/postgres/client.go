package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/repository"
)

type clientRepository struct {
	BaseRepository
}

func NewClientRepository(base BaseRepository) repository.ClientRepository {
	return &clientRepository{base}
}

const clientColumns = `id, pharmacy_id, auth_id, name, email, phone, date_of_birth,
	monitor_bp, monitor_glucose, created_at, updated_at`

func (r *clientRepository) getBy(ctx context.Context, column string, value interface{}) (*model.Client, error) {
	var c model.Client
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + column + ` = $1`
	if err := r.db.GetContext(ctx, &c, query, value); err != nil {
		return nil, notFound(err, "client")
	}
	return &c, nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return r.getBy(ctx, "id", id)
}

func (r *clientRepository) GetByAuthID(ctx context.Context, authID uuid.UUID) (*model.Client, error) {
	return r.getBy(ctx, "auth_id", authID)
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return r.getBy(ctx, "phone", phone)
}

func (r *clientRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Client, error) {
	var out []*model.Client
	query := `SELECT ` + clientColumns + ` FROM clients WHERE pharmacy_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, pharmacyID); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return out, nil
}

func (r *clientRepository) UpdateWithLogin(ctx context.Context, c *model.Client, loginEmail string) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		c.UpdatedAt = time.Now()
		query := `
			UPDATE clients
			SET name = $1, email = $2, phone = $3, date_of_birth = $4,
				monitor_bp = $5, monitor_glucose = $6, updated_at = $7
			WHERE id = $8
			RETURNING auth_id
		`
		var authID *uuid.UUID
		err := tx.GetContext(ctx, &authID, query,
			c.Name, c.Email, c.Phone, c.DateOfBirth, c.MonitorBP, c.MonitorGlucose, c.UpdatedAt, c.ID)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return notFound(err, "client")
			}
			return conflict(err, "a client with this phone already exists", "update client")
		}
		if loginEmail == "" || authID == nil {
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET email = $1, updated_at = NOW() WHERE id = $2`, loginEmail, *authID)
		if err != nil {
			return conflict(err, "email already registered", "update account email")
		}
		return mustAffect(res, "account")
	})
}

func (r *clientRepository) SetMonitoring(ctx context.Context, id uuid.UUID, bp, glucose bool) error {
	query := `UPDATE clients SET monitor_bp = $1, monitor_glucose = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, bp, glucose, id)
	if err != nil {
		return fmt.Errorf("failed to update monitoring: %w", err)
	}
	return mustAffect(res, "client")
}

// Delete relies on ON DELETE CASCADE for dependent rows and removes the
// login account explicitly.
func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var authID *uuid.UUID
		err := tx.GetContext(ctx, &authID, `SELECT auth_id FROM clients WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return notFound(err, "client")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		if authID != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, *authID); err != nil {
				return fmt.Errorf("failed to delete client account: %w", err)
			}
		}
		return nil
	})
}
