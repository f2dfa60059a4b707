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

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func insertAccount(ctx context.Context, tx *sqlx.Tx, account *model.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	account.CreatedAt, account.UpdatedAt = now, now

	query := `
		INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return conflict(err, "email already registered", "create account")
	}
	return nil
}

func (r *accountRepository) CreatePharmacyAccount(ctx context.Context, account *model.Account, pharmacy *model.Pharmacy) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertAccount(ctx, tx, account); err != nil {
			return err
		}
		if pharmacy.ID == uuid.Nil {
			pharmacy.ID = uuid.New()
		}
		pharmacy.AuthID = account.ID
		pharmacy.CreatedAt, pharmacy.UpdatedAt = account.CreatedAt, account.UpdatedAt

		query := `
			INSERT INTO pharmacies (id, auth_id, name, email, phone, address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			pharmacy.ID,
			pharmacy.AuthID,
			pharmacy.Name,
			pharmacy.Email,
			pharmacy.Phone,
			pharmacy.Address,
			pharmacy.CreatedAt,
			pharmacy.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create pharmacy: %w", err)
		}
		return nil
	})
}

func (r *accountRepository) CreateClientAccount(ctx context.Context, account *model.Account, client *model.Client) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertAccount(ctx, tx, account); err != nil {
			return err
		}
		if client.ID == uuid.Nil {
			client.ID = uuid.New()
		}
		authID := account.ID
		client.AuthID = &authID
		client.CreatedAt, client.UpdatedAt = account.CreatedAt, account.UpdatedAt

		query := `
			INSERT INTO clients (
				id, pharmacy_id, auth_id, name, email, phone, date_of_birth,
				monitor_bp, monitor_glucose, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(ctx, query,
			client.ID,
			client.PharmacyID,
			client.AuthID,
			client.Name,
			client.Email,
			client.Phone,
			client.DateOfBirth,
			client.MonitorBP,
			client.MonitorGlucose,
			client.CreatedAt,
			client.UpdatedAt,
		)
		if err != nil {
			return conflict(err, "a client with this phone already exists", "create client")
		}
		return nil
	})
}

const accountColumns = `id, email, password_hash, role, login_attempts, locked_until, last_login_at, created_at, updated_at`

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, notFound(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		return nil, notFound(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) UpdateLoginState(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET login_attempts = $1, locked_until = $2, last_login_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, account.LoginAttempts, account.LockedUntil, account.LastLoginAt, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update login state: %w", err)
	}
	return mustAffect(res, "account")
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return mustAffect(res, "account")
}
