package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"Omnipost/internal/core/accounts"
)

type postgresAccountRepo struct {
	db *sql.DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *sql.DB) accounts.Repository {
	return &postgresAccountRepo{db: db}
}

const accountColumns = `
	id, user_id, platform, external_uid, display_name, avatar_url,
	disabled, disabled_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*accounts.Account, error) {
	var a accounts.Account
	var avatar sql.NullString
	err := row.Scan(
		&a.ID, &a.UserID, &a.Platform, &a.ExternalUID, &a.DisplayName, &avatar,
		&a.Disabled, &a.DisabledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AvatarURL = avatar.String
	return &a, nil
}

// GetByID retrieves an account by its id
func (r *postgresAccountRepo) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, accounts.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListByUser retrieves all accounts connected by a user
func (r *postgresAccountRepo) ListByUser(ctx context.Context, userID string) ([]*accounts.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var result []*accounts.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, account)
	}
	return result, rows.Err()
}

// Disable soft-disables an account. Idempotent: the disabled_at timestamp
// of the first disable wins.
func (r *postgresAccountRepo) Disable(ctx context.Context, id, reason string) error {
	query := `
		UPDATE accounts
		SET disabled = TRUE,
		    disabled_reason = $2,
		    disabled_at = COALESCE(disabled_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to disable account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check disable result: %w", err)
	}
	if affected == 0 {
		return accounts.ErrAccountNotFound
	}
	return nil
}
