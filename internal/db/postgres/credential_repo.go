package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"Omnipost/internal/core/credentials"
)

type postgresCredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepository creates a new PostgreSQL credential repository
func NewCredentialRepository(db *sql.DB) credentials.Repository {
	return &postgresCredentialRepo{db: db}
}

func (r *postgresCredentialRepo) Get(ctx context.Context, accountID string) (*credentials.Credential, error) {
	query := `
		SELECT account_id, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE account_id = $1
	`

	var c credentials.Credential
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&c.AccountID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, credentials.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}

// Save upserts the credential for an account. The row is keyed by
// account_id so a rotation overwrites the revoked tokens in place.
func (r *postgresCredentialRepo) Save(ctx context.Context, cred *credentials.Credential) error {
	query := `
		INSERT INTO credentials (account_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.AccountID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}
