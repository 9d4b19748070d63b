package accounts

import "context"

// Repository defines the data access interface for connected accounts.
// The account rows themselves are owned by the auth service; this core
// reads them for dispatch and disables them on credential revocation.
type Repository interface {
	// GetByID retrieves an account by its id
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListByUser retrieves all accounts connected by a user
	ListByUser(ctx context.Context, userID string) ([]*Account, error)

	// Disable soft-disables an account, recording the reason.
	// Idempotent: disabling an already-disabled account is not an error.
	Disable(ctx context.Context, id, reason string) error
}
