package credentials

import "context"

// Repository defines the data access interface for stored credentials
type Repository interface {
	// Get retrieves the credential for an account. Never touches the network.
	Get(ctx context.Context, accountID string) (*Credential, error)

	// Save persists a credential, replacing any previous one for the account
	Save(ctx context.Context, cred *Credential) error
}

// RefreshFunc exchanges the current credential for a rotated one by calling
// the platform. The Store owns locking and persistence; implementations only
// perform the outbound call.
type RefreshFunc func(ctx context.Context, accountID string, current *Credential) (*Credential, error)

// AccountDisabler marks an account unusable after a permanent auth failure
type AccountDisabler interface {
	Disable(ctx context.Context, id, reason string) error
}
