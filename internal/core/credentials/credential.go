package credentials

import "time"

// Credential holds the OAuth tokens for one connected account.
// Refresh tokens for most platforms are single-use: the old refresh token
// is revoked the moment a rotation succeeds, so a rotated credential must
// be persisted before it is handed to any caller.
type Credential struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// FreshFor reports whether the access token is still valid for at least
// the given margin.
func (c *Credential) FreshFor(margin time.Duration, now time.Time) bool {
	return c.ExpiresAt.Sub(now) >= margin
}
