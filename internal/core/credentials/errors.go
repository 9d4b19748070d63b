package credentials

import "errors"

var (
	// ErrCredentialNotFound indicates no credential is stored for the account
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrAuthRevoked indicates the platform permanently rejected the refresh
	// token (invalid_grant or explicit revocation). The account is disabled
	// and dependent jobs must not retry past this point.
	ErrAuthRevoked = errors.New("authorization revoked by platform")
)

// IsAuthRevoked checks if an error is a permanent revocation
func IsAuthRevoked(err error) bool {
	return errors.Is(err, ErrAuthRevoked)
}
