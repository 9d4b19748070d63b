package accounts

import "errors"

var (
	// ErrAccountNotFound indicates the requested account doesn't exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountDisabled indicates the account has been disabled after a
	// permanent credential failure and cannot be used for new work
	ErrAccountDisabled = errors.New("account is disabled")
)

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
