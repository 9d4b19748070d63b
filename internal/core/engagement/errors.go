package engagement

import "errors"

var (
	// ErrUnsupportedPagination indicates a cursor of the wrong kind for the
	// provider (offset cursor to a keyset platform or vice versa). This is
	// a caller programming error and fails fast, never a silent coercion.
	ErrUnsupportedPagination = errors.New("cursor kind not supported by this platform")

	// ErrMalformedCursor indicates an opaque cursor string that doesn't
	// decode
	ErrMalformedCursor = errors.New("malformed pagination cursor")

	// ErrEmptyMessage indicates a comment post with no content
	ErrEmptyMessage = errors.New("comment message is required")
)

// IsValidationError checks if an error is a caller input error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnsupportedPagination) ||
		errors.Is(err, ErrMalformedCursor) ||
		errors.Is(err, ErrEmptyMessage)
}
