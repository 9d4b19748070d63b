package platforms

import (
	"errors"
	"fmt"
	"net/http"

	"Omnipost/internal/core/credentials"
)

var (
	// ErrAdapterNotFound indicates no adapter is registered for the platform
	ErrAdapterNotFound = errors.New("no publish adapter registered for platform")

	// ErrInvalidOptions indicates the platform-specific publish options
	// failed schema validation
	ErrInvalidOptions = errors.New("invalid platform publish options")
)

// ErrorClass is the retry taxonomy for platform call failures.
// The dispatcher branches on the class, never on platform-specific codes.
type ErrorClass string

const (
	// ClassTransient covers network failures, timeouts, 5xx and rate
	// limiting; retried with backoff up to the attempt budget
	ClassTransient ErrorClass = "transient"

	// ClassAuthExpired covers a single 401/invalid_token response; triggers
	// one reactive credential refresh plus one retry, not counted against
	// the attempt budget
	ClassAuthExpired ErrorClass = "auth_expired"

	// ClassAuthRevoked covers invalid_grant/revoked signals; permanent,
	// fails the job and disables the account
	ClassAuthRevoked ErrorClass = "auth_revoked"

	// ClassRejected covers explicit platform rejections (content policy,
	// malformed media); surfaced verbatim, never retried
	ClassRejected ErrorClass = "platform_rejected"
)

// PlatformError is a typed failure returned by adapters for expected
// platform responses. Adapters never panic or return bare strings for
// these; the class drives dispatcher retry policy.
type PlatformError struct {
	Platform   Platform
	Class      ErrorClass
	StatusCode int
	Code       string
	Message    string
}

func (e *PlatformError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s error (%s): %s", e.Platform, e.Class, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Platform, e.Class, e.Message)
}

// Is lets a revoked platform error satisfy errors.Is against the credential
// store's sentinel, so one check covers both paths.
func (e *PlatformError) Is(target error) bool {
	return target == credentials.ErrAuthRevoked && e.Class == ClassAuthRevoked
}

// IsTransient reports whether err should be retried with backoff
func IsTransient(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Class == ClassTransient
}

// IsAuthExpired reports whether err warrants one reactive token refresh
func IsAuthExpired(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Class == ClassAuthExpired
}

// IsAuthRevoked reports whether err is a permanent credential revocation
func IsAuthRevoked(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Class == ClassAuthRevoked
}

// IsRejected reports whether the platform explicitly refused the content
func IsRejected(err error) bool {
	var pe *PlatformError
	return errors.As(err, &pe) && pe.Class == ClassRejected
}

// ClassifyStatus maps an HTTP response status to an error class.
// Vendor-specific codes (invalid_grant and friends) are handled by each
// adapter before falling back to this.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized:
		return ClassAuthExpired
	case status == http.StatusTooManyRequests:
		return ClassTransient
	case status >= 500:
		return ClassTransient
	default:
		return ClassRejected
	}
}

// NewHTTPError builds a PlatformError from an HTTP failure response
func NewHTTPError(platform Platform, status int, code, message string) *PlatformError {
	return &PlatformError{
		Platform:   platform,
		Class:      ClassifyStatus(status),
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// NewTransportError wraps a network-level failure (connect/timeout) which is
// always retryable
func NewTransportError(platform Platform, err error) *PlatformError {
	return &PlatformError{
		Platform: platform,
		Class:    ClassTransient,
		Message:  err.Error(),
	}
}
