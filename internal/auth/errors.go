package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers malformed emails and unusable passwords.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUser is returned when the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so the two cases cannot be told apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrStorageUnavailable means the credential store or denylist could not
	// be reached. It is not retried inside the service.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnauthorized is the single category every token failure matches.
	ErrUnauthorized = errors.New("unauthorized")

	ErrMalformedToken   = errors.New("malformed token")
	ErrTampered         = errors.New("token signature mismatch")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrExpired          = errors.New("token has expired")
	ErrRevoked          = errors.New("token has been revoked")
)

var (
	ErrEmailRequired      = fmt.Errorf("%w: email is required", ErrInvalidInput)
	ErrInvalidEmailFormat = fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	ErrPasswordRequired   = fmt.Errorf("%w: password is required", ErrInvalidInput)
	ErrPasswordTooLong    = fmt.Errorf("%w: password is too long", ErrInvalidInput)
)

// TokenError is returned by token validation. It matches ErrUnauthorized
// and the specific Reason, so callers facing clients can branch on the
// former while logs and metrics record the latter.
type TokenError struct {
	Reason error
}

func newTokenError(reason error) *TokenError {
	return &TokenError{Reason: reason}
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnauthorized, e.Reason)
}

func (e *TokenError) Unwrap() []error {
	return []error{ErrUnauthorized, e.Reason}
}

// TokenFailureReason returns a short label for the token failure in err,
// suitable for logs and metric labels. It returns "" for non-token errors.
func TokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTampered):
		return "tampered"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrIssuerMismatch):
		return "issuer"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	default:
		return ""
	}
}
