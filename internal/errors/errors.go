package errors

import (
	"errors"
	"fmt"
)

// Common error types for the JWT grant server
var (
	// Grant dispatch errors
	ErrMissingRequestStrategy       = errors.New("missing request strategy")
	ErrInvalidTokenStrategy         = errors.New("invalid token strategy")
	ErrInvalidAuthorizationStrategy = errors.New("invalid authorization strategy")

	// Configuration errors
	ErrUnknownDelegate     = errors.New("unknown resource owner delegate")
	ErrUnknownExtractor    = errors.New("unknown client credentials extractor")
	ErrUnsupportedStorage  = errors.New("unsupported storage type")
	ErrUnsupportedSigner   = errors.New("unsupported signing algorithm")
	ErrEphemeralSigningKey = errors.New("signing key does not survive a restart")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	// Client errors
	ErrInvalidClient = errors.New("invalid client")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}
