package oauth

import "fmt"

// ErrorCode is the reason a token request was refused.
type ErrorCode string

const (
	InvalidRequest       ErrorCode = "invalid_request"
	InvalidClient        ErrorCode = "invalid_client"
	InvalidJWT           ErrorCode = "invalid_jwt"
	InvalidGrant         ErrorCode = "invalid_grant"
	InvalidScope         ErrorCode = "invalid_scope"
	UnsupportedGrantType ErrorCode = "unsupported_grant_type"
	ServerError          ErrorCode = "server_error"
)

var descriptions = map[ErrorCode]string{
	InvalidRequest:       "The request is missing a required parameter, includes an unsupported parameter value, or is otherwise malformed.",
	InvalidClient:        "Client authentication failed due to unknown client, no client authentication included, or unsupported authentication method.",
	InvalidJWT:           "The assertion is malformed, expired or was not signed by the client.",
	InvalidGrant:         "The resource owner named by the assertion could not be resolved.",
	InvalidScope:         "The requested scope is invalid, unknown, or malformed.",
	UnsupportedGrantType: "The authorization grant type is not supported by the authorization server.",
	ServerError:          "The authorization server encountered an unexpected condition which prevented it from fulfilling the request.",
}

// WireCode is the RFC 6749 error code sent to the client. invalid_jwt is an
// internal refinement reported as invalid_grant.
func (c ErrorCode) WireCode() string {
	if c == InvalidJWT {
		return string(InvalidGrant)
	}
	return string(c)
}

// Description is the default error_description for the code.
func (c ErrorCode) Description() string {
	return descriptions[c]
}

// ValidationError is the first validation a token request failed.
type ValidationError struct {
	Code        ErrorCode
	Description string
}

func NewValidationError(code ErrorCode) *ValidationError {
	return &ValidationError{Code: code, Description: code.Description()}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any ValidationError with the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidClient = NewValidationError(InvalidClient)
	ErrInvalidJWT    = NewValidationError(InvalidJWT)
	ErrInvalidGrant  = NewValidationError(InvalidGrant)
	ErrInvalidScope  = NewValidationError(InvalidScope)
)
