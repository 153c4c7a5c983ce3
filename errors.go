package secretkeep

import "errors"

// Errors returned by stores and authentication flows
var (
	// ErrDuplicateUsername is returned when creating an identity whose
	// username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredential is returned for a failed local login. It is
	// deliberately the same for "no such user" and "wrong password" so
	// callers cannot probe for account existence.
	ErrInvalidCredential = errors.New("invalid credentials")

	// ErrIdentityNotFound is returned when an identity lookup finds nothing.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrNotAuthenticated is returned when a session holds no resolved
	// identity, including when the serialized ID refers to a deleted record.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Error codes used in AuthError
const (
	ErrCodeInvalidCreds   = "invalid_credentials"
	ErrCodeUsernameTaken  = "username_taken"
	ErrCodeMissingField   = "missing_field"
	ErrCodeOAuthDenied    = "oauth_denied"
	ErrCodeProviderError  = "oauth_provider_error"
	ErrCodeSessionInvalid = "session_invalid"
)

// AuthError carries a machine-readable code and the offending field for
// handlers at the route boundary. The boundary redirects; the code is for
// logs, not for the end user.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return e.Code + ": " + e.Message + " (" + e.Field + ")"
	}
	return e.Code + ": " + e.Message
}
