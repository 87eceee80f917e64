package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("the user with this email already exists in the system")
	// ErrInvalidCredentials is returned when login email or password does not match.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrUnauthenticated is returned for any missing, malformed or stale credential.
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrForbidden is returned when the caller lacks administrator privileges.
	ErrForbidden = errors.New("the user doesn't have enough privileges")
	// ErrNotFound is returned when a record is missing or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when input fails a domain rule.
	ErrValidation = errors.New("validation failed")
	// ErrPersistenceConflict is returned when storage rejects a write on a constraint.
	ErrPersistenceConflict = errors.New("persistence conflict")
	// ErrIncorrectPassword is returned when the current password does not match on change.
	ErrIncorrectPassword = errors.New("incorrect password")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep their
// full message so callers see which field or record was rejected.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateEmail.Error(), "DUPLICATE_EMAIL")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrPersistenceConflict):
		return NewHTTPError(http.StatusConflict, ErrPersistenceConflict.Error(), "PERSISTENCE_CONFLICT")
	case errors.Is(err, ErrIncorrectPassword):
		return NewHTTPError(http.StatusBadRequest, ErrIncorrectPassword.Error(), "INCORRECT_PASSWORD")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
