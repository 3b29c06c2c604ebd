package errors

import (
	"errors"
	"fmt"
	"net/http"

	"findash/internal/marketdata"
)

var (
	// ErrUserNotFound is returned when a user id does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken is returned for missing, forged, expired or revoked tokens
	// and for tokens whose subject no longer exists.
	ErrInvalidToken = errors.New("could not validate credentials")
	// ErrInactiveUser is returned when the resolved user is deactivated.
	ErrInactiveUser = errors.New("inactive user")
	// ErrNotSuperuser is returned when an endpoint requires superuser privileges.
	ErrNotSuperuser = errors.New("superuser privileges required")
	// ErrForbidden is returned when a user acts on another user's profile.
	ErrForbidden = errors.New("not enough permissions")
	// ErrIncorrectPassword is returned when the old password does not verify.
	ErrIncorrectPassword = errors.New("incorrect old password")
	// ErrSamePassword is returned when the new password equals the old one.
	ErrSamePassword = errors.New("new password equals old password")
	// ErrInvalidDateRange is returned when start_date is after end_date.
	ErrInvalidDateRange = errors.New("start date after end date")
	// ErrStoreFetched is returned when fetched market data could not be persisted.
	ErrStoreFetched = errors.New("store fetched data")
)

// ConflictError reports a uniqueness violation on a named field.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already in use", e.Field, e.Value)
}

// Detail renders the user-facing message for the conflicting field.
func (e *ConflictError) Detail() string {
	switch e.Field {
	case "email":
		if e.Value == "" {
			return "Email already registered"
		}
		return fmt.Sprintf("Email '%s' already registered.", e.Value)
	case "username":
		if e.Value == "" {
			return "Username already taken"
		}
		return fmt.Sprintf("Username '%s' already taken.", e.Value)
	default:
		return "Username or email already registered"
	}
}

// FieldError is one entry of a structured validation failure.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError carries per-field request validation failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", e.Fields[0].Msg)
}

// NewValidationError builds a single-field validation error.
func NewValidationError(loc []string, msg, typ string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Loc: loc, Msg: msg, Type: typ}}}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Detail     interface{}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %v", e.StatusCode, e.Detail)
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, detail interface{}) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Detail: detail}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{Detail: e.Detail}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		httpErr     *HTTPError
		conflict    *ConflictError
		validation  *ValidationError
		upstreamErr *marketdata.Error
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &validation):
		return NewHTTPError(http.StatusUnprocessableEntity, validation.Fields)
	case errors.As(err, &conflict):
		return NewHTTPError(http.StatusBadRequest, conflict.Detail())
	case errors.As(err, &upstreamErr):
		return NewHTTPError(upstreamStatus(upstreamErr.Kind), upstreamErr.Message)
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "Incorrect username or password")
	case errors.Is(err, ErrInactiveUser):
		return NewHTTPError(http.StatusBadRequest, "Inactive user")
	case errors.Is(err, ErrNotSuperuser):
		return NewHTTPError(http.StatusForbidden, "The user does not have enough privileges (superuser required)")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, "Not enough permissions")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrIncorrectPassword):
		return NewHTTPError(http.StatusBadRequest, "Incorrect old password")
	case errors.Is(err, ErrSamePassword):
		return NewHTTPError(http.StatusBadRequest, "New password cannot be the same as the old password")
	case errors.Is(err, ErrInvalidDateRange):
		return NewHTTPError(http.StatusBadRequest, "Start date cannot be after end date.")
	case errors.Is(err, ErrStoreFetched):
		return NewHTTPError(http.StatusInternalServerError, "Error storing fetched data")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

func upstreamStatus(kind marketdata.ErrorKind) int {
	switch kind {
	case marketdata.KindTimeout:
		return http.StatusRequestTimeout
	case marketdata.KindRateLimited:
		return http.StatusTooManyRequests
	case marketdata.KindSymbol:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}
