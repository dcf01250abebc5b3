package platformsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/multiman/pkg/httpx"
)

// Error codes carried in the "error" field of every error body.
const (
	ErrorCodeUnauthenticated    = httpx.CodeUnauthenticated
	ErrorCodeInvalidToken       = httpx.CodeInvalidToken
	ErrorCodeTokenExpired       = httpx.CodeTokenExpired
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeDuplicateEmail     = "duplicate_email"
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidFilter      = "invalid_filter"
	ErrorCodeValidation         = "validation_error"
	ErrorCodeRateLimited        = httpx.CodeRateLimited
	ErrorCodeSignupClosed       = "signup_closed"
	ErrorCodeServerError        = "server_error"
)

// APIError is an error response from the API. The server writes these and
// the client parses them back.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code, so errors.Is(err, ErrNotFound) works for any parsed
// not_found response regardless of its description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, httpx.ErrorBody{
		Error:            e.Code,
		ErrorDescription: e.Description,
		Details:          e.Details,
	})
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	cp := *e
	cp.Description = desc
	return &cp
}

// NewAPIError creates an APIError.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

// NewValidationError wraps field errors as a 400 validation_error.
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "request validation failed",
		Details:     details,
	}
}

var (
	ErrUnauthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthenticated,
		Description: "missing bearer token",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is invalid",
	}

	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "the access token has expired",
	}

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "Invalid credentials",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "access denied",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrDuplicateEmail = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeDuplicateEmail,
		Description: "email already registered",
	}

	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed",
	}

	ErrInvalidFilter = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidFilter,
		Description: "the query filter is not supported",
	}

	ErrSignupClosed = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeSignupClosed,
		Description: "self-service registration is disabled",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e APIError
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		e.StatusCode = resp.StatusCode
		return &e
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
