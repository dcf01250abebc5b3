package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

var errBodyTooLarge = platformsdk.NewAPIError(
	http.StatusRequestEntityTooLarge,
	platformsdk.ErrorCodeInvalidRequest,
	"request body too large",
)

// writeError maps service and domain errors onto the wire. Anything it does
// not recognise is logged and reported as a server error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *platformsdk.APIError
	switch {
	case errors.As(err, &apiErr):
		apiErr.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteBearerError(w, httpx.CodeInvalidToken, "the token subject no longer exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		platformsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		platformsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		platformsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrDuplicateEmail):
		platformsdk.ErrDuplicateEmail.WriteError(w)
	case errors.Is(err, service.ErrSignupClosed):
		platformsdk.ErrSignupClosed.WriteError(w)
	case errors.Is(err, domain.ErrInvalidFilter):
		platformsdk.ErrInvalidFilter.WithDescription(err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidInput):
		platformsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		platformsdk.ErrServerError.WriteError(w)
	}
}

// decodeBody reads a JSON request body into v and writes the error response
// itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			errBodyTooLarge.WriteError(w)
			return false
		}
		platformsdk.ErrInvalidRequest.WithDescription("invalid JSON in request body").WriteError(w)
		return false
	}
	return true
}

// validate writes a validation_error response when details is non-empty.
func validate(w http.ResponseWriter, details map[string]string) bool {
	if len(details) == 0 {
		return true
	}
	platformsdk.NewValidationError(details).WriteError(w)
	return false
}
