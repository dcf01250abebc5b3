package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

// Error codes written by the bearer middleware.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeInvalidToken    = "invalid_token"
	CodeTokenExpired    = "token_expired"
)

// AuthnMiddleware verifies the bearer token and stores its claims in the
// request context. It does not look the subject up; that is the caller
// resolver's job.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				WriteBearerError(w, CodeUnauthenticated, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				if errors.Is(err, jwtx.ErrExpired) {
					WriteBearerError(w, CodeTokenExpired, "token expired")
					return
				}
				WriteBearerError(w, CodeInvalidToken, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WriteBearerError writes an RFC 6750 style 401 with a JSON body.
func WriteBearerError(w http.ResponseWriter, code, desc string) {
	errParam := "invalid_token"
	if code == CodeUnauthenticated {
		errParam = "invalid_request"
	}
	w.Header().Set("WWW-Authenticate", `Bearer error="`+errParam+`", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
