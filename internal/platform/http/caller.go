package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

type callerKey struct{}

// ResolveCaller loads the user behind verified claims and stores it in the
// request context. It must run after httpx.AuthnMiddleware.
func ResolveCaller(g *service.Guard) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, ok := httpx.ClaimsFromContext(ctx)
			if !ok {
				httpx.WriteBearerError(w, httpx.CodeUnauthenticated, "missing bearer token")
				return
			}

			u, err := g.Resolve(ctx, claims)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx = slogx.WithUser(ctx, u.ID, u.Role.String())
			ctx = context.WithValue(ctx, callerKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers with 403.
func RequireAdmin(g *service.Guard) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := callerFrom(r.Context())
			if !ok {
				platformsdk.ErrServerError.WriteError(w)
				return
			}
			if err := g.RequireAdmin(u); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSystem rejects callers not entitled to the {system} path value
// with 403 before the handler reads the body, so a bad payload cannot turn
// a forbidden request into a 400.
func RequireSystem(g *service.Guard) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := caller(w, r)
			if !ok {
				return
			}
			if err := g.AuthorizeSystem(u, r.PathValue("system")); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(callerKey{}).(domain.User)
	return u, ok
}

// caller returns the resolved caller or writes a 500 when the route was
// registered without ResolveCaller.
func caller(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := callerFrom(r.Context())
	if !ok {
		slogx.FromContext(r.Context()).Error("caller missing from context", "path", r.URL.Path)
		platformsdk.ErrServerError.WriteError(w)
	}
	return u, ok
}
