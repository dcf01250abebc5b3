package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
)

// Guard turns verified claims into a caller and answers authorization
// questions about it.
type Guard struct {
	Store store.Store
}

// Resolve loads the caller named by the token subject. Role and systems
// come from the stored user, not from the token. A subject that no longer
// exists is reported as ErrInvalidToken.
func (g *Guard) Resolve(ctx context.Context, claims jwtx.Claims) (domain.User, error) {
	if claims.Subject == "" {
		return domain.User{}, ErrInvalidToken
	}
	u, err := g.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, fmt.Errorf("service: resolve caller: %w", err)
	}
	return u, nil
}

// AuthorizeSystem lets admins through and users only for catalog systems
// they are entitled to.
func (g *Guard) AuthorizeSystem(caller domain.User, system string) error {
	return authorizeSystem(caller, system)
}

func (g *Guard) RequireAdmin(caller domain.User) error {
	return requireAdmin(caller)
}

func authorizeSystem(caller domain.User, system string) error {
	if caller.Role.IsAdmin() {
		return nil
	}
	if domain.InCatalog(system) && caller.HasSystem(system) {
		return nil
	}
	return ErrForbidden
}

func requireAdmin(caller domain.User) error {
	if caller.Role.IsAdmin() {
		return nil
	}
	return ErrForbidden
}
