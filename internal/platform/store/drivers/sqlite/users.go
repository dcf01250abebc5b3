package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q *gen.Queries
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		CreatedAt:    formatTime(u.CreatedAt),
		UpdatedAt:    formatTime(u.UpdatedAt),
	})
	if err != nil {
		return mapConstraint(err)
	}
	return r.addSystems(ctx, u.ID, u.Systems)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.withSystems(ctx, row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.withSystems(ctx, row)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	links, err := r.q.ListAllUserSystems(ctx)
	if err != nil {
		return nil, err
	}
	systems := make(map[string][]string, len(rows))
	for _, l := range links {
		systems[l.UserID] = append(systems[l.UserID], l.System)
	}

	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		u, err := mapUser(row, systems[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, now time.Time) error {
	if err := requireRow(r.q.TouchUser(ctx, gen.TouchUserParams{
		UpdatedAt: formatTime(now),
		ID:        id,
	})); err != nil {
		return err
	}
	if upd.Name != nil {
		if _, err := r.q.UpdateUserName(ctx, gen.UpdateUserNameParams{Name: *upd.Name, ID: id}); err != nil {
			return err
		}
	}
	if upd.Role != nil {
		if _, err := r.q.UpdateUserRole(ctx, gen.UpdateUserRoleParams{Role: upd.Role.String(), ID: id}); err != nil {
			return err
		}
	}
	if upd.Systems != nil {
		if err := r.q.ClearUserSystems(ctx, id); err != nil {
			return err
		}
		if err := r.addSystems(ctx, id, *upd.Systems); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	return requireRow(r.q.DeleteUser(ctx, id))
}

func (r *usersRepo) AddSystems(ctx context.Context, id string, systems []string, now time.Time) error {
	if err := requireRow(r.q.TouchUser(ctx, gen.TouchUserParams{
		UpdatedAt: formatTime(now),
		ID:        id,
	})); err != nil {
		return err
	}
	return r.addSystems(ctx, id, systems)
}

func (r *usersRepo) CountAdmins(ctx context.Context) (int, error) {
	n, err := r.q.CountAdmins(ctx)
	return int(n), err
}

// addSystems relies on INSERT OR IGNORE for set semantics.
func (r *usersRepo) addSystems(ctx context.Context, id string, systems []string) error {
	for _, s := range systems {
		if err := r.q.AddUserSystem(ctx, gen.AddUserSystemParams{UserID: id, System: s}); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) withSystems(ctx context.Context, row gen.User) (domain.User, error) {
	systems, err := r.q.ListUserSystems(ctx, row.ID)
	if err != nil {
		return domain.User{}, err
	}
	return mapUser(row, systems)
}

var _ store.Users = (*usersRepo)(nil)
