package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/cryptox"
	"github.com/aussiebroadwan/multiman/pkg/idx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

// SignupPolicy controls who may use public self-registration.
type SignupPolicy string

const (
	// SignupOpen lets anyone register with any role.
	SignupOpen SignupPolicy = "open"
	// SignupBootstrap allows registration only until the first admin exists.
	SignupBootstrap SignupPolicy = "bootstrap"
	// SignupClosed disables registration; admins create users instead.
	SignupClosed SignupPolicy = "closed"
)

func ParseSignupPolicy(s string) (SignupPolicy, error) {
	switch p := SignupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SignupOpen, SignupBootstrap, SignupClosed:
		return p, nil
	case "":
		return SignupOpen, nil
	default:
		return "", fmt.Errorf("unknown signup policy %q", s)
	}
}

// NewUser is the input for creating an account.
type NewUser struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
	Systems  []string
}

type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Tokens *TokenService
	Signup SignupPolicy
	Now    func() time.Time
}

// Register creates an account through public sign-up and returns a token
// for it, subject to the sign-up policy.
func (s *UserService) Register(ctx context.Context, in NewUser) (domain.User, IssuedToken, error) {
	l := slogx.FromContext(ctx)

	if err := s.checkSignup(ctx); err != nil {
		l.Info("registration refused", slog.String("policy", string(s.Signup)))
		return domain.User{}, IssuedToken{}, err
	}

	u, err := s.Provision(ctx, in)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}

	tok, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return domain.User{}, IssuedToken{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("role", u.Role.String()))
	return u, tok, nil
}

func (s *UserService) checkSignup(ctx context.Context) error {
	switch s.Signup {
	case SignupOpen, "":
		return nil
	case SignupBootstrap:
		n, err := s.Store.Users().CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("service: count admins: %w", err)
		}
		if n > 0 {
			return ErrSignupClosed
		}
		return nil
	default:
		return ErrSignupClosed
	}
}

// Provision creates a user without any authorization check. HTTP paths
// reach it through Register or Create; the CLI calls it directly.
func (s *UserService) Provision(ctx context.Context, in NewUser) (domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return domain.User{}, fmt.Errorf("%w: email, name and password are required", ErrInvalidInput)
	}
	role, err := domain.ParseRole(in.Role.String())
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: hash password: %w", err)
	}

	now := nowOr(s.Now)
	u := domain.User{
		ID:           idx.NewAt(now),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Systems:      domain.NormalizeSystems(in.Systems),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, u)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service: create user: %w", err)
	}
	return u, nil
}

// Login checks a password and issues a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials, and unknown emails still pay
// for one hash verification.
func (s *UserService) Login(ctx context.Context, email, password string) (IssuedToken, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		_ = s.Hasher.VerifyDummy(password)
		l.Info("login failed")
		return IssuedToken{}, ErrInvalidCredentials
	}
	if err != nil {
		return IssuedToken{}, fmt.Errorf("service: find user: %w", err)
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			l.Error("stored password hash unusable", slog.String("user_id", u.ID), slog.Any("error", err))
		}
		l.Info("login failed")
		return IssuedToken{}, ErrInvalidCredentials
	}

	return s.Tokens.Issue(u.ID, u.Role)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	return u, mapNotFound(err)
}

func (s *UserService) FindByID(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	return u, mapNotFound(err)
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, caller domain.User) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.Store.Users().ListUsers(ctx)
}

// Create is the admin path for adding a user.
func (s *UserService) Create(ctx context.Context, caller domain.User, in NewUser) (domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	u, err := s.Provision(ctx, in)
	if err != nil {
		return domain.User{}, err
	}
	slogx.FromContext(ctx).Info("user created", slog.String("user_id", u.ID), slog.String("by", caller.ID))
	return u, nil
}

// Update applies a partial update. Systems, when present, replaces the set.
func (s *UserService) Update(ctx context.Context, caller domain.User, id string, upd domain.UserUpdate) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Systems != nil {
		systems := domain.NormalizeSystems(*upd.Systems)
		upd.Systems = &systems
	}
	if upd.IsEmpty() {
		// Nothing to write; still report unknown ids.
		_, err := s.Store.Users().GetUserByID(ctx, id)
		return mapNotFound(err)
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdateUser(ctx, id, upd, nowOr(s.Now))
	})
	return mapNotFound(err)
}

func (s *UserService) Delete(ctx context.Context, caller domain.User, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return mapNotFound(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id), slog.String("by", caller.ID))
	return nil
}

// AssignSystems adds systems to the user's set. Repeating an assignment
// changes nothing.
func (s *UserService) AssignSystems(ctx context.Context, caller domain.User, id string, systems []string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().AddSystems(ctx, id, domain.NormalizeSystems(systems), nowOr(s.Now))
	})
	return mapNotFound(err)
}
