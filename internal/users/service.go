package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/grand-nerud/backoffice/internal/shared"
)

var (
	// ErrUserExists is returned when registering an email that is already in use.
	ErrUserExists = shared.NewError(shared.ErrConflict, "user already exists")
	// ErrUserNotFound is returned for unknown or deleted accounts.
	ErrUserNotFound = shared.NewError(shared.ErrNotFound, "user not found")
)

var hundred = decimal.NewFromInt(100)

// Service handles user business logic.
type Service struct {
	repo       Repository
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, bcryptCost: bcrypt.DefaultCost}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes a plaintext password with bcrypt.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a regular (non-admin) account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	taken, err := s.repo.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, User{
		Name:         strings.TrimSpace(in.Name),
		LastName:     strings.TrimSpace(in.LastName),
		FatherName:   strings.TrimSpace(in.FatherName),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Get returns a live user.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.IsDeleted {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindByEmail returns the live user with the given login.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, params shared.ListParams) (shared.Page[User], error) {
	return s.repo.List(ctx, params.Normalize())
}

// Update applies an administrator's partial update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	updates := make(map[string]interface{})
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.LastName != nil {
		updates["lastName"] = strings.TrimSpace(*in.LastName)
	}
	if in.FatherName != nil {
		updates["fatherName"] = strings.TrimSpace(*in.FatherName)
	}
	if in.Admin != nil {
		updates["admin"] = *in.Admin
	}
	if in.ProfitSettings != nil {
		settings, err := NormalizeProfitSettings(in.ProfitSettings)
		if err != nil {
			return nil, err
		}
		updates["profitSettings"] = settings
	}
	if len(updates) == 0 {
		return nil, shared.NewError(shared.ErrValidation, "nothing to update")
	}
	return s.repo.Update(ctx, id, updates)
}

// Delete soft-deletes an account.
func (s *Service) Delete(ctx context.Context, id string) (*User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.SoftDelete(ctx, id)
}

// NormalizeProfitSettings checks keys are service ids or "default" and that
// every percentage lies in [0, 100]. Service id keys are returned in their
// lower-case hex form.
func NormalizeProfitSettings(settings map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(settings))
	for key, pct := range settings {
		if key != DefaultProfitKey && !shared.ValidID(key) {
			return nil, shared.NewError(shared.ErrValidation, fmt.Sprintf("profit settings key %q is neither a service id nor %q", key, DefaultProfitKey))
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, shared.NewError(shared.ErrValidation, fmt.Sprintf("profit percent for %q must be within [0, 100]", key))
		}
		if !pct.Equal(pct.Truncate(2)) {
			return nil, shared.NewError(shared.ErrValidation, fmt.Sprintf("profit percent for %q allows at most 2 decimal places", key))
		}
		canonical := shared.CanonicalID(key)
		if _, dup := out[canonical]; dup {
			return nil, shared.NewError(shared.ErrValidation, fmt.Sprintf("profit settings key %q is repeated", canonical))
		}
		out[canonical] = pct
	}
	return out, nil
}
