package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/grand-nerud/backoffice/internal/shared"
	"github.com/grand-nerud/backoffice/internal/users"
)

// UserDirectory is the subset of the users service auth depends on.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Get(ctx context.Context, id string) (*users.User, error)
}

// decoyHash is compared against when the email is unknown, so both login
// failures cost one bcrypt comparison.
var decoyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("auth: generate decoy hash: %v", err))
	}
	return hash
})

// Service wraps authentication business rules.
type Service struct {
	users    UserDirectory
	tokens   *Tokens
	denylist Denylist
	now      func() time.Time
	compare  func(hash, password []byte) error
}

// NewService constructs a new Service. A nil denylist disables revocation.
func NewService(directory UserDirectory, tokens *Tokens, denylist Denylist) *Service {
	return &Service{
		users:    directory,
		tokens:   tokens,
		denylist: denylist,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

// TokenTTL returns the access token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = s.compare(decoyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, Token, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, Token{}, err
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, Token{}, err
	}
	return user, token, nil
}

// Resolve turns a raw token into the live user it was issued to.
func (s *Service) Resolve(ctx context.Context, raw string) (*users.User, Token, error) {
	if raw == "" {
		return nil, Token{}, ErrTokenAbsent
	}
	token, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, Token{}, err
	}
	if s.denylist != nil {
		revoked, err := s.denylist.Revoked(ctx, token.ID)
		if err != nil {
			return nil, Token{}, err
		}
		if revoked {
			return nil, Token{}, ErrTokenExpired
		}
	}
	if !shared.ValidID(token.Subject) {
		return nil, Token{}, ErrUserNotPresent
	}
	user, err := s.users.Get(ctx, token.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, Token{}, ErrUserNotPresent
		}
		return nil, Token{}, err
	}
	return user, token, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token Token) error {
	if s.denylist == nil {
		return nil
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if err := s.denylist.Revoke(ctx, token.ID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
