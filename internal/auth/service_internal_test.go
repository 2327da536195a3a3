package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grand-nerud/backoffice/internal/shared"
	"github.com/grand-nerud/backoffice/internal/users"
)

type emailDirectory map[string]*users.User

func (d emailDirectory) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if u, ok := d[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (d emailDirectory) Get(ctx context.Context, id string) (*users.User, error) {
	return nil, shared.ErrNotFound
}

func TestAuthenticateComparesHashForUnknownEmail(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(emailDirectory{
		"known@example.com": {ID: "65a1b2c3d4e5f60718293a10", PasswordHash: string(hash)},
	}, NewTokens("service-secret", time.Minute), nil)

	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "right-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, compared, 1)
	assert.Equal(t, decoyHash(), compared[0])

	_, err = svc.Authenticate(context.Background(), "known@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Len(t, compared, 2)

	user, err := svc.Authenticate(context.Background(), "known@example.com", "right-password")
	require.NoError(t, err)
	assert.Equal(t, "65a1b2c3d4e5f60718293a10", user.ID)
}
