package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newModule(t *testing.T) *AuthModule {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthModule("admin", string(hash), "test-secret")
}

func TestLoginAndValidate(t *testing.T) {
	a := newModule(t)
	ctx := context.Background()

	token, err := a.LoginWithJWT(ctx, "admin", "hunter2")
	require.NoError(t, err)

	user, err := a.ValidateTokenJWT(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	user, err = a.ValidateTokenJWT(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newModule(t)
	ctx := context.Background()

	_, err := a.LoginWithJWT(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.LoginWithJWT(ctx, "root", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	noHash := NewAuthModule("admin", "", "secret")
	_, err = noHash.LoginWithJWT(ctx, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	a := newModule(t)
	ctx := context.Background()

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }
	token, err := a.LoginWithJWT(ctx, "admin", "hunter2")
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(TokenTTL + time.Minute) }
	_, err = a.ValidateTokenJWT(ctx, token)
	assert.Error(t, err)

	other := NewAuthModule("admin", "", "other-secret")
	other.now = func() time.Time { return issued }
	_, err = other.ValidateTokenJWT(ctx, token)
	assert.Error(t, err)

	_, err = a.ValidateTokenJWT(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
	assert.False(t, NewAuthModule("admin", hash, "").Enabled())
}
