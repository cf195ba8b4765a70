package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() *AuthService {
	return NewAuthService(memory.NewStore().Users, config.AuthConfig{
		JWTSecret:  strings.Repeat("s", 32),
		Issuer:     "storefront-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		password    string
		expectedErr error
	}{
		{name: "valid", email: "Ada@Example.com", password: "analytical1"},
		{name: "short password", email: "ada@example.com", password: "a1", expectedErr: domain.ErrInvalidArgument},
		{name: "password at bcrypt limit", email: "ada@example.com", password: strings.Repeat("a1", 36)},
		{name: "password over bcrypt limit", email: "ada@example.com", password: strings.Repeat("a1", 40), expectedErr: domain.ErrInvalidArgument},
		{name: "password without digit", email: "ada@example.com", password: "enginesonly", expectedErr: domain.ErrInvalidArgument},
		{name: "bad email", email: "not-an-email", password: "analytical1", expectedErr: domain.ErrInvalidArgument},
		{name: "double at sign", email: "ada@@example.com", password: "analytical1", expectedErr: domain.ErrInvalidArgument},
		{name: "blank email", email: "   ", password: "analytical1", expectedErr: domain.ErrInvalidArgument},
		{name: "display name form", email: "Ada <ada@example.com>", password: "analytical1", expectedErr: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAuthService()

			u, tokens, err := svc.Register(context.Background(), tt.email, tt.password, "Ada")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", u.Email)
			assert.Equal(t, domain.RoleUser, u.Role)
			assert.NotEqual(t, tt.password, u.PasswordHash)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
			assert.EqualValues(t, 900, tokens.ExpiresIn)
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	_, _, err := svc.Register(ctx, "ada@example.com", "analytical1", "Ada")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "ADA@example.com", "different2", "Other")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	registered, _, err := svc.Register(ctx, "ada@example.com", "analytical1", "Ada")
	require.NoError(t, err)

	u, tokens, err := svc.Login(ctx, " ADA@example.com ", "analytical1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	current, err := svc.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, current.ID)

	_, _, wrongPassword := svc.Login(ctx, "ada@example.com", "analytical2")
	_, _, unknownEmail := svc.Login(ctx, "bob@example.com", "analytical1")
	assert.ErrorIs(t, wrongPassword, domain.ErrUnauthorized)
	assert.ErrorIs(t, unknownEmail, domain.ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_TokenTypes(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	_, tokens, err := svc.Register(ctx, "ada@example.com", "analytical1", "Ada")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	_, tokens, err := svc.Register(ctx, "ada@example.com", "analytical1", "Ada")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.Authenticate(ctx, tokens.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, tokens.AccessToken+"x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("other secret", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "1", Issuer: "storefront-test", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Type: tokenAccess, Role: domain.RoleAdmin, RegisteredClaims: claims}).
			SignedString([]byte(strings.Repeat("x", 32)))
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, forged)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: tokenAccess}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, none)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAuthService_RoleChangeAppliesImmediately(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	u, tokens, err := svc.Register(ctx, "ada@example.com", "analytical1", "Ada")
	require.NoError(t, err)

	u.Role = domain.RoleAdmin
	require.NoError(t, svc.users.Update(ctx, u))

	current, err := svc.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, current.IsAdmin())
}

func TestAuthService_CreateAdminAndProfile(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	admin, err := svc.CreateAdmin(ctx, "root@example.com", "changeme42", "Root")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	updated, err := svc.UpdateProfile(ctx, admin.ID, " Root User ", "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "Root User", updated.Name)

	got, err := svc.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	_, err = svc.UpdateProfile(ctx, 9999, "x", "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
