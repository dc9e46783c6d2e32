package users_test

import (
	"context"
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty credentials are bad input, not a mismatch", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		strategy := users.NewLocalStrategy(provider)

		for _, creds := range []users.Credentials{
			{},
			{Username: "test@example.com"},
			{Password: "secret"},
		} {
			_, err := strategy.Authenticate(ctx, creds)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, users.ErrMismatchedHashAndPassword)
		}

		provider.AssertNotCalled(t, "VerifyIdentity")
	})

	t.Run("Delegates to the provider", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		strategy := users.NewLocalStrategy(provider)

		identity := testIdentity(uuid.NewString(), "test@example.com")
		provider.On("VerifyIdentity", ctx, "test@example.com", "secret123").
			Return(identity, nil).Once()

		got, err := strategy.Authenticate(ctx, users.Credentials{
			Username: "test@example.com",
			Password: "secret123",
		})

		assert.NoError(t, err)
		assert.Equal(t, identity.ID(), got.ID())
		provider.AssertExpectations(t)
	})

	t.Run("Provider rejection passes through", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		strategy := users.NewLocalStrategy(provider)

		provider.On("VerifyIdentity", ctx, "test@example.com", "wrong").
			Return(nil, users.ErrMismatchedHashAndPassword).Once()

		_, err := strategy.Authenticate(ctx, users.Credentials{
			Username: "test@example.com",
			Password: "wrong",
		})

		assert.ErrorIs(t, err, users.ErrMismatchedHashAndPassword)
		provider.AssertExpectations(t)
	})
}

func TestBearerStrategy(t *testing.T) {
	ctx := context.Background()
	svc := users.NewTokenService([]byte("test-signing-key"), 3600, "", nil, nil)

	t.Run("Valid token resolves to the claims identity", func(t *testing.T) {
		strategy := users.NewBearerStrategy(svc)

		identity := testIdentity(uuid.NewString(), "test@example.com")
		token, err := svc.Mint(identity, 3600)
		require.NoError(t, err)

		got, err := strategy.Authenticate(ctx, users.Credentials{Token: token})

		assert.NoError(t, err)
		assert.Equal(t, identity.ID(), got.ID())
		assert.Equal(t, identity.Email(), got.Email())
	})

	t.Run("Empty token is bad input", func(t *testing.T) {
		strategy := users.NewBearerStrategy(svc)

		_, err := strategy.Authenticate(ctx, users.Credentials{})

		assert.Error(t, err)
		assert.NotErrorIs(t, err, users.ErrInvalidToken)
	})

	t.Run("Expired token", func(t *testing.T) {
		strategy := users.NewBearerStrategy(svc)

		token, err := svc.Mint(testIdentity(uuid.NewString(), "a@b.com"), -60)
		require.NoError(t, err)

		_, err = strategy.Authenticate(ctx, users.Credentials{Token: token})
		assert.ErrorIs(t, err, users.ErrTokenExpired)
	})

	t.Run("Garbage token", func(t *testing.T) {
		strategy := users.NewBearerStrategy(svc)

		_, err := strategy.Authenticate(ctx, users.Credentials{Token: "garbage"})
		assert.ErrorIs(t, err, users.ErrInvalidToken)
	})

	t.Run("Revocation check rejects tokens for vanished subjects", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		strategy := users.NewBearerStrategy(svc).WithRevocationCheck(provider)

		id := uuid.NewString()
		token, err := svc.Mint(testIdentity(id, "a@b.com"), 3600)
		require.NoError(t, err)

		provider.On("FindIdentityByID", ctx, id).
			Return(nil, users.ErrIdentityNotFound).Once()

		_, err = strategy.Authenticate(ctx, users.Credentials{Token: token})

		assert.ErrorIs(t, err, users.ErrIdentityNotFound)
		provider.AssertExpectations(t)
	})

	t.Run("Revocation check passes for live subjects", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		strategy := users.NewBearerStrategy(svc).WithRevocationCheck(provider)

		id := uuid.NewString()
		identity := testIdentity(id, "a@b.com")
		token, err := svc.Mint(identity, 3600)
		require.NoError(t, err)

		provider.On("FindIdentityByID", ctx, id).Return(identity, nil).Once()

		got, err := strategy.Authenticate(ctx, users.Credentials{Token: token})

		assert.NoError(t, err)
		assert.Equal(t, id, got.ID())
		provider.AssertExpectations(t)
	})
}

func TestStrategySet(t *testing.T) {
	provider := new(MockIdentityProvider)
	svc := users.NewTokenService([]byte("key"), 3600, "", nil, nil)

	local := users.NewLocalStrategy(provider)
	bearer := users.NewBearerStrategy(svc)

	set := users.NewStrategySet(local, bearer)

	t.Run("Lookup by name", func(t *testing.T) {
		got, err := set.Use(users.StrategyLocal)
		assert.NoError(t, err)
		assert.Equal(t, users.StrategyLocal, got.Name())

		got, err = set.Use(users.StrategyBearer)
		assert.NoError(t, err)
		assert.Equal(t, users.StrategyBearer, got.Name())
	})

	t.Run("Unknown strategy", func(t *testing.T) {
		_, err := set.Use("saml")
		assert.Error(t, err)
	})

	t.Run("Duplicate names keep the first registration", func(t *testing.T) {
		other := users.NewLocalStrategy(provider)
		dup := users.NewStrategySet(local, other)

		got, err := dup.Use(users.StrategyLocal)
		assert.NoError(t, err)
		assert.Same(t, local, got)
	})

	t.Run("Names", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"local", "jwt"}, set.Names())
	})
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("Login mints a token the bearer strategy accepts", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		auther := users.NewAuthenticator(provider, newTestConfig())

		id := uuid.NewString()
		identity := testIdentity(id, "test@example.com")

		provider.On("VerifyIdentity", ctx, "test@example.com", "secret123").
			Return(identity, nil).Once()
		provider.On("FindIdentityByID", ctx, id).Return(identity, nil).Once()

		token, err := auther.Login(ctx, "test@example.com", "secret123")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		got, err := auther.IdentityFromToken(ctx, token)
		assert.NoError(t, err)
		assert.Equal(t, id, got.ID())

		provider.AssertExpectations(t)
	})

	t.Run("Unknown strategy name", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		auther := users.NewAuthenticator(provider, newTestConfig())

		_, err := auther.Authenticate(ctx, "oauth", users.Credentials{})
		assert.Error(t, err)
	})
}
