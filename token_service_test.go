package users_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceMintAndValidate(t *testing.T) {
	svc := users.NewTokenService([]byte("test-signing-key"), 3600, "", nil, nil)

	identity := testIdentity("b1946ac9-4c9e-4a9e-8f50-31b21ce6f1f1", "test@example.com")

	token, err := svc.Mint(identity, 3600)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.ID(), claims.UserID())
	assert.Equal(t, identity.Email(), claims.Email())
	assert.Equal(t, identity.FirstName(), claims.FirstName())
	assert.Equal(t, identity.LastName(), claims.LastName())

	assert.WithinDuration(t, time.Now(), claims.IssuedAt(), 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expires(), 5*time.Second)
}

func TestTokenServicePayloadShape(t *testing.T) {
	svc := users.NewTokenService([]byte("test-signing-key"), 3600, "", nil, nil)

	token, err := svc.Mint(testIdentity("uid-1", "a@b.com"), 60)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)

	payload, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)

	assert.Equal(t, "uid-1", payload["uid"])
	assert.Equal(t, "a@b.com", payload["email"])
	assert.Contains(t, payload, "first_name")
	assert.Contains(t, payload, "last_name")
	assert.Contains(t, payload, "iat")
	assert.Contains(t, payload, "exp")

	// iat and exp travel as unix seconds
	_, ok = payload["iat"].(float64)
	assert.True(t, ok)
	_, ok = payload["exp"].(float64)
	assert.True(t, ok)
}

func TestTokenServiceExpiry(t *testing.T) {
	svc := users.NewTokenService([]byte("test-signing-key"), 3600, "", nil, nil)
	identity := testIdentity("uid-1", "a@b.com")

	t.Run("Zero TTL mints an already expired token", func(t *testing.T) {
		token, err := svc.Mint(identity, 0)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, users.ErrTokenExpired)
		assert.True(t, users.IsTokenExpiredError(err))
	})

	t.Run("Negative TTL mints an already expired token", func(t *testing.T) {
		token, err := svc.Mint(identity, -60)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, users.ErrTokenExpired)
	})
}

func TestTokenServiceRejectsTampering(t *testing.T) {
	svc := users.NewTokenService([]byte("test-signing-key"), 3600, "", nil, nil)

	token, err := svc.Mint(testIdentity("uid-1", "a@b.com"), 3600)
	require.NoError(t, err)

	t.Run("Tampered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)

		tampered := parts[0] + "." + parts[1] + "." + flipLastByte(parts[2])

		_, err := svc.Validate(tampered)
		assert.Error(t, err)
		assert.True(t, users.IsMalformedError(err))
		assertTextCode(t, err, users.ErrTokenSignatureInvalid.TextCode)
	})

	t.Run("Different signing key", func(t *testing.T) {
		other := users.NewTokenService([]byte("another-key"), 3600, "", nil, nil)

		_, err := other.Validate(token)
		assert.Error(t, err)
		assertTextCode(t, err, users.ErrTokenSignatureInvalid.TextCode)
	})

	t.Run("Garbage input", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.Error(t, err)
		assert.True(t, users.IsMalformedError(err))
		assertTextCode(t, err, users.ErrTokenMalformed.TextCode)
	})

	t.Run("Empty input", func(t *testing.T) {
		_, err := svc.Validate("")
		assert.Error(t, err)
	})
}

func TestTokenServiceIssuerAudience(t *testing.T) {
	svc := users.NewTokenService([]byte("key"), 3600, "issuer-a", []string{"aud-a"}, nil)

	token, err := svc.Mint(testIdentity("uid-1", "a@b.com"), 3600)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.NoError(t, err)

	other := users.NewTokenService([]byte("key"), 3600, "issuer-b", []string{"aud-a"}, nil)
	_, err = other.Validate(token)
	assert.Error(t, err)
}

func flipLastByte(s string) string {
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if last == 'A' {
		return s[:len(s)-1] + "B"
	}
	return s[:len(s)-1] + "A"
}
