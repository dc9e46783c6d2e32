package users

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used when none is configured.
// Raising it makes brute-forcing stolen hashes proportionally slower.
const DefaultHashCost = 10

// HashPassword will generate a salted password hash using the default cost
func HashPassword(password string) (string, error) {
	return HashPasswordCost(password, DefaultHashCost)
}

// HashPasswordCost hashes with an explicit work factor. The salt is embedded
// in the output so no separate salt storage is needed.
func HashPasswordCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyPassword
	}

	if cost < bcrypt.MinCost {
		cost = DefaultHashCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. Any mismatch, corrupt hash, or algorithm mismatch
// yields ErrMismatchedHashAndPassword; the comparison is constant time.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		// corrupt or foreign hash formats reject like a mismatch, the
		// caller can not tell them apart
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// RandomPasswordHash produces a hash of a throwaway password. The local
// strategy compares against it when the identifier is unknown so both
// rejection paths cost one bcrypt verification.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

type bcryptHasher struct {
	cost int
}

// NewPasswordAuthenticator returns a PasswordAuthenticator with the given
// work factor, falling back to DefaultHashCost when cost is below the
// bcrypt minimum.
func NewPasswordAuthenticator(cost int) PasswordAuthenticator {
	if cost < bcrypt.MinCost {
		cost = DefaultHashCost
	}
	return bcryptHasher{cost: cost}
}

func (b bcryptHasher) HashPassword(password string) (string, error) {
	return HashPasswordCost(password, b.cost)
}

func (b bcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}
