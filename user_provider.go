package users

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserFinder is the narrow store capability the provider needs.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// UserProvider resolves identifiers and passwords into identities using a
// Users store. It strips credential material before returning.
type UserProvider struct {
	store  UserFinder
	hasher PasswordAuthenticator
	logger Logger

	// decoyHash keeps the unknown-identifier path as expensive as a real
	// comparison so the two rejections are indistinguishable in timing.
	decoyHash string
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:     store,
		hasher:    NewPasswordAuthenticator(DefaultHashCost),
		logger:    defLogger{},
		decoyHash: RandomPasswordHash(),
	}
}

func (u *UserProvider) WithLogger(logger Logger) *UserProvider {
	u.logger = logger
	return u
}

func (u *UserProvider) WithPasswordAuthenticator(hasher PasswordAuthenticator) *UserProvider {
	u.hasher = hasher
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. Unknown identifiers and wrong passwords both come back as
// ErrMismatchedHashAndPassword so callers can not enumerate accounts.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			// burn a comparison so the miss costs the same as a mismatch
			_ = u.hasher.ComparePasswordAndHash(password, u.decoyHash)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return user.Identity(), nil
}

// FindIdentityByID loads an identity by record id, without any credential
// check. Used by the bearer revocation path and session resolution.
func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.GetUser(ctx, uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by id")
	}

	return user.Identity(), nil
}

var _ IdentityProvider = (*UserProvider)(nil)
