package users

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultSessionTTL matches the token lifetime: 7 days, in seconds.
const DefaultSessionTTL = 604800

// SessionStore is the persistence capability the manager needs.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// SessionManager issues, resolves, and destroys server-side session
// handles. The cookie value is the session id signed with an HMAC derived
// from the configured secret and salt; the stored row stays authoritative.
type SessionManager struct {
	store    SessionStore
	provider IdentityProvider
	secret   []byte
	salt     []byte
	ttl      int
	logger   Logger
}

// NewSessionManager builds a manager. ttlSeconds <= 0 falls back to
// DefaultSessionTTL.
func NewSessionManager(store SessionStore, provider IdentityProvider, secret, salt string, ttlSeconds int) *SessionManager {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultSessionTTL
	}
	return &SessionManager{
		store:    store,
		provider: provider,
		secret:   []byte(secret),
		salt:     []byte(salt),
		ttl:      ttlSeconds,
		logger:   defLogger{},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	m.logger = logger
	return m
}

// Start creates a handle for the identity and returns its signed cookie
// value.
func (m *SessionManager) Start(ctx context.Context, identity Identity) (string, error) {
	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "identity has a non-uuid id")
	}

	now := time.Now()
	expires := now.Add(time.Duration(m.ttl) * time.Second)

	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: &now,
		ExpiresAt: &expires,
	}

	if _, err := m.store.CreateSession(ctx, session); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}

	return m.signHandle(session.ID), nil
}

// Resolve verifies the handle signature, loads the row, and returns the
// identity it belongs to. Expired or unknown handles are unauthenticated.
func (m *SessionManager) Resolve(ctx context.Context, handle string) (Identity, error) {
	id, err := m.verifyHandle(handle)
	if err != nil {
		return nil, err
	}

	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}

	if session.Expired(time.Now()) {
		return nil, ErrIdentityNotFound
	}

	return m.provider.FindIdentityByID(ctx, session.UserID.String())
}

// Destroy deletes the handle. Destroying a handle that does not exist, or
// one already destroyed, fails with ErrSessionNotFound; the logout flow
// surfaces that instead of pretending it worked.
func (m *SessionManager) Destroy(ctx context.Context, handle string) error {
	id, err := m.verifyHandle(handle)
	if err != nil {
		return ErrSessionNotFound
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		if errors.IsNotFound(err) {
			return ErrSessionNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}

	return nil
}

// signHandle encodes "<id>.<base64(hmac-sha256(salt||id))>".
func (m *SessionManager) signHandle(id uuid.UUID) string {
	return id.String() + "." + m.signature(id.String())
}

func (m *SessionManager) verifyHandle(handle string) (uuid.UUID, error) {
	parts := strings.SplitN(handle, ".", 2)
	if len(parts) != 2 {
		return uuid.Nil, ErrSessionNotFound
	}

	if !hmac.Equal([]byte(m.signature(parts[0])), []byte(parts[1])) {
		return uuid.Nil, ErrSessionNotFound
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}

	return id, nil
}

func (m *SessionManager) signature(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write(m.salt)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
