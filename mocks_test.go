package users_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// MockUserFinder implements users.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserFinder) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

// MockIdentityProvider implements users.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (users.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(users.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByID(ctx context.Context, id string) (users.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(users.Identity), args.Error(1)
}

// memUsers is an in-memory users.Users store. The embedded interface covers
// the generic repository surface the tests never touch.
type memUsers struct {
	users.Users
	mu      sync.Mutex
	byID    map[uuid.UUID]*users.User
	created []uuid.UUID
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID: map[uuid.UUID]*users.User{},
	}
}

func notFound(meta map[string]any) error {
	return repository.NewRecordNotFound().WithMetadata(meta)
}

func (m *memUsers) clone(u *users.User) *users.User {
	cp := *u
	return &cp
}

func (m *memUsers) Register(ctx context.Context, user *users.User) (*users.User, error) {
	return m.RegisterTx(ctx, nil, user)
}

func (m *memUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *users.User) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	m.byID[user.ID] = m.clone(user)
	m.created = append(m.created, user.ID)

	return m.clone(user), nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return m.GetByEmailTx(ctx, nil, email)
}

func (m *memUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Email == email {
			return m.clone(u), nil
		}
	}

	return nil, notFound(map[string]any{"email": email})
}

func (m *memUsers) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}

	return m.clone(u), nil
}

func (m *memUsers) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}

	u.FirstName = firstName
	u.LastName = lastName

	return m.clone(u), nil
}

func (m *memUsers) ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}

	u.Email = email

	return m.clone(u), nil
}

func (m *memUsers) ChangePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.ChangePasswordTx(ctx, nil, id, passwordHash)
}

func (m *memUsers) ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return notFound(map[string]any{"id": id.String()})
	}

	u.PasswordHash = passwordHash

	return nil
}

func (m *memUsers) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return notFound(map[string]any{"id": id.String()})
	}

	delete(m.byID, id)

	return nil
}

func (m *memUsers) ListPage(ctx context.Context, skip, take int) ([]*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// newest first, mirroring the created_at DESC ordering of the real store
	records := make([]*users.User, 0, len(m.byID))
	for i := len(m.created) - 1; i >= 0; i-- {
		if u, ok := m.byID[m.created[i]]; ok {
			records = append(records, m.clone(u))
		}
	}

	if skip >= len(records) {
		return []*users.User{}, nil
	}

	records = records[skip:]
	if take < len(records) {
		records = records[:take]
	}

	return records, nil
}

func (m *memUsers) CountAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

// memSessions is an in-memory users.SessionStore
type memSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*users.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[uuid.UUID]*users.Session{}}
}

func (m *memSessions) CreateSession(ctx context.Context, session *users.Session) (*users.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	cp := *session
	m.byID[session.ID] = &cp

	return session, nil
}

func (m *memSessions) GetSession(ctx context.Context, id uuid.UUID) (*users.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}

	cp := *s
	return &cp, nil
}

func (m *memSessions) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return notFound(map[string]any{"id": id.String()})
	}

	delete(m.byID, id)

	return nil
}

// memRepoMngr bundles the in-memory stores behind users.RepositoryManager
type memRepoMngr struct {
	users    *memUsers
	sessions *memSessions
}

func newMemRepoMngr() *memRepoMngr {
	return &memRepoMngr{
		users:    newMemUsers(),
		sessions: newMemSessions(),
	}
}

func (m *memRepoMngr) Validate() error { return nil }
func (m *memRepoMngr) MustValidate()   {}

func (m *memRepoMngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *memRepoMngr) Users() users.Users       { return m.users }
func (m *memRepoMngr) Sessions() users.Sessions { return m.sessions }

// testConfig implements users.Config
type testConfig struct {
	signingKey    string
	tokenTTL      int
	hashCost      int
	sessionSecret string
	sessionSalt   string
	sessionTTL    int
	issuer        string
	audience      []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:    "test-signing-key",
		tokenTTL:      3600,
		hashCost:      4,
		sessionSecret: "test-session-secret",
		sessionSalt:   "test-session-salt",
		sessionTTL:    3600,
	}
}

func (c *testConfig) GetSigningKey() string    { return c.signingKey }
func (c *testConfig) GetTokenTTL() int         { return c.tokenTTL }
func (c *testConfig) GetHashCost() int         { return c.hashCost }
func (c *testConfig) GetSessionSecret() string { return c.sessionSecret }
func (c *testConfig) GetSessionSalt() string   { return c.sessionSalt }
func (c *testConfig) GetSessionTTL() int       { return c.sessionTTL }
func (c *testConfig) GetContextKey() string    { return "user" }
func (c *testConfig) GetTokenLookup() string   { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string    { return "Bearer" }
func (c *testConfig) GetIssuer() string        { return c.issuer }
func (c *testConfig) GetAudience() []string    { return c.audience }

func assertTextCode(t *testing.T, err error, want string) {
	t.Helper()

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a rich error, got %v", err)
	assert.Equal(t, want, richErr.TextCode)
}

func testIdentity(id, email string) users.Identity {
	claims := &users.JWTClaims{
		UID:       id,
		UserEmail: email,
		First:     "Test",
		Last:      "User",
	}
	return users.IdentityFromClaims(claims)
}
