package users

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Strategy names for the built-in mechanisms.
const (
	StrategyLocal  = "local"
	StrategyBearer = "jwt"
)

// Credentials are the claimed, unverified inputs a request carries.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Strategy resolves claimed credentials into a validated identity or a
// rejection. Strategies never mutate records and are never retried.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
}

// LocalStrategy authenticates username/password pairs against the store.
// The username field carries the account email.
type LocalStrategy struct {
	provider IdentityProvider
	logger   Logger
}

// NewLocalStrategy returns the "local" strategy backed by the provider.
func NewLocalStrategy(provider IdentityProvider) *LocalStrategy {
	return &LocalStrategy{
		provider: provider,
		logger:   defLogger{},
	}
}

func (s *LocalStrategy) WithLogger(logger Logger) *LocalStrategy {
	s.logger = logger
	return s
}

func (s *LocalStrategy) Name() string {
	return StrategyLocal
}

func (s *LocalStrategy) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "empty user or password",
		})
	}

	identity, err := s.provider.VerifyIdentity(ctx, creds.Username, creds.Password)
	if err != nil {
		s.logger.Debug("local strategy rejected credentials", "error", err)
		return nil, err
	}

	return identity, nil
}

// BearerStrategy authenticates requests carrying a signed bearer token.
type BearerStrategy struct {
	validator TokenValidator
	provider  IdentityProvider
	logger    Logger
}

// NewBearerStrategy returns the "jwt" strategy. The decoded claims become
// the identity directly; configure WithRevocationCheck to re-validate the
// subject against the store on every request.
func NewBearerStrategy(validator TokenValidator) *BearerStrategy {
	return &BearerStrategy{
		validator: validator,
		logger:    defLogger{},
	}
}

func (s *BearerStrategy) WithLogger(logger Logger) *BearerStrategy {
	s.logger = logger
	return s
}

// WithRevocationCheck makes the strategy look the subject up on every
// authentication, trading a store read for immediate revocation of tokens
// held by deleted users.
func (s *BearerStrategy) WithRevocationCheck(provider IdentityProvider) *BearerStrategy {
	s.provider = provider
	return s
}

func (s *BearerStrategy) Name() string {
	return StrategyBearer
}

func (s *BearerStrategy) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	if creds.Token == "" {
		return nil, ErrInvalidCredentialsInput.Clone().WithMetadata(map[string]any{
			"reason": "empty bearer token",
		})
	}

	claims, err := s.validator.Validate(creds.Token)
	if err != nil {
		s.logger.Debug("bearer strategy rejected token", "error", err)
		if IsTokenExpiredError(err) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if err := s.Revalidate(ctx, claims); err != nil {
		return nil, err
	}

	return IdentityFromClaims(claims), nil
}

// Revalidate re-checks that the claims subject still exists when a
// revocation provider is configured. Valid claims for a vanished user are
// rejected as not found.
func (s *BearerStrategy) Revalidate(ctx context.Context, claims AuthClaims) error {
	if s.provider == nil {
		return nil
	}

	if _, err := s.provider.FindIdentityByID(ctx, claims.UserID()); err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to re-validate token subject")
	}

	return nil
}

// StrategySet is an immutable mapping from strategy name to authenticator,
// built once at startup and passed by reference to callers. It replaces a
// mutable process-wide registry.
type StrategySet struct {
	strategies map[string]Strategy
}

// NewStrategySet collects strategies by name. Later entries with a
// duplicate name are ignored; the set never changes after construction.
func NewStrategySet(strategies ...Strategy) *StrategySet {
	set := &StrategySet{
		strategies: make(map[string]Strategy, len(strategies)),
	}

	for _, s := range strategies {
		if s == nil {
			continue
		}
		if _, ok := set.strategies[s.Name()]; ok {
			continue
		}
		set.strategies[s.Name()] = s
	}

	return set
}

// Use returns the strategy registered under name.
func (ss *StrategySet) Use(name string) (Strategy, error) {
	s, ok := ss.strategies[name]
	if !ok {
		return nil, errors.New("unknown authentication strategy", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode("UNKNOWN_STRATEGY").
			WithMetadata(map[string]any{"strategy": name})
	}
	return s, nil
}

// Names lists the registered strategy names.
func (ss *StrategySet) Names() []string {
	names := make([]string, 0, len(ss.strategies))
	for name := range ss.strategies {
		names = append(names, name)
	}
	return names
}
