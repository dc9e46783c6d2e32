package users

import (
	"context"
)

// Auther wires the built-in strategies and the token service behind the
// Authenticator interface. All fields are read-only after construction.
type Auther struct {
	provider     IdentityProvider
	signingKey   []byte
	tokenTTL     int
	issuer       string
	audience     []string
	logger       Logger
	tokenService TokenService
	strategies   *StrategySet
}

// NewAuthenticator returns a new Authenticator with the "local" and "jwt"
// strategies registered. The bearer strategy re-validates token subjects
// against the provider so deleted accounts are rejected before expiry.
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenTTL(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	a := &Auther{
		provider:     provider,
		signingKey:   []byte(opts.GetSigningKey()),
		tokenTTL:     opts.GetTokenTTL(),
		issuer:       opts.GetIssuer(),
		audience:     opts.GetAudience(),
		logger:       defLogger{},
		tokenService: tokenService,
	}

	a.strategies = NewStrategySet(
		NewLocalStrategy(provider),
		NewBearerStrategy(tokenService).WithRevocationCheck(provider),
	)

	return a
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithStrategies replaces the default strategy set, for callers that plug
// in additional mechanisms at startup.
func (s *Auther) WithStrategies(set *StrategySet) *Auther {
	if set != nil {
		s.strategies = set
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Strategies returns the immutable strategy set.
func (s *Auther) Strategies() *StrategySet {
	return s.strategies
}

// Authenticate resolves credentials through the named strategy.
func (s *Auther) Authenticate(ctx context.Context, strategy string, creds Credentials) (Identity, error) {
	st, err := s.strategies.Use(strategy)
	if err != nil {
		return nil, err
	}

	return st.Authenticate(ctx, creds)
}

// Login runs the local strategy and mints a bearer token for the resolved
// identity using the configured TTL.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := s.Authenticate(ctx, StrategyLocal, Credentials{
		Username: identifier,
		Password: password,
	})
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return "", err
	}

	token, err := s.tokenService.Mint(identity, s.ttl())
	if err != nil {
		s.logger.Error("Login token mint error", "error", err)
		return "", err
	}

	return token, nil
}

// IdentityFromToken resolves a raw bearer token through the jwt strategy.
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	return s.Authenticate(ctx, StrategyBearer, Credentials{Token: raw})
}

func (s *Auther) ttl() int {
	if s.tokenTTL > 0 {
		return s.tokenTTL
	}
	return DefaultTokenTTL
}

var _ Authenticator = (*Auther)(nil)
