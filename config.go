package users

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is the process-wide configuration, read once at startup and
// immutable thereafter.
type EnvConfig struct {
	SigningKey    string   `env:"JWT_SECRET_KEY"`
	TokenTTL      int      `env:"JWT_TOKEN_TTL" envDefault:"604800"`
	HashCost      int      `env:"AUTH_HASH_COST" envDefault:"10"`
	SessionSecret string   `env:"SESSION_SECRET"`
	SessionSalt   string   `env:"SESSION_SALT"`
	SessionTTL    int      `env:"SESSION_TTL" envDefault:"604800"`
	ContextKey    string   `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenLookup   string   `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme    string   `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer        string   `env:"AUTH_ISSUER"`
	Audience      []string `env:"AUTH_AUDIENCE"`
	DSN           string   `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	HTTPAddr      string   `env:"HTTP_ADDR" envDefault:":3000"`
	DBDebug       bool     `env:"DATABASE_DEBUG" envDefault:"false"`
	DBPingTimeout string   `env:"DATABASE_PING_TIMEOUT" envDefault:"5s"`
}

// PersistenceConfig is the subset of configuration the persistence client
// reads at startup.
type PersistenceConfig struct {
	driver      string
	dsn         string
	debug       bool
	pingTimeout time.Duration
}

func (p *PersistenceConfig) GetDriver() string             { return p.driver }
func (p *PersistenceConfig) GetDSN() string                { return p.dsn }
func (p *PersistenceConfig) GetServer() string             { return p.dsn }
func (p *PersistenceConfig) GetOtelIdentifier() string     { return "" }
func (p *PersistenceConfig) GetDebug() bool                { return p.debug }
func (p *PersistenceConfig) GetPingTimeout() time.Duration { return p.pingTimeout }

// GetPersistence exposes the database section of the environment config.
func (c *EnvConfig) GetPersistence() *PersistenceConfig {
	timeout, err := time.ParseDuration(c.DBPingTimeout)
	if err != nil {
		timeout = 5 * time.Second
	}

	return &PersistenceConfig{
		driver:      "sqlite",
		dsn:         c.DSN,
		debug:       c.DBDebug,
		pingTimeout: timeout,
	}
}

// LoadConfig parses the environment and validates required fields.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse environment configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the startup invariants: a signing secret is mandatory.
func (c *EnvConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("JWT_SECRET_KEY must not be empty", goerrors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_KEY")
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetTokenTTL() int         { return c.TokenTTL }
func (c *EnvConfig) GetHashCost() int         { return c.HashCost }
func (c *EnvConfig) GetSessionSecret() string { return c.SessionSecret }
func (c *EnvConfig) GetSessionSalt() string   { return c.SessionSalt }
func (c *EnvConfig) GetSessionTTL() int       { return c.SessionTTL }
func (c *EnvConfig) GetContextKey() string    { return c.ContextKey }
func (c *EnvConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string        { return c.Issuer }
func (c *EnvConfig) GetAudience() []string    { return c.Audience }

var _ Config = (*EnvConfig)(nil)
