package railsight

import (
	"errors"
	"time"
)

// Config carries every tunable of the Gateway. Instances are configured
// during initialization and treated as immutable afterwards.
type Config struct {
	JWT         JWTConfig
	Credentials CredentialsConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

// JWTConfig controls token issuance and verification.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	SecretKey     []byte // hs256 signing secret
	PrivateKey    []byte // ed25519
	PublicKey     []byte // ed25519
	Issuer        string
	Leeway        time.Duration
}

// CredentialMode selects how Login treats the password field.
type CredentialMode uint8

const (
	// CredentialAcceptAny accepts any non-empty username/password pair
	// without checking a stored hash. NOT safe for production; it is the
	// default only for demo deployments where no user directory exists.
	// See CredentialVerify.
	CredentialAcceptAny CredentialMode = iota
	// CredentialVerify requires a directory record with an Argon2id hash
	// matching the supplied password.
	CredentialVerify
)

// CredentialsConfig controls password handling at login.
type CredentialsConfig struct {
	Mode CredentialMode
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration used by the stock server: 1 hour
// access tokens, HS256 signing, demo credential mode, metrics on, audit off.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			SigningMethod: "hs256",
			Issuer:        "railsight",
		},
		Credentials: CredentialsConfig{Mode: CredentialAcceptAny},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks invariants that Build relies on.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.SecretKey) == 0 {
			return errors.New("hs256 requires a secret key")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires a key pair")
		}
	default:
		return errors.New("unsupported signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if c.Credentials.Mode > CredentialVerify {
		return errors.New("invalid credential mode")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SecretKey = append([]byte(nil), cfg.JWT.SecretKey...)
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}
