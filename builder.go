package railsight

import (
	"errors"

	internalaudit "github.com/railsight/railsight/internal/audit"
	"github.com/railsight/railsight/jwt"
	"github.com/railsight/railsight/password"
)

// Builder assembles a [Gateway]. Construction is allocation-only until Build.
type Builder struct {
	config    Config
	directory UserDirectory
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDirectory sets the user lookup backend. Optional: without it every
// login synthesizes its user from the login name.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the destination for audit events. Ignored unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Gateway. A Builder
// may be used once.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Credentials.Mode == CredentialVerify && b.directory == nil {
		return nil, errors.New("credential verification requires a user directory")
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		SecretKey:     cfg.JWT.SecretKey,
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	var hasher *password.Hasher
	if cfg.Credentials.Mode == CredentialVerify {
		hasher, err = password.NewHasher(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	b.built = true

	return &Gateway{
		config:    cfg,
		tokens:    tokens,
		directory: b.directory,
		hasher:    hasher,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}, nil
}
