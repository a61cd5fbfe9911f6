package railsight

import (
	"context"
	"errors"

	internalaudit "github.com/railsight/railsight/internal/audit"
	"github.com/railsight/railsight/jwt"
	"github.com/railsight/railsight/password"
)

// Gateway issues signed bearer tokens on login and verifies them on behalf of
// protected routes. It holds no per-session state: logout is purely a
// client-side token removal, and an issued token stays valid until natural
// expiry.
type Gateway struct {
	config    Config
	tokens    *jwt.Manager
	directory UserDirectory
	hasher    *password.Hasher
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
}

// Close drains the audit dispatcher. Safe to call on a nil Gateway.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

// MetricsSnapshot returns a copy of all gateway counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return g.metrics.Snapshot()
}

// AuditDropped reports audit events discarded due to dispatcher backpressure.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

func (g *Gateway) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

// Login authenticates the username/password pair and returns a signed token
// plus the user object the client should adopt.
//
// Both fields must be non-empty. In [CredentialAcceptAny] mode any such pair
// is accepted; when the directory has no record for the name, a user is
// synthesized with ID and Email equal to the name. In [CredentialVerify] mode
// the directory record's Argon2id hash must match the password.
func (g *Gateway) Login(ctx context.Context, username, pass string) (LoginResult, error) {
	if g == nil || g.tokens == nil {
		return LoginResult{}, ErrGatewayNotReady
	}

	if username == "" || pass == "" {
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, username, false, ErrInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := g.resolveUser(ctx, username, pass)
	if err != nil {
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, username, false, err)
		return LoginResult{}, err
	}

	token, err := g.tokens.Issue(user.Name)
	if err != nil {
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, user.ID, false, err)
		return LoginResult{}, err
	}

	g.metricInc(MetricLoginSuccess)
	g.emitAudit(ctx, auditEventLoginSuccess, user.ID, true, nil)

	return LoginResult{Token: token, User: user}, nil
}

func (g *Gateway) resolveUser(ctx context.Context, username, pass string) (User, error) {
	synthesized := User{
		ID:    username,
		Name:  username,
		Email: username,
	}

	if g.directory == nil {
		if g.config.Credentials.Mode == CredentialVerify {
			return User{}, ErrInvalidCredentials
		}
		return synthesized, nil
	}

	record, err := g.directory.GetUserByName(ctx, username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if g.config.Credentials.Mode == CredentialVerify {
			return User{}, ErrInvalidCredentials
		}
		return synthesized, nil
	case err != nil:
		return User{}, err
	}

	if g.config.Credentials.Mode == CredentialVerify {
		if record.PasswordHash == "" || g.hasher == nil {
			return User{}, ErrInvalidCredentials
		}
		ok, verr := g.hasher.Verify(pass, record.PasswordHash)
		if verr != nil || !ok {
			return User{}, ErrInvalidCredentials
		}
	}

	user := record.User
	if user.ID == "" {
		user.ID = username
	}
	if user.Email == "" {
		user.Email = username
	}
	if user.Name == "" {
		user.Name = username
	}
	return user, nil
}

// Verify parses and validates a bearer token. It returns [ErrNoToken] when
// token is empty (no credential supplied) and [ErrTokenInvalid] for any
// signature, claim, or expiry failure (credential rejected). Callers map the
// two to HTTP 401 and 403 respectively.
func (g *Gateway) Verify(ctx context.Context, token string) (*Claims, error) {
	if g == nil || g.tokens == nil {
		return nil, ErrGatewayNotReady
	}

	if token == "" {
		g.metricInc(MetricTokenMissing)
		return nil, ErrNoToken
	}

	parsed, err := g.tokens.Parse(token)
	if err != nil {
		g.metricInc(MetricTokenRejected)
		g.emitAudit(ctx, auditEventTokenRejected, "", false, err)
		return nil, ErrTokenInvalid
	}

	g.metricInc(MetricGuardPassed)

	claims := &Claims{Name: parsed.Name}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

// NotifyLogout records a stateless logout. The token is NOT revoked: there is
// no server-side session to destroy, so a captured token remains usable until
// expiry. Accepted risk; the short access TTL bounds the exposure window.
func (g *Gateway) NotifyLogout(ctx context.Context, name string) {
	if g == nil {
		return
	}
	g.metricInc(MetricLogout)
	g.emitAudit(ctx, auditEventLogout, name, true, nil)
}
