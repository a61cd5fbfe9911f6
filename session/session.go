// Package session is the client-side session store: the single source of
// truth for the signed-in identity, persisted across relaunches through a
// [Storage] implementation.
//
// One [Manager] exists per running client. State-changing operations
// (Restore, Login, LoginAsGuest, Logout, UpdateProfile, SaveSettings) are
// serialized through an internal mutex, so overlapping calls from different
// goroutines apply one at a time in arrival order.
//
// Failures degrade to "treat as unauthenticated": storage and network errors
// are logged and swallowed, Login reports failure as a boolean, and nothing
// here panics except [Manager.Snapshot] when called before Restore — that is
// a programmer error, not a runtime condition.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	railsight "github.com/railsight/railsight"
)

const (
	storageKeyUser     = "user"
	storageKeyToken    = "token"
	storageKeySettings = "settings"
)

// GuestUser is the locally synthesized identity used by LoginAsGuest. It
// never reaches the server; guard-protected calls must not be attempted for
// a guest session.
var GuestUser = railsight.User{
	ID:    "guest",
	Email: "guest@railway.com",
	Name:  "Guest User",
}

// API is the slice of the gateway client the session manager needs.
// *client.Client satisfies it.
type API interface {
	Login(ctx context.Context, username, password string) (railsight.LoginResult, error)
}

// State is a point-in-time view of the session.
type State struct {
	User          *railsight.User
	Authenticated bool
	Loading       bool
}

// Settings is the fixed set of client toggles persisted with the session.
// Named boolean fields replace the original's open string-keyed map so every
// toggle is covered at compile time.
type Settings struct {
	PushNotifications   bool `json:"pushNotifications"`
	EmailNotifications  bool `json:"emailNotifications"`
	InspectionReminders bool `json:"inspectionReminders"`
	DarkMode            bool `json:"darkMode"`
}

// DefaultSettings are applied until the user changes a toggle.
func DefaultSettings() Settings {
	return Settings{
		PushNotifications:   true,
		EmailNotifications:  true,
		InspectionReminders: true,
	}
}

// Config assembles a Manager.
type Config struct {
	API     API
	Storage Storage
	Logger  *slog.Logger
	// OnSignedOut runs after Logout transitions an authenticated session to
	// signed-out; the UI uses it to navigate back to the login screen. It is
	// not invoked by redundant Logout calls.
	OnSignedOut func()
}

// Manager owns the session state. Construct with [NewManager], call
// [Manager.Restore] once at startup, then read through [Manager.Snapshot].
type Manager struct {
	api         API
	storage     Storage
	log         *slog.Logger
	onSignedOut func()

	restoreOnce sync.Once
	restored    atomic.Bool

	mu    sync.Mutex
	user  *railsight.User
	token string
}

// NewManager creates an unrestored Manager. Storage defaults to an in-memory
// store and Logger to slog.Default when nil.
func NewManager(cfg Config) *Manager {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		api:         cfg.API,
		storage:     cfg.Storage,
		log:         cfg.Logger,
		onSignedOut: cfg.OnSignedOut,
	}
}

// Restore loads the persisted user and token. It runs its body exactly once
// per Manager; later calls return immediately. The session becomes
// authenticated only when the user decodes and a token is present, with the
// tokenless guest identity as the one exception; any failure is logged and
// treated as unauthenticated.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		defer m.restored.Store(true)

		storedUser, userOK, err := m.storage.Get(ctx, storageKeyUser)
		if err != nil {
			m.log.Error("session.restore.fail", "err", err)
			return
		}
		token, tokenOK, err := m.storage.Get(ctx, storageKeyToken)
		if err != nil {
			m.log.Error("session.restore.fail", "err", err)
			return
		}
		if !userOK {
			return
		}

		var user railsight.User
		if err := json.Unmarshal([]byte(storedUser), &user); err != nil {
			m.log.Error("session.restore.corrupt", "err", err)
			return
		}
		// Only the guest identity may restore without a token, and a guest
		// never restores with one.
		if user.ID == GuestUser.ID {
			token = ""
		} else if !tokenOK {
			return
		}

		m.mu.Lock()
		m.user = &user
		m.token = token
		m.mu.Unlock()
	})
}

// Loading reports whether Restore has not yet completed. Route decisions
// must suspend while this is true.
func (m *Manager) Loading() bool {
	return !m.restored.Load()
}

// Snapshot returns the current session state. It panics when called before
// Restore has completed: reading the session outside the manager's lifetime
// is a programmer error.
func (m *Manager) Snapshot() State {
	if !m.restored.Load() {
		panic("session: Snapshot called before Restore completed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := State{Authenticated: m.user != nil}
	if m.user != nil {
		u := *m.user
		state.User = &u
	}
	return state
}

// Token returns the persisted bearer token, empty for guest or signed-out
// sessions.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Login exchanges credentials for a session. On success the user (with ID
// defaulted to the email when the server omits it) and token are persisted
// and the session becomes authenticated. Every failure — transport, non-2xx,
// storage — leaves the prior state untouched and returns false; nothing is
// thrown past this boundary.
func (m *Manager) Login(ctx context.Context, email, pass string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.api == nil {
		m.log.Error("session.login.fail", "err", "no API configured")
		return false
	}

	result, err := m.api.Login(ctx, email, pass)
	if err != nil {
		m.log.Error("session.login.fail", "err", err)
		return false
	}

	user := result.User
	if user.ID == "" {
		user.ID = email
	}

	if err := m.persistUserLocked(ctx, user); err != nil {
		m.log.Error("session.login.persist.fail", "err", err)
		return false
	}
	if err := m.storage.Set(ctx, storageKeyToken, result.Token); err != nil {
		m.log.Error("session.login.persist.fail", "err", err)
		return false
	}

	m.user = &user
	m.token = result.Token
	return true
}

// LoginAsGuest activates the local guest identity without any network call.
// The guest session persists like a normal one but holds no token.
func (m *Manager) LoginAsGuest(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	guest := GuestUser
	if err := m.persistUserLocked(ctx, guest); err != nil {
		m.log.Error("session.guest.persist.fail", "err", err)
	}
	// A guest holds no token. Drop any bearer left by a previous signed-in
	// user, otherwise a later Restore would produce a guest session carrying
	// that user's still-valid credential.
	if err := m.storage.Delete(ctx, storageKeyToken); err != nil {
		m.log.Error("session.guest.persist.fail", "err", err)
	}
	m.user = &guest
	m.token = ""
}

// Logout clears the persisted credential and the in-memory state. It is
// idempotent: a second call is a no-op and does not re-trigger OnSignedOut.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()

	if err := m.storage.Delete(ctx, storageKeyToken); err != nil {
		m.log.Error("session.logout.fail", "err", err)
	}
	if err := m.storage.Delete(ctx, storageKeyUser); err != nil {
		m.log.Error("session.logout.fail", "err", err)
	}

	wasAuthenticated := m.user != nil
	m.user = nil
	m.token = ""
	m.mu.Unlock()

	if wasAuthenticated && m.onSignedOut != nil {
		m.onSignedOut()
	}
}

// ProfileUpdate carries the fields UpdateProfile merges. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name           *string
	Email          *string
	ProfilePicture *string
}

// UpdateProfile shallow-merges updates into the active user and re-persists
// the result. Profile data is client-authoritative; no server call happens
// here. Without an active user this is a no-op.
func (m *Manager) UpdateProfile(ctx context.Context, updates ProfileUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return
	}

	merged := *m.user
	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Email != nil {
		merged.Email = *updates.Email
	}
	if updates.ProfilePicture != nil {
		merged.ProfilePicture = *updates.ProfilePicture
	}

	if err := m.persistUserLocked(ctx, merged); err != nil {
		m.log.Error("session.profile.persist.fail", "err", err)
		return
	}
	m.user = &merged
}

// Settings returns the persisted toggles, or defaults when none are stored
// or the stored record is unreadable.
func (m *Manager) Settings(ctx context.Context) Settings {
	stored, ok, err := m.storage.Get(ctx, storageKeySettings)
	if err != nil || !ok {
		if err != nil {
			m.log.Error("session.settings.read.fail", "err", err)
		}
		return DefaultSettings()
	}

	var settings Settings
	if err := json.Unmarshal([]byte(stored), &settings); err != nil {
		m.log.Error("session.settings.corrupt", "err", err)
		return DefaultSettings()
	}
	return settings
}

// SaveSettings persists the toggle record.
func (m *Manager) SaveSettings(ctx context.Context, settings Settings) {
	data, err := json.Marshal(settings)
	if err != nil {
		m.log.Error("session.settings.save.fail", "err", err)
		return
	}
	if err := m.storage.Set(ctx, storageKeySettings, string(data)); err != nil {
		m.log.Error("session.settings.save.fail", "err", err)
	}
}

func (m *Manager) persistUserLocked(ctx context.Context, user railsight.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return m.storage.Set(ctx, storageKeyUser, string(data))
}
