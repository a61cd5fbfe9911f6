package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	railsight "github.com/railsight/railsight"
)

type fakeAPI struct {
	calls  int
	result railsight.LoginResult
	err    error
}

func (f *fakeAPI) Login(context.Context, string, string) (railsight.LoginResult, error) {
	f.calls++
	return f.result, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRestoredManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	m := NewManager(cfg)
	m.Restore(context.Background())
	return m
}

func TestLoginStoresUserAndToken(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{
		Token: "t1",
		User:  railsight.User{Name: "a@b.com", Email: "a@b.com"},
	}}
	storage := NewMemoryStorage()
	m := newRestoredManager(t, Config{API: api, Storage: storage})

	if !m.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("expected login to succeed")
	}

	state := m.Snapshot()
	if !state.Authenticated {
		t.Fatal("expected authenticated state")
	}
	if state.User.ID != "a@b.com" {
		t.Fatalf("user ID = %q, want login email as fallback", state.User.ID)
	}
	if m.Token() != "t1" {
		t.Fatalf("token = %q, want t1", m.Token())
	}

	// Both keys are durably stored for the next launch.
	storedToken, ok, err := storage.Get(context.Background(), "token")
	if err != nil || !ok || storedToken != "t1" {
		t.Fatalf("stored token = %q ok=%v err=%v", storedToken, ok, err)
	}
	storedUser, ok, err := storage.Get(context.Background(), "user")
	if err != nil || !ok {
		t.Fatalf("stored user missing, err=%v", err)
	}
	var user railsight.User
	if err := json.Unmarshal([]byte(storedUser), &user); err != nil {
		t.Fatalf("stored user corrupt: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Fatalf("stored user = %+v", user)
	}
}

func TestLoginFailureLeavesPriorState(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{Token: "t1", User: railsight.User{ID: "u1"}}}
	m := newRestoredManager(t, Config{API: api})

	if !m.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("first login should succeed")
	}

	api.err = errors.New("gateway down")
	if m.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("second login should fail")
	}

	state := m.Snapshot()
	if !state.Authenticated || state.User.ID != "u1" {
		t.Fatalf("state after failure = %+v, want first session intact", state)
	}
	if m.Token() != "t1" {
		t.Fatalf("token = %q, want prior token retained", m.Token())
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{Token: "t1", User: railsight.User{ID: "u1", Name: "Asha"}}}
	storage := NewMemoryStorage()

	first := newRestoredManager(t, Config{API: api, Storage: storage})
	if !first.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("login failed")
	}

	// A new manager over the same storage restores the session.
	second := newRestoredManager(t, Config{API: api, Storage: storage})
	state := second.Snapshot()
	if !state.Authenticated || state.User.Name != "Asha" {
		t.Fatalf("restored state = %+v", state)
	}
	if second.Token() != "t1" {
		t.Fatalf("restored token = %q", second.Token())
	}
}

func TestRestoreWithPartialKeysIsUnauthenticated(t *testing.T) {
	storage := NewMemoryStorage()
	if err := storage.Set(context.Background(), "token", "orphan"); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	m := newRestoredManager(t, Config{Storage: storage})
	if m.Snapshot().Authenticated {
		t.Fatal("token without user should not authenticate")
	}

	userOnly := NewMemoryStorage()
	user, _ := json.Marshal(railsight.User{ID: "u1"})
	if err := userOnly.Set(context.Background(), "user", string(user)); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	m = newRestoredManager(t, Config{Storage: userOnly})
	if m.Snapshot().Authenticated {
		t.Fatal("non-guest user without token should not authenticate")
	}
}

func TestRestoreWithCorruptUserIsUnauthenticated(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()
	_ = storage.Set(ctx, "user", "{not json")
	_ = storage.Set(ctx, "token", "t1")

	m := newRestoredManager(t, Config{Storage: storage})
	if m.Snapshot().Authenticated {
		t.Fatal("corrupt user record should not authenticate")
	}
}

func TestRestoreRunsOnce(t *testing.T) {
	storage := NewMemoryStorage()
	m := newRestoredManager(t, Config{Storage: storage})

	// A session persisted after the first Restore must not be picked up by a
	// second Restore call.
	user, _ := json.Marshal(railsight.User{ID: "u1"})
	_ = storage.Set(context.Background(), "user", string(user))
	_ = storage.Set(context.Background(), "token", "t1")

	m.Restore(context.Background())
	if m.Snapshot().Authenticated {
		t.Fatal("second Restore should be a no-op")
	}
}

func TestSnapshotBeforeRestorePanics(t *testing.T) {
	m := NewManager(Config{Logger: quietLogger()})

	defer func() {
		if recover() == nil {
			t.Fatal("expected Snapshot before Restore to panic")
		}
	}()
	m.Snapshot()
}

func TestLoadingFlag(t *testing.T) {
	m := NewManager(Config{Logger: quietLogger()})
	if !m.Loading() {
		t.Fatal("unrestored manager should report loading")
	}
	m.Restore(context.Background())
	if m.Loading() {
		t.Fatal("restored manager should not report loading")
	}
}

func TestLoginAsGuestMakesNoAPICall(t *testing.T) {
	api := &fakeAPI{}
	m := newRestoredManager(t, Config{API: api})

	m.LoginAsGuest(context.Background())

	if api.calls != 0 {
		t.Fatalf("api calls = %d, want 0", api.calls)
	}
	state := m.Snapshot()
	if !state.Authenticated {
		t.Fatal("guest session should be authenticated")
	}
	if state.User.ID != "guest" || state.User.Email != "guest@railway.com" || state.User.Name != "Guest User" {
		t.Fatalf("guest user = %+v", state.User)
	}
	if m.Token() != "" {
		t.Fatal("guest session must hold no token")
	}
}

func TestGuestAfterLoginDropsStoredToken(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{Token: "t1", User: railsight.User{ID: "u1"}}}
	storage := NewMemoryStorage()
	ctx := context.Background()

	first := newRestoredManager(t, Config{API: api, Storage: storage})
	if !first.Login(ctx, "a@b.com", "pw") {
		t.Fatal("login failed")
	}

	first.LoginAsGuest(ctx)
	if first.Token() != "" {
		t.Fatalf("token = %q, want empty after guest activation", first.Token())
	}
	if _, ok, _ := storage.Get(ctx, "token"); ok {
		t.Fatal("stored token must be dropped when the guest takes over")
	}

	// A relaunch must restore a plain guest, not a guest holding the
	// previous user's credential.
	second := newRestoredManager(t, Config{API: api, Storage: storage})
	state := second.Snapshot()
	if !state.Authenticated || state.User.ID != "guest" {
		t.Fatalf("restored state = %+v, want guest session", state)
	}
	if second.Token() != "" {
		t.Fatalf("guest session restored with token %q", second.Token())
	}
}

func TestLogoutIsIdempotentAndSignalsOnce(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{Token: "t1", User: railsight.User{ID: "u1"}}}
	storage := NewMemoryStorage()

	signals := 0
	m := newRestoredManager(t, Config{API: api, Storage: storage, OnSignedOut: func() { signals++ }})

	if !m.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("login failed")
	}

	m.Logout(context.Background())
	m.Logout(context.Background())

	if signals != 1 {
		t.Fatalf("OnSignedOut ran %d times, want 1", signals)
	}
	if m.Snapshot().Authenticated {
		t.Fatal("expected signed-out state")
	}
	if _, ok, _ := storage.Get(context.Background(), "token"); ok {
		t.Fatal("token should be deleted from storage")
	}
	if _, ok, _ := storage.Get(context.Background(), "user"); ok {
		t.Fatal("user should be deleted from storage")
	}
}

func TestUpdateProfileMergesAndPersists(t *testing.T) {
	api := &fakeAPI{result: railsight.LoginResult{
		Token: "t1",
		User:  railsight.User{ID: "u1", Name: "Asha", Email: "a@b.com"},
	}}
	storage := NewMemoryStorage()
	m := newRestoredManager(t, Config{API: api, Storage: storage})

	if !m.Login(context.Background(), "a@b.com", "pw") {
		t.Fatal("login failed")
	}

	name := "Asha R"
	m.UpdateProfile(context.Background(), ProfileUpdate{Name: &name})

	state := m.Snapshot()
	if state.User.Name != "Asha R" {
		t.Fatalf("name = %q, want merged update", state.User.Name)
	}
	if state.User.Email != "a@b.com" {
		t.Fatal("untouched field must survive the merge")
	}

	stored, ok, err := storage.Get(context.Background(), "user")
	if err != nil || !ok {
		t.Fatalf("stored user missing, err=%v", err)
	}
	var user railsight.User
	if err := json.Unmarshal([]byte(stored), &user); err != nil {
		t.Fatalf("stored user corrupt: %v", err)
	}
	if user.Name != "Asha R" {
		t.Fatalf("persisted name = %q", user.Name)
	}
}

func TestUpdateProfileWithoutUserIsNoOp(t *testing.T) {
	m := newRestoredManager(t, Config{})

	name := "Nobody"
	m.UpdateProfile(context.Background(), ProfileUpdate{Name: &name})

	if m.Snapshot().Authenticated {
		t.Fatal("profile update must not create a session")
	}
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	storage := NewMemoryStorage()
	m := newRestoredManager(t, Config{Storage: storage})
	ctx := context.Background()

	settings := m.Settings(ctx)
	if settings != DefaultSettings() {
		t.Fatalf("fresh settings = %+v, want defaults", settings)
	}

	settings.DarkMode = true
	settings.PushNotifications = false
	m.SaveSettings(ctx, settings)

	if got := m.Settings(ctx); got != settings {
		t.Fatalf("round-trip settings = %+v, want %+v", got, settings)
	}
}
