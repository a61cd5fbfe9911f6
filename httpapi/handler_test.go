package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	railsight "github.com/railsight/railsight"
	"github.com/railsight/railsight/store"
)

func newTestHandler(t *testing.T, st store.Store) *Handler {
	t.Helper()

	cfg := railsight.DefaultConfig()
	cfg.JWT.SecretKey = []byte("test-secret-test-secret-test")

	gateway, err := railsight.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build gateway: %v", err)
	}
	t.Cleanup(gateway.Close)

	if st == nil {
		st = store.NewMemory()
	}

	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), gateway, st)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"username": "a@b.com",
		"password": "pw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result railsight.LoginResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned empty token")
	}
	return result.Token
}

func messageBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["message"]
}

func TestLoginIssuesTokenAndUser(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"username": "a@b.com",
		"password": "pw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result railsight.LoginResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.User.ID != "a@b.com" || result.User.Email != "a@b.com" {
		t.Fatalf("user = %+v, want fields defaulted to login name", result.User)
	}
}

func TestLoginRejectsBadInput(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty username", body: `{"username":"","password":"pw"}`},
		{name: "empty password", body: `{"username":"a@b.com","password":""}`},
		{name: "malformed json", body: `{"username":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := messageBody(t, rec); got != "Invalid credentials" {
				t.Fatalf("message = %q", got)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user"},
		{http.MethodGet, "/api/metrics"},
		{http.MethodPut, "/api/metrics"},
		{http.MethodGet, "/api/notifications"},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := doJSON(t, router, route.method, route.path, "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("no header status = %d, want 401", rec.Code)
			}

			rec = doJSON(t, router, route.method, route.path, "bad-token", nil)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("bad token status = %d, want 403", rec.Code)
			}
		})
	}
}

func TestUserEndpointReturnsIdentity(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	token := loginToken(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		User railsight.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Name != "a@b.com" {
		t.Fatalf("user = %+v", body.User)
	}
}

func TestMetricsGetAndPut(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	token := loginToken(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/metrics", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/metrics", token, map[string]int{"tracked": 9})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}

	var metrics railsight.DashboardMetrics
	if err := json.NewDecoder(rec.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if metrics.Tracked != 9 {
		t.Fatalf("tracked = %d, want 9", metrics.Tracked)
	}
}

func TestNotificationsList(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	token := loginToken(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/notifications", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var notifications []railsight.Notification
	if err := json.NewDecoder(rec.Body).Decode(&notifications); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("notifications = %d, want 2 seeded", len(notifications))
	}
}

func TestLogoutIsStatelessAnd200(t *testing.T) {
	router := newTestHandler(t, nil).Router()
	token := loginToken(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/logout", token, struct{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := messageBody(t, rec); got != "Logged out successfully" {
		t.Fatalf("message = %q", got)
	}

	// No revocation: the token keeps working until expiry.
	rec = doJSON(t, router, http.MethodGet, "/api/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-logout status = %d, want 200", rec.Code)
	}

	// Logout without any token is still 200.
	rec = doJSON(t, router, http.MethodPost, "/api/logout", "", struct{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("tokenless logout status = %d", rec.Code)
	}
}

func TestGrievanceLifecycle(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/grievances", "", map[string]string{
		"description": "Broken sleeper near station",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}

	var created railsight.Grievance
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "Open" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/grievances", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var listed []railsight.Grievance
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed = %d, want 1", len(listed))
	}
}

func TestSamplePart(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/sample-part", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var part railsight.PartRecord
	if err := json.NewDecoder(rec.Body).Decode(&part); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if part.ID != "sample123" || part.Name != "Brake Pad" {
		t.Fatalf("part = %+v", part)
	}
}

func TestUnknownRouteIs404JSON(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := messageBody(t, rec); got != "Not found" {
		t.Fatalf("message = %q", got)
	}

	// Wrong method on a known path is the same 404 contract.
	rec = doJSON(t, router, http.MethodDelete, "/api/login", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("wrong method status = %d, want 404", rec.Code)
	}
}

type panicStore struct {
	store.Store
}

func (panicStore) SamplePart(context.Context) (railsight.PartRecord, error) {
	panic("boom")
}

func TestPanicBecomes500WithGenericBody(t *testing.T) {
	router := newTestHandler(t, panicStore{Store: store.NewMemory()}).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/sample-part", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := messageBody(t, rec); got != "Internal server error" {
		t.Fatalf("message = %q, internals must not leak", got)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatal("panic value leaked to the client")
	}
}

func TestRecoveredPanicIsCountedAs500(t *testing.T) {
	router := newTestHandler(t, panicStore{Store: store.NewMemory()}).Router()

	if rec := doJSON(t, router, http.MethodGet, "/api/sample-part", "", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/internal/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `code="500"`) {
		t.Fatal("recovered request missing from the 500 counter")
	}
}

func TestPrometheusEndpointExposesRequestCounters(t *testing.T) {
	router := newTestHandler(t, nil).Router()

	// Generate one request worth of counter data first.
	if rec := doJSON(t, router, http.MethodGet, "/api/sample-part", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("probe status = %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/internal/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "railsight_http_requests_total") {
		t.Fatal("request counter not exported")
	}
}
