package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	railsight "github.com/railsight/railsight"
	"github.com/railsight/railsight/middleware"
	"github.com/railsight/railsight/store"
)

// Handler wires the wire contract onto a gorilla/mux router: the login and
// logout routes, the guarded user/metrics/notifications routes, and the
// public reports/grievances/sample-part routes.
type Handler struct {
	log     *slog.Logger
	gateway *railsight.Gateway
	store   store.Store
	metrics *requestMetrics
}

// NewHandler constructs an API handler. log falls back to slog.Default.
func NewHandler(log *slog.Logger, gateway *railsight.Gateway, st store.Store) (*Handler, error) {
	if gateway == nil {
		return nil, errors.New("httpapi: nil gateway")
	}
	if st == nil {
		return nil, errors.New("httpapi: nil store")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:     log,
		gateway: gateway,
		store:   st,
		metrics: newRequestMetrics(),
	}, nil
}

// Router builds the route table. Unmatched paths yield 404 with a JSON body;
// handler panics are converted to 500 with the stack logged server-side only.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	// Metrics sit outside panic recovery so recovered requests are counted
	// with their 500 status.
	r.Use(h.metrics.middleware, h.recoverPanic)

	guard := middleware.Guard(h.gateway)

	r.HandleFunc("/", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", h.handleLogout).Methods(http.MethodPost)

	r.Handle("/api/user", guard(http.HandlerFunc(h.handleUser))).Methods(http.MethodGet)
	r.Handle("/api/metrics", guard(http.HandlerFunc(h.handleMetricsGet))).Methods(http.MethodGet)
	r.Handle("/api/metrics", guard(http.HandlerFunc(h.handleMetricsPut))).Methods(http.MethodPut)
	r.Handle("/api/notifications", guard(http.HandlerFunc(h.handleNotifications))).Methods(http.MethodGet)

	r.HandleFunc("/api/reports", h.handleReports).Methods(http.MethodGet)
	r.HandleFunc("/api/grievances", h.handleGrievancesGet).Methods(http.MethodGet)
	r.HandleFunc("/api/grievances", h.handleGrievancesPost).Methods(http.MethodPost)
	r.HandleFunc("/api/sample-part", h.handleSamplePart).Methods(http.MethodGet)

	r.Handle("/internal/metrics", h.metrics.handler()).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	return r
}

func (h *Handler) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				// Stack detail stays server-side; the client sees a
				// generic message only.
				h.log.Error("http.panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeMessage(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ctx := railsight.WithClientIP(r.Context(), r.RemoteAddr)
	ctx = railsight.WithUserAgent(ctx, r.UserAgent())

	result, err := h.gateway.Login(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, railsight.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.log.Error("login.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.log.Info("login.success", "user", result.User.ID)
	writeJSON(w, http.StatusOK, result)
}

// handleLogout is stateless: the token is not revoked server-side, the
// client deletes its copy. See Gateway.NotifyLogout.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	name := ""
	if token, ok := bearerFromHeader(r.Header.Get("Authorization")); ok {
		if claims, err := h.gateway.Verify(r.Context(), token); err == nil {
			name = claims.Name
		}
	}
	h.gateway.NotifyLogout(r.Context(), name)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	user := railsight.User{
		ID:    claims.Name,
		Name:  claims.Name,
		Email: claims.Name,
	}
	record, err := h.store.GetUserByName(r.Context(), claims.Name)
	switch {
	case err == nil:
		user = record.User
	case errors.Is(err, railsight.ErrUserNotFound):
		// Synthesized user stands in, matching login behavior.
	default:
		h.log.Error("user.lookup.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]railsight.User{"user": user})
}

func (h *Handler) handleMetricsGet(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.Metrics(r.Context())
	if err != nil {
		h.log.Error("metrics.read.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleMetricsPut(w http.ResponseWriter, r *http.Request) {
	var patch railsight.MetricsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	metrics, err := h.store.UpdateMetrics(r.Context(), patch)
	if err != nil {
		h.log.Error("metrics.update.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.store.Notifications(r.Context())
	if err != nil {
		h.log.Error("notifications.read.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.Reports(r.Context())
	if err != nil {
		h.log.Error("reports.read.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleGrievancesGet(w http.ResponseWriter, r *http.Request) {
	grievances, err := h.store.Grievances(r.Context())
	if err != nil {
		h.log.Error("grievances.read.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, grievances)
}

type grievanceRequest struct {
	Description string `json:"description"`
	Photo       string `json:"photo,omitempty"`
}

func (h *Handler) handleGrievancesPost(w http.ResponseWriter, r *http.Request) {
	var req grievanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	grievance, err := h.store.AddGrievance(r.Context(), req.Description, req.Photo)
	if err != nil {
		h.log.Error("grievances.create.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, grievance)
}

func (h *Handler) handleSamplePart(w http.ResponseWriter, r *http.Request) {
	part, err := h.store.SamplePart(r.Context())
	if err != nil {
		h.log.Error("sample_part.read.fail", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func bearerFromHeader(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) <= len(bearer) || value[:len(bearer)] != bearer {
		return "", false
	}
	return value[len(bearer):], true
}
