package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	railsight "github.com/railsight/railsight"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims injected by [Guard], if any.
func ClaimsFromContext(ctx context.Context) (*railsight.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*railsight.Claims)
	return claims, ok
}

// Guard returns middleware enforcing the request-authorization contract:
// a missing Authorization header is 401 (no credential supplied), a rejected
// token is 403 (credential rejected), and on success the decoded claims are
// attached to the request context. Wrapped handlers never re-validate.
func Guard(gateway *railsight.Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gateway == nil {
				writeMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			ctx := railsight.WithClientIP(r.Context(), remoteIP(r))
			ctx = railsight.WithUserAgent(ctx, r.UserAgent())

			claims, err := gateway.Verify(ctx, token)
			if err != nil {
				writeMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from an Authorization header. Only the
// Bearer scheme is recognized; any other scheme counts as no credential
// supplied, so the guard answers 401 rather than 403.
func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
