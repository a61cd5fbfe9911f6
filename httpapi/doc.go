// Package httpapi implements the platform's HTTP/JSON wire contract on a
// gorilla/mux router.
//
// # Status-code contract
//
//   - POST /api/login — 200 {token, user} | 401 {message}
//   - guarded routes — 401 without an Authorization header, 403 on a rejected
//     token, 200 otherwise
//   - unmatched paths — 404 {message: "Not found"}
//   - handler panics — 500 {message: "Internal server error"}, the stack is
//     logged server-side and never echoed to the client
//
// Request metrics (counts and latency per route) are exported in Prometheus
// format at GET /internal/metrics.
package httpapi
