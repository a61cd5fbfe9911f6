// Package railsight implements the authentication core of the railsight
// inspection-tracking platform: a server-side token gateway that issues and
// verifies signed bearer tokens, and the shared value types consumed by the
// HTTP API, the document store, and the client session manager.
//
// The package is designed for concurrent server workloads: Gateway methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// railsight is the public surface. It exposes [Gateway], [Builder], [Config],
// and value types (User, DashboardMetrics, Notification, etc.). Audit
// dispatching lives under internal/ and is never exported directly; token
// encoding lives in the jwt subpackage; HTTP semantics live in httpapi and
// middleware.
//
// # What this package must NOT do
//
//   - Speak HTTP. Status-code mapping belongs to middleware and httpapi.
//   - Touch durable storage. Profile and dashboard documents belong to store.
//   - Verify passwords unless [CredentialsConfig] explicitly enables it: the
//     default mode accepts any non-empty credential pair. That behavior is
//     demo-grade and deliberately opt-out; see [CredentialsConfig].
package railsight
