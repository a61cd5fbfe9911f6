// Package middleware exposes the HTTP authorization guard built on top of
// Gateway token verification.
//
// [Guard] reads the Authorization header, calls Gateway.Verify, and injects
// the validated claims into the request context. The 401/403 split follows
// the platform contract: 401 means no credential was supplied, 403 means the
// supplied credential was rejected.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to the Gateway).
//   - Make authorization decisions beyond pass/reject from Gateway.Verify.
package middleware
