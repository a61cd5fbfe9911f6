// Package jwt wraps golang-jwt/v5 behind a small manager that issues and
// verifies the platform's bearer tokens.
//
// # Token shape
//
// Every token carries a single custom claim, the subject's login name:
//
//	{"name": "<username>", "iss": "railsight", "iat": ..., "exp": ...}
//
// Expiry is fixed at Config.AccessTTL from issuance (one hour in the stock
// configuration). There is no refresh and no revocation: a token stays valid
// until natural expiry.
//
// # What this package must NOT do
//
//   - Decide HTTP status codes — callers map parse failures to 401/403.
//   - Import any other railsight package.
package jwt
