// Package session issues and verifies the signed admin session credential and
// gates /admin pages and admin API routes on it.
//
// A request moves through NoToken, TokenPresent, Valid or Invalid, and only
// reaches Authorized once the email in a valid token is on the allowlist. The
// allowlist is re-checked on every request so removing an email takes effect
// without waiting for outstanding tokens to expire.
package session
