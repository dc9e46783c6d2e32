// Package users provides a small authenticated user-management core:
// password hashing, credential verification, JWT issuance and validation,
// pluggable authentication strategies, and the repositories and HTTP
// controller that expose register/login/profile/list flows.
//
// Strategies:
//   - Authentication is resolved through named Strategy implementations
//     ("local" for username/password, "jwt" for bearer tokens). Strategies
//     are collected in an immutable StrategySet built once at startup, so
//     new mechanisms plug in without touching callers.
//
// Sessions:
//   - Bearer tokens are stateless; the optional SessionManager adds a
//     server-side handle (signed cookie backed by a sessions table) so the
//     "local" flow supports explicit logout. Destroying a handle that no
//     longer exists is an error, not a no-op: logout is not best-effort.
package users
