// Package jwt issues and verifies session tokens.
//
// A session token carries the user id and role, a unique jti and the issue
// time. Expiry is optional; without it a token remains cryptographically
// valid forever and revocation is enforced by the caller's active token list.
package jwt
