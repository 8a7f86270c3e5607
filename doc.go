// Package goAccount implements the account lifecycle of the Home Finder
// backend: signup with email verification, login with revocable session
// tokens, password reset through one-time codes, and profile maintenance.
//
// An [Engine] is assembled with [New] and [Builder.Build]. It depends on a
// [UserStore] for persistence and a [Mailer] for code delivery; image storage
// and reverse geocoding are optional collaborators. Engine methods are safe
// for concurrent use once built.
//
// Every error returned by an Engine operation belongs to one class sentinel
// (see [ErrValidationFailed] and its siblings) so transports can map it to a
// stable status. [KindOf] returns that class.
//
// # Tokens
//
// Session tokens are signed JWTs. A token is accepted only while it is still
// listed on the owning user row, so logout takes effect immediately even when
// tokens carry no expiry.
//
// # One-time codes
//
// Email verification and password reset each keep their own code on the user
// row. Codes expire lazily: a code older than OTPConfig.TTL is treated as
// absent on read. Resends of either code share one counter with a cooldown.
package goAccount
