// Package internal contains helpers that are private to goAccount.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed login and signup throttles
//   - logging: zap logger construction for the binary
package internal
