// Package rate implements Redis-backed fixed-window throttles for failed
// logins and signups.
//
// Each counter is a Redis key incremented with INCR; the first hit sets the
// window TTL, so the budget resets when the key expires.
package rate
