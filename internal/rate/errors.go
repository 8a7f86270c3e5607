package rate

import "errors"

var (
	// ErrRateLimited is returned when a window budget is used up.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
