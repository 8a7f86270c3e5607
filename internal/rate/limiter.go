package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	Prefix           string
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	MaxSignupsPerIP  int
	SignupWindow     time.Duration
}

// Limiter enforces fixed-window limits on failed logins (per identifier and
// optionally per IP) and on signups per IP, using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "acct"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when the identifier or IP already used
// up its failed-login budget. It does not count the current attempt.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, l.loginUserKey(identifier), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login for the identifier and IP.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if _, err := l.incrementWithTTL(ctx, l.loginUserKey(identifier), l.config.LoginWindow); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incrementWithTTL(ctx, l.loginIPKey(ip), l.config.LoginWindow); err != nil {
			return err
		}
	}

	return nil
}

// ResetLogin clears the identifier counter after a successful login. The IP
// counter is left alone so one good account cannot launder an IP.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, l.loginUserKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AllowSignup counts a signup attempt from ip and reports ErrRateLimited once
// the window budget is exceeded. An empty ip is never throttled.
func (l *Limiter) AllowSignup(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.signupIPKey(ip), l.config.SignupWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignupsPerIP) {
		return ErrRateLimited
	}

	return nil
}

// LoginAttempts returns the failed-login counter for an identifier. Missing
// keys return zero.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginUserKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is only set on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) loginUserKey(identifier string) string {
	return l.config.Prefix + ":login:u:" + strings.ToLower(identifier)
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.config.Prefix + ":login:ip:" + ip
}

func (l *Limiter) signupIPKey(ip string) string {
	return l.config.Prefix + ":signup:ip:" + ip
}
