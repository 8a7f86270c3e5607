package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return mr, New(rdb, cfg)
}

func testConfig() Config {
	return Config{
		Prefix:           "t",
		EnableIPThrottle: true,
		MaxLoginAttempts: 3,
		LoginWindow:      time.Minute,
		MaxSignupsPerIP:  2,
		SignupWindow:     time.Hour,
	}
}

func TestLoginBlocksAfterBudget(t *testing.T) {
	_, l := newTestLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected throttle: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("IncrementLogin failed: %v", err)
		}
	}

	if err := l.CheckLogin(ctx, "alice", "10.0.0.2"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected identifier throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", "10.0.0.2"); err != nil {
		t.Fatalf("unrelated identifier and IP should pass, got %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	mr, l := newTestLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "")
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected throttle, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetLoginClearsIdentifier(t *testing.T) {
	_, l := newTestLimiter(t, testConfig())
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "Alice", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")

	n, err := l.LoginAttempts(ctx, "ALICE")
	if err != nil {
		t.Fatalf("LoginAttempts failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected case-insensitive counter of 2, got %d", n)
	}

	if err := l.ResetLogin(ctx, "alice"); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	n, _ = l.LoginAttempts(ctx, "alice")
	if n != 0 {
		t.Fatalf("expected counter reset, got %d", n)
	}
}

func TestAllowSignupPerIP(t *testing.T) {
	_, l := newTestLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowSignup(ctx, "10.0.0.9"); err != nil {
			t.Fatalf("signup %d: unexpected throttle: %v", i, err)
		}
	}
	if err := l.AllowSignup(ctx, "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected signup throttle, got %v", err)
	}
	if err := l.AllowSignup(ctx, ""); err != nil {
		t.Fatalf("empty IP must not be throttled, got %v", err)
	}
}

func TestRedisFailureIsWrapped(t *testing.T) {
	mr, l := newTestLimiter(t, testConfig())
	mr.Close()

	err := l.IncrementLogin(context.Background(), "alice", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
