package store

import (
	"context"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepClearsOnlyExpiredState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	stale := now.Add(-2 * time.Hour)
	fresh := now.Add(-10 * time.Minute)
	past := now.Add(-time.Minute)
	future := now.Add(5 * time.Minute)
	code := 1111

	expired := newUser("u-1", "expired_1", "e@example.com")
	expired.EmailOTP = &code
	expired.EmailOTPIssuedAt = &stale
	expired.OTPAttemptCounter = 6
	expired.OTPCooldownUntil = &past
	require.NoError(t, s.Create(ctx, expired))

	active := newUser("u-2", "active_01", "a@example.com")
	active.EmailOTP = &code
	active.EmailOTPIssuedAt = &fresh
	active.OTPAttemptCounter = 6
	active.OTPCooldownUntil = &future
	require.NoError(t, s.Create(ctx, active))

	sw, err := NewSweeper(s, SweeperConfig{OTPTTL: 90 * time.Minute}, nil)
	require.NoError(t, err)
	sw.now = func() time.Time { return now }

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.EmailOTPs)
	assert.Equal(t, int64(1), res.Cooldowns)
	assert.Equal(t, int64(0), res.ResetOTPs)

	got, err := s.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.EmailOTP)
	assert.Nil(t, got.EmailOTPIssuedAt)
	assert.Equal(t, 0, got.OTPAttemptCounter)
	assert.Nil(t, got.OTPCooldownUntil)

	got, err = s.FindByID(ctx, "u-2")
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTP)
	assert.Equal(t, 6, got.OTPAttemptCounter)
	assert.NotNil(t, got.OTPCooldownUntil)
}

func TestSweepClearsExpiredResetCode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	u := newUser("u-1", "alice_01", "alice@example.com")
	require.NoError(t, s.Create(ctx, u))
	u.ResetOTP = &goAccount.ResetOTP{Code: 2222, IssuedAt: now.Add(-91 * time.Minute)}
	require.NoError(t, s.Save(ctx, u))

	sw, err := NewSweeper(s, SweeperConfig{OTPTTL: 90 * time.Minute}, nil)
	require.NoError(t, err)
	sw.now = func() time.Time { return now }

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ResetOTPs)

	got, err := s.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.ResetOTP)
}

func TestNewSweeperValidation(t *testing.T) {
	s := openTestStore(t)

	_, err := NewSweeper(s, SweeperConfig{}, nil)
	require.Error(t, err)

	_, err = NewSweeper(s, SweeperConfig{OTPTTL: time.Minute, Schedule: "not a schedule"}, nil)
	require.Error(t, err)

	sw, err := NewSweeper(s, SweeperConfig{OTPTTL: time.Minute}, nil)
	require.NoError(t, err)
	sw.Start()
	sw.Stop()
}
