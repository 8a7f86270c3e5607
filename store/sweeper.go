package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweeperConfig configures the background OTP sweep.
type SweeperConfig struct {
	// Schedule is a cron spec such as "@every 5m".
	Schedule string

	// OTPTTL must match the engine's OTP.TTL.
	OTPTTL  time.Duration
	Timeout time.Duration
}

// SweepResult counts the rows touched by one sweep.
type SweepResult struct {
	EmailOTPs int64
	ResetOTPs int64
	Cooldowns int64
}

// Sweeper clears expired one-time codes and finished resend cooldowns.
//
// Engine reads already treat expired codes as absent, so a missed run never
// changes behavior; the sweep only keeps rows tidy. Every statement is guarded
// by the timestamp it expires, so a code reissued between the read and the
// write is never cleared.
type Sweeper struct {
	store  *Store
	config SweeperConfig
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper validates cfg and returns a stopped Sweeper.
func NewSweeper(s *Store, cfg SweeperConfig, logger *zap.Logger) (*Sweeper, error) {
	if s == nil {
		return nil, fmt.Errorf("sweeper requires a store")
	}
	if cfg.OTPTTL <= 0 {
		return nil, fmt.Errorf("sweeper OTPTTL must be > 0")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sw := &Sweeper{
		store:  s,
		config: cfg,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
	if _, err := sw.cron.AddFunc(cfg.Schedule, sw.run); err != nil {
		return nil, fmt.Errorf("invalid sweeper schedule %q: %w", cfg.Schedule, err)
	}
	return sw, nil
}

// Start begins running sweeps on the schedule.
func (sw *Sweeper) Start() {
	sw.logger.Debug("OTP sweeper attached", zap.String("schedule", sw.config.Schedule))
	sw.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}

func (sw *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.config.Timeout)
	defer cancel()

	res, err := sw.Sweep(ctx)
	if err != nil {
		sw.logger.Error("OTP sweep failed", zap.Error(err))
		return
	}
	if res.EmailOTPs+res.ResetOTPs+res.Cooldowns > 0 {
		sw.logger.Debug("OTP sweep finished",
			zap.Int64("email_otps", res.EmailOTPs),
			zap.Int64("reset_otps", res.ResetOTPs),
			zap.Int64("cooldowns", res.Cooldowns),
		)
	}
}

// Sweep runs one pass immediately.
func (sw *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := sw.now().UTC()
	cutoff := now.Add(-sw.config.OTPTTL)
	tx := sw.store.db.WithContext(ctx).Model(&userRow{}).
		Where("email_otp_issued_at IS NOT NULL AND email_otp_issued_at <= ?", cutoff).
		Updates(map[string]interface{}{
			"email_otp":           nil,
			"email_otp_issued_at": nil,
		})
	if tx.Error != nil {
		return res, translate("sweep email otp", tx.Error)
	}
	res.EmailOTPs = tx.RowsAffected

	tx = sw.store.db.WithContext(ctx).Model(&userRow{}).
		Where("reset_issued_at IS NOT NULL AND reset_issued_at <= ?", cutoff).
		Updates(map[string]interface{}{
			"reset_code":      nil,
			"reset_verified":  false,
			"reset_issued_at": nil,
		})
	if tx.Error != nil {
		return res, translate("sweep reset otp", tx.Error)
	}
	res.ResetOTPs = tx.RowsAffected

	tx = sw.store.db.WithContext(ctx).Model(&userRow{}).
		Where("otp_cooldown_until IS NOT NULL AND otp_cooldown_until <= ?", now).
		Updates(map[string]interface{}{
			"otp_attempt_counter": 0,
			"otp_cooldown_until":  nil,
		})
	if tx.Error != nil {
		return res, translate("sweep cooldown", tx.Error)
	}
	res.Cooldowns = tx.RowsAffected

	return res, nil
}
