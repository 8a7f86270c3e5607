package goAccount

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"go.uber.org/zap"
)

type otpTrack int

const (
	otpTrackEmail otpTrack = iota
	otpTrackPassword
)

func (e *Engine) newCode() (int, error) {
	code, err := internal.NewNumericOTP(e.config.OTP.MinCode, e.config.OTP.MaxCode)
	if err != nil {
		return 0, wrapError(ErrUnavailable, "Verification code could not be generated", err)
	}
	return code, nil
}

func (e *Engine) otpExpired(issuedAt time.Time) bool {
	return !e.now().Before(issuedAt.Add(e.config.OTP.TTL))
}

// pendingEmailOTP returns the stored verification code, or false when none is
// set or the code is past its TTL.
func (e *Engine) pendingEmailOTP(user *User) (int, bool) {
	if user.EmailOTP == nil {
		return 0, false
	}
	if user.EmailOTPIssuedAt != nil && e.otpExpired(*user.EmailOTPIssuedAt) {
		return 0, false
	}
	return *user.EmailOTP, true
}

func (e *Engine) pendingResetOTP(user *User) (*ResetOTP, bool) {
	if user.ResetOTP == nil {
		return nil, false
	}
	if !user.ResetOTP.IssuedAt.IsZero() && e.otpExpired(user.ResetOTP.IssuedAt) {
		return nil, false
	}
	return user.ResetOTP, true
}

// setEmailOTP stores a fresh verification code on user and returns it.
func (e *Engine) setEmailOTP(user *User) (int, error) {
	code, err := e.newCode()
	if err != nil {
		return 0, err
	}
	issued := e.now()
	user.EmailOTP = &code
	user.EmailOTPIssuedAt = &issued
	return code, nil
}

// setPasswordOTP stores a fresh reset code and clears any earlier match.
func (e *Engine) setPasswordOTP(user *User) (int, error) {
	code, err := e.newCode()
	if err != nil {
		return 0, err
	}
	user.ResetOTP = &ResetOTP{
		Code:     code,
		Verified: false,
		IssuedAt: e.now(),
	}
	return code, nil
}

// resendGuard counts a resend against user. Once the count passes
// MaxResends the user is held off until the cooldown ends, after which the
// counter starts from zero. A rejected attempt is still persisted.
func (e *Engine) resendGuard(ctx context.Context, user *User) error {
	now := e.now()
	if user.OTPCooldownUntil != nil && !now.Before(*user.OTPCooldownUntil) {
		user.OTPAttemptCounter = 0
		user.OTPCooldownUntil = nil
	}

	user.OTPAttemptCounter++
	if user.OTPAttemptCounter <= e.config.OTP.MaxResends {
		return nil
	}

	if user.OTPCooldownUntil == nil {
		until := now.Add(e.config.OTP.ResendCooldown)
		user.OTPCooldownUntil = &until
	}
	if err := e.save(ctx, user); err != nil {
		return err
	}
	e.metricInc(MetricOTPResendLimited)
	return ErrResendLimited
}

// sendOTP mails code to user. Delivery is bounded by the collaborator
// timeout and never retried.
func (e *Engine) sendOTP(ctx context.Context, user *User, track otpTrack, code int) error {
	subject := e.config.OTP.VerifySubject
	if track == otpTrackPassword {
		subject = e.config.OTP.PasswordSubject
	}

	body, err := renderOTPMail(ctx, otpMailView{
		Brand:    e.config.OTP.Brand,
		Username: user.Username,
		Code:     code,
		Validity: humanDuration(e.config.OTP.TTL),
	})
	if err != nil {
		return mailUnavailable(err)
	}

	mailCtx, cancel := e.collaboratorContext(ctx)
	defer cancel()

	if err := e.mailer.Send(mailCtx, user.Email, subject, body); err != nil {
		e.metricInc(MetricMailFailure)
		e.logger.Warn("otp mail failed", zapUserID(user.ID), zap.String("subject", subject), zap.Error(err))
		return mailUnavailable(err)
	}
	return nil
}

// humanDuration renders 90m as "1:30 hours".
func humanDuration(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%d minutes", m)
	case m == 0 && h == 1:
		return "1 hour"
	case m == 0:
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%d:%02d hours", h, m)
	}
}

// otpSnapshot captures the OTP fields so a failed mail send can restore them.
type otpSnapshot struct {
	emailOTP         *int
	emailOTPIssuedAt *time.Time
	resetOTP         *ResetOTP
}

func snapshotOTP(user *User) otpSnapshot {
	s := otpSnapshot{
		emailOTP:         user.EmailOTP,
		emailOTPIssuedAt: user.EmailOTPIssuedAt,
	}
	if user.ResetOTP != nil {
		r := *user.ResetOTP
		s.resetOTP = &r
	}
	return s
}

func (s otpSnapshot) restore(user *User) {
	user.EmailOTP = s.emailOTP
	user.EmailOTPIssuedAt = s.emailOTPIssuedAt
	user.ResetOTP = s.resetOTP
}

// reissue stores a new code for track, persists it and mails it. On mail
// failure the previous OTP state is written back.
func (e *Engine) reissue(ctx context.Context, user *User, track otpTrack) error {
	before := snapshotOTP(user)

	var (
		code int
		err  error
	)
	if track == otpTrackPassword {
		code, err = e.setPasswordOTP(user)
	} else {
		code, err = e.setEmailOTP(user)
	}
	if err != nil {
		return err
	}
	if err := e.save(ctx, user); err != nil {
		return err
	}

	if sendErr := e.sendOTP(ctx, user, track, code); sendErr != nil {
		before.restore(user)
		if err := e.save(context.WithoutCancel(ctx), user); err != nil {
			e.logger.Error("otp rollback failed", zapUserID(user.ID), zap.Error(err))
		}
		return sendErr
	}
	return nil
}
