package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signup creates an unverified account, mails its verification code and
// returns a session token with the new profile.
//
// When the code cannot be mailed the row is deleted again and the call fails
// with ErrUnavailable, so no orphaned unverified accounts remain.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	username := normalizeIdentity(req.Username)
	email := normalizeIdentity(req.Email)

	fail := func(err error) (*AuthResult, error) {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignup, false, "", err, func() map[string]string {
			return map[string]string{"username": username}
		})
		return nil, err
	}

	if username == "" {
		return fail(fieldError("username", "Please provide a username"))
	}
	if email == "" {
		return fail(fieldError("email", "Please provide an email"))
	}
	if req.Password != req.ConfirmPassword {
		return fail(ErrPasswordMismatch)
	}
	if err := e.checkPolicy(req.Password); err != nil {
		return fail(err)
	}

	if e.limiter != nil {
		if err := e.limiter.AllowSignup(ctx, clientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricSignupRateLimited)
				e.emitRateLimit(ctx, "signup", "")
				return fail(ErrSignupRateLimited)
			}
			return fail(wrapError(ErrUnavailable, "Rate limiter is unavailable", err))
		}
	}

	if err := e.ensureAvailable(ctx, "", username, email); err != nil {
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricSignupDuplicate)
		}
		return fail(err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         e.config.Account.DefaultRole,
		Image:        e.config.Account.PlaceholderImage,
		ActiveTokens: []string{},
		Wishlist:     []string{},
	}
	if err := e.setSecret(user, req.Password); err != nil {
		return fail(err)
	}
	code, err := e.setEmailOTP(user)
	if err != nil {
		return fail(err)
	}
	token, err := e.issueToken(user)
	if err != nil {
		return fail(err)
	}

	if err := e.create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricSignupDuplicate)
		}
		return fail(err)
	}

	if err := e.sendOTP(ctx, user, otpTrackEmail, code); err != nil {
		if delErr := e.store.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			e.logger.Error("signup rollback failed", zapUserID(user.ID), zap.Error(delErr))
		}
		return fail(err)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignup, true, user.ID, nil, nil)

	return &AuthResult{
		Token: token,
		User:  serialize(user),
	}, nil
}

// VerifyEmail marks userID verified when code equals the pending
// verification code. The code is cleared on success, so replaying it fails.
// Wrong guesses are not counted.
func (e *Engine) VerifyEmail(ctx context.Context, userID string, code int) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventEmailVerify, false, userID, err, nil)
		return nil, err
	}

	pending, ok := e.pendingEmailOTP(user)
	if !ok || pending != code {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerify, false, userID, ErrInvalidVerificationCode, nil)
		return nil, ErrInvalidVerificationCode
	}

	user.IsVerified = true
	user.EmailOTP = nil
	user.EmailOTPIssuedAt = nil
	if err := e.save(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventEmailVerify, false, userID, err, nil)
		return nil, err
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerify, true, userID, nil, nil)

	profile := serialize(user)
	return &profile, nil
}

// ResendEmailOTP mails a new verification code, subject to the shared resend
// guard.
func (e *Engine) ResendEmailOTP(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventEmailResend, false, userID, err, nil)
		return err
	}
	if user.IsVerified {
		e.emitAudit(ctx, auditEventEmailResend, false, userID, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	if err := e.resendGuard(ctx, user); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, "email_otp_resend", userID)
		}
		e.emitAudit(ctx, auditEventEmailResend, false, userID, err, nil)
		return err
	}

	if err := e.reissue(ctx, user, otpTrackEmail); err != nil {
		e.emitAudit(ctx, auditEventEmailResend, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricOTPResend)
	e.emitAudit(ctx, auditEventEmailResend, true, userID, nil, nil)
	return nil
}
