package goAccount

import (
	"context"
	"errors"
)

// ForgotPassword mails a password reset code to the account owning email.
// A previously matched code stops counting as verified.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordForgot, false, "", err, nil)
		return err
	}

	if err := e.reissue(ctx, user, otpTrackPassword); err != nil {
		e.emitAudit(ctx, auditEventPasswordForgot, false, user.ID, err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordForgot, true, user.ID, nil, nil)
	return nil
}

// ResendPasswordOTP issues a fresh reset code, subject to the resend guard
// shared with ResendEmailOTP.
func (e *Engine) ResendPasswordOTP(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResend, false, "", err, nil)
		return err
	}

	if err := e.resendGuard(ctx, user); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, "password_otp_resend", user.ID)
		}
		e.emitAudit(ctx, auditEventPasswordResend, false, user.ID, err, nil)
		return err
	}

	if err := e.reissue(ctx, user, otpTrackPassword); err != nil {
		e.emitAudit(ctx, auditEventPasswordResend, false, user.ID, err, nil)
		return err
	}

	e.metricInc(MetricOTPResend)
	e.emitAudit(ctx, auditEventPasswordResend, true, user.ID, nil, nil)
	return nil
}

// VerifyPasswordOTP marks the pending reset code as matched. The code itself
// stays until the password is actually reset.
func (e *Engine) VerifyPasswordOTP(ctx context.Context, email string, code int) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordVerifyOTP, false, "", err, nil)
		return err
	}

	pending, ok := e.pendingResetOTP(user)
	if !ok || pending.Code != code {
		e.metricInc(MetricPasswordResetVerifyFailure)
		e.emitAudit(ctx, auditEventPasswordVerifyOTP, false, user.ID, ErrInvalidResetCode, nil)
		return ErrInvalidResetCode
	}

	pending.Verified = true
	if err := e.save(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventPasswordVerifyOTP, false, user.ID, err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetVerifySuccess)
	e.emitAudit(ctx, auditEventPasswordVerifyOTP, true, user.ID, nil, nil)
	return nil
}

// ResetPassword replaces the secret of the account owning email. It requires
// a reset code matched through VerifyPasswordOTP and a secret different from
// the current one. The reset state is cleared afterwards.
func (e *Engine) ResetPassword(ctx context.Context, email, newSecret, confirm string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordReset, false, "", err, nil)
		return err
	}

	fail := func(err error) error {
		e.emitAudit(ctx, auditEventPasswordReset, false, user.ID, err, nil)
		return err
	}

	if user.ResetOTP == nil || !user.ResetOTP.Verified {
		return fail(ErrResetNotVerified)
	}
	if _, ok := e.pendingResetOTP(user); !ok {
		return fail(ErrInvalidResetCode)
	}
	if newSecret != confirm {
		return fail(ErrPasswordMismatch)
	}
	if err := e.checkPolicy(newSecret); err != nil {
		return fail(err)
	}
	if e.verifySecret(user, newSecret) {
		return fail(ErrPasswordReuse)
	}

	if err := e.setSecret(user, newSecret); err != nil {
		return fail(err)
	}
	user.ResetOTP = nil
	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, true, user.ID, nil, nil)
	return nil
}

// ChangePassword replaces the secret of a verified account after checking
// the old one. A new secret equal to the old one is always rejected first.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldSecret, newSecret, confirm string) error {
	if err := e.ready(); err != nil {
		return err
	}

	fail := func(err error) error {
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, err, nil)
		return err
	}

	if newSecret == oldSecret {
		e.metricInc(MetricPasswordChangeReuseRejected)
		return fail(ErrPasswordReuse)
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}
	if newSecret != confirm {
		return fail(ErrPasswordMismatch)
	}
	if !e.verifySecret(user, oldSecret) {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return fail(ErrOldPasswordInvalid)
	}
	if err := e.checkPolicy(newSecret); err != nil {
		return fail(err)
	}

	if err := e.setSecret(user, newSecret); err != nil {
		return fail(err)
	}
	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, nil, nil)
	return nil
}
