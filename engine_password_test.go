package goAccount

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	if err := h.engine.ForgotPassword(ctx, "A@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	last := h.mailer.sent[len(h.mailer.sent)-1]
	if last.Subject != "Reset Password" {
		t.Fatalf("expected reset subject, got %q", last.Subject)
	}
	code := h.mailer.lastCode(t)

	requireKind(t, h.engine.ResetPassword(ctx, "a@x.com", "newpass99", "newpass99"), ErrForbidden)

	if err := h.engine.VerifyPasswordOTP(ctx, "a@x.com", code); err != nil {
		t.Fatalf("VerifyPasswordOTP failed: %v", err)
	}
	if err := h.engine.ResetPassword(ctx, "a@x.com", "newpass99", "newpass99"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := h.engine.Login(ctx, "a@x.com", "pass1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old secret to fail, got %v", err)
	}
	if _, err := h.engine.Login(ctx, "a@x.com", "newpass99"); err != nil {
		t.Fatalf("expected new secret to work: %v", err)
	}

	requireKind(t, h.engine.ResetPassword(ctx, "a@x.com", "another99", "another99"), ErrForbidden)
}

func TestResetPasswordRejectsCurrentSecret(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	_ = h.engine.ForgotPassword(ctx, "a@x.com")
	if err := h.engine.VerifyPasswordOTP(ctx, "a@x.com", h.mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyPasswordOTP failed: %v", err)
	}

	err := h.engine.ResetPassword(ctx, "a@x.com", "pass1234", "pass1234")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected reuse rejection, got %v", err)
	}
	requireKind(t, h.engine.ResetPassword(ctx, "a@x.com", "newpass99", "different"), ErrValidationFailed)
}

func TestForgotPasswordClearsEarlierMatch(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	_ = h.engine.ForgotPassword(ctx, "a@x.com")
	if err := h.engine.VerifyPasswordOTP(ctx, "a@x.com", h.mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyPasswordOTP failed: %v", err)
	}
	if err := h.engine.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("second ForgotPassword failed: %v", err)
	}

	requireKind(t, h.engine.ResetPassword(ctx, "a@x.com", "newpass99", "newpass99"), ErrForbidden)
}

func TestVerifyPasswordOTPMismatchAndExpiry(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	requireKind(t, h.engine.VerifyPasswordOTP(ctx, "a@x.com", 1234), ErrInvalidCode)

	_ = h.engine.ForgotPassword(ctx, "a@x.com")
	code := h.mailer.lastCode(t)
	wrong := code + 1
	if wrong > 9999 {
		wrong = 1000
	}
	requireKind(t, h.engine.VerifyPasswordOTP(ctx, "a@x.com", wrong), ErrInvalidCode)

	h.advance(91 * time.Minute)
	requireKind(t, h.engine.VerifyPasswordOTP(ctx, "a@x.com", code), ErrInvalidCode)
}

func TestResetPasswordExpiredAfterVerify(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	_ = h.engine.ForgotPassword(ctx, "a@x.com")
	if err := h.engine.VerifyPasswordOTP(ctx, "a@x.com", h.mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyPasswordOTP failed: %v", err)
	}
	h.advance(2 * time.Hour)

	requireKind(t, h.engine.ResetPassword(ctx, "a@x.com", "newpass99", "newpass99"), ErrInvalidCode)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h := newHarness(t)
	requireKind(t, h.engine.ForgotPassword(context.Background(), "ghost@x.com"), ErrNotFound)
}

func TestForgotPasswordMailFailureRestoresState(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")
	h.mailer.fail = errors.New("smtp down")

	requireKind(t, h.engine.ForgotPassword(context.Background(), "a@x.com"), ErrUnavailable)
	if h.store.get(t, res.User.ID).ResetOTP != nil {
		t.Fatal("expected reset state to be rolled back")
	}
}

func TestResendGuardSharedAcrossTracks(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.engine.ResendEmailOTP(ctx, res.User.ID); err != nil {
			t.Fatalf("email resend %d failed: %v", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := h.engine.ResendPasswordOTP(ctx, "a@x.com"); err != nil {
			t.Fatalf("password resend %d failed: %v", i, err)
		}
	}
	requireKind(t, h.engine.ResendPasswordOTP(ctx, "a@x.com"), ErrRateLimited)
	requireKind(t, h.engine.ResendEmailOTP(ctx, res.User.ID), ErrRateLimited)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	token := h.signupVerified(t, "alice_01", "a@x.com", "pass1234")
	userID := h.userIDOf(t, token)
	ctx := context.Background()

	err := h.engine.ChangePassword(ctx, userID, "pass1234", "pass1234", "pass1234")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected reuse rejection, got %v", err)
	}
	// Same old and new secret is rejected even when the old one is wrong.
	err = h.engine.ChangePassword(ctx, userID, "wrongpass", "wrongpass", "wrongpass")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected reuse rejection for wrong old secret, got %v", err)
	}

	err = h.engine.ChangePassword(ctx, userID, "wrongpass", "newpass99", "newpass99")
	if !errors.Is(err, ErrOldPasswordInvalid) {
		t.Fatalf("expected old password rejection, got %v", err)
	}
	requireKind(t, h.engine.ChangePassword(ctx, userID, "pass1234", "short", "short"), ErrValidationFailed)
	requireKind(t, h.engine.ChangePassword(ctx, userID, "pass1234", "newpass99", "newpass98"), ErrValidationFailed)

	if err := h.engine.ChangePassword(ctx, userID, "pass1234", "newpass99", "newpass99"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := h.engine.Login(ctx, "alice_01", "newpass99"); err != nil {
		t.Fatalf("login with new secret failed: %v", err)
	}
}

func TestChangePasswordRequiresVerified(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")

	err := h.engine.ChangePassword(context.Background(), res.User.ID, "pass1234", "newpass99", "newpass99")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected verification guard, got %v", err)
	}
}
