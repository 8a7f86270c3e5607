package goAccount

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignupScenarioAlice(t *testing.T) {
	h := newHarness(t)

	res := h.signup(t, "alice_01", "a@x.com", "pass1234")
	if res.Token == "" {
		t.Fatal("expected session token")
	}
	if res.User.IsVerified {
		t.Fatal("expected new account to be unverified")
	}
	if res.User.Role != RoleUser {
		t.Fatalf("expected default role user, got %q", res.User.Role)
	}
	if res.User.Image != h.engine.config.Account.PlaceholderImage {
		t.Fatalf("expected placeholder image, got %+v", res.User.Image)
	}
	if h.mailer.count() != 1 {
		t.Fatalf("expected exactly one mail, got %d", h.mailer.count())
	}

	code := h.mailer.lastCode(t)
	if code < 1000 || code > 9999 {
		t.Fatalf("expected 4-digit code, got %d", code)
	}
	if h.mailer.sent[0].To != "a@x.com" || h.mailer.sent[0].Subject != "Verify your email" {
		t.Fatalf("unexpected mail envelope: %+v", h.mailer.sent[0])
	}

	stored := h.store.get(t, res.User.ID)
	if stored.EmailOTP == nil || *stored.EmailOTP != code {
		t.Fatal("expected pending OTP to match mailed code")
	}
	if len(stored.ActiveTokens) != 1 || stored.ActiveTokens[0] != res.Token {
		t.Fatalf("expected signup token to be active, got %v", stored.ActiveTokens)
	}

	profile, err := h.engine.VerifyEmail(context.Background(), res.User.ID, code)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if !profile.IsVerified {
		t.Fatal("expected account to be verified")
	}
	if stored := h.store.get(t, res.User.ID); stored.EmailOTP != nil {
		t.Fatal("expected OTP to be cleared after verification")
	}

	_, err = h.engine.VerifyEmail(context.Background(), res.User.ID, code)
	requireKind(t, err, ErrInvalidCode)
}

func TestSignupHashesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")

	stored := h.store.get(t, res.User.ID)
	if stored.PasswordHash == "pass1234" || !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", stored.PasswordHash)
	}

	if _, err := h.engine.VerifyEmail(context.Background(), res.User.ID, h.mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if after := h.store.get(t, res.User.ID); after.PasswordHash != stored.PasswordHash {
		t.Fatal("expected re-save without secret change to keep the hash")
	}
}

func TestSignupNormalizesIdentity(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "  Alice_01 ", "A@X.com", "pass1234")

	if res.User.Username != "alice_01" || res.User.Email != "a@x.com" {
		t.Fatalf("expected lowercased identity, got %q %q", res.User.Username, res.User.Email)
	}
}

func TestSignupDuplicateNeverMutatesStore(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice_01", "a@x.com", "pass1234")

	cases := []struct {
		name     string
		username string
		email    string
		want     error
	}{
		{"username", "alice_01", "other@x.com", ErrUsernameTaken},
		{"username case", "ALICE_01", "other@x.com", ErrUsernameTaken},
		{"email", "bob_0001", "a@x.com", ErrEmailTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.Signup(context.Background(), SignupRequest{
				Username:        tc.username,
				Email:           tc.email,
				Password:        "pass1234",
				ConfirmPassword: "pass1234",
			})
			requireKind(t, err, ErrConflict)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if h.store.count() != 1 {
				t.Fatalf("expected store to keep one row, got %d", h.store.count())
			}
			if h.mailer.count() != 1 {
				t.Fatalf("expected no extra mail, got %d", h.mailer.count())
			}
		})
	}
}

func TestSignupRaceSurfacesStoreConflict(t *testing.T) {
	h := newHarness(t)
	h.store.createHook = func(u *User) {
		if _, taken := h.store.users["racer"]; !taken {
			h.store.users["racer"] = &User{ID: "racer", Username: u.Username, Email: "racer@x.com"}
		}
	}

	_, err := h.engine.Signup(context.Background(), SignupRequest{
		Username:        "alice_01",
		Email:           "a@x.com",
		Password:        "pass1234",
		ConfirmPassword: "pass1234",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username conflict from store, got %v", err)
	}
	if h.mailer.count() != 0 {
		t.Fatal("expected no mail for rejected signup")
	}
}

func TestSignupRejectsBadSecret(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Signup(context.Background(), SignupRequest{
		Username: "alice_01", Email: "a@x.com", Password: "pass1234", ConfirmPassword: "pass12345",
	})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Field != "confirmPass" {
		t.Fatalf("expected confirmPass field error, got %v", err)
	}

	_, err = h.engine.Signup(context.Background(), SignupRequest{
		Username: "alice_01", Email: "a@x.com", Password: "short", ConfirmPassword: "short",
	})
	requireKind(t, err, ErrValidationFailed)

	if h.store.count() != 0 {
		t.Fatal("expected no rows after rejected signups")
	}
}

func TestSignupMailFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.mailer.fail = errors.New("smtp down")

	_, err := h.engine.Signup(context.Background(), SignupRequest{
		Username: "alice_01", Email: "a@x.com", Password: "pass1234", ConfirmPassword: "pass1234",
	})
	requireKind(t, err, ErrUnavailable)
	if h.store.count() != 0 {
		t.Fatalf("expected row to be deleted, got %d rows", h.store.count())
	}

	h.mailer.fail = nil
	h.signup(t, "alice_01", "a@x.com", "pass1234")
}

func TestSignupRateLimitedPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.Throttle.MaxSignupsPerIP = 2
	h := newHarnessWithConfig(t, cfg)

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	for i, name := range []string{"alice_01", "bobby_01"} {
		if _, err := h.engine.Signup(ctx, SignupRequest{
			Username: name, Email: name + "@x.com", Password: "pass1234", ConfirmPassword: "pass1234",
		}); err != nil {
			t.Fatalf("signup %d failed: %v", i, err)
		}
	}

	_, err := h.engine.Signup(ctx, SignupRequest{
		Username: "carol_01", Email: "c@x.com", Password: "pass1234", ConfirmPassword: "pass1234",
	})
	requireKind(t, err, ErrRateLimited)

	other := WithClientIP(context.Background(), "10.0.0.2")
	if _, err := h.engine.Signup(other, SignupRequest{
		Username: "carol_01", Email: "c@x.com", Password: "pass1234", ConfirmPassword: "pass1234",
	}); err != nil {
		t.Fatalf("expected other IP to pass: %v", err)
	}
}

func TestVerifyEmailWrongAndExpiredCode(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")
	code := h.mailer.lastCode(t)

	wrong := code + 1
	if wrong > 9999 {
		wrong = 1000
	}
	_, err := h.engine.VerifyEmail(context.Background(), res.User.ID, wrong)
	requireKind(t, err, ErrInvalidCode)

	h.advance(90 * time.Minute)
	_, err = h.engine.VerifyEmail(context.Background(), res.User.ID, code)
	requireKind(t, err, ErrInvalidCode)

	_, err = h.engine.VerifyEmail(context.Background(), "missing", code)
	requireKind(t, err, ErrNotFound)
}

func TestResendEmailOTPLimitedOnSixthCall(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")

	for i := 1; i <= 5; i++ {
		if err := h.engine.ResendEmailOTP(context.Background(), res.User.ID); err != nil {
			t.Fatalf("resend %d failed: %v", i, err)
		}
	}
	err := h.engine.ResendEmailOTP(context.Background(), res.User.ID)
	requireKind(t, err, ErrRateLimited)
	if h.mailer.count() != 6 {
		t.Fatalf("expected signup mail plus five resends, got %d", h.mailer.count())
	}

	stored := h.store.get(t, res.User.ID)
	if stored.OTPCooldownUntil == nil || !stored.OTPCooldownUntil.Equal(h.now.Add(10*time.Minute)) {
		t.Fatalf("expected cooldown to end in 10 minutes, got %v", stored.OTPCooldownUntil)
	}

	h.advance(5 * time.Minute)
	requireKind(t, h.engine.ResendEmailOTP(context.Background(), res.User.ID), ErrRateLimited)

	h.advance(5 * time.Minute)
	if err := h.engine.ResendEmailOTP(context.Background(), res.User.ID); err != nil {
		t.Fatalf("expected resend after cooldown, got %v", err)
	}
	if got := h.store.get(t, res.User.ID).OTPAttemptCounter; got != 1 {
		t.Fatalf("expected counter to restart at 1, got %d", got)
	}

	latest := h.mailer.lastCode(t)
	if _, err := h.engine.VerifyEmail(context.Background(), res.User.ID, latest); err != nil {
		t.Fatalf("expected latest code to verify: %v", err)
	}
}

func TestResendEmailOTPAlreadyVerified(t *testing.T) {
	h := newHarness(t)
	token := h.signupVerified(t, "alice_01", "a@x.com", "pass1234")
	id := h.userIDOf(t, token)

	requireKind(t, h.engine.ResendEmailOTP(context.Background(), id), ErrNoOp)
}

func TestResendEmailOTPMailFailureKeepsPreviousCode(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice_01", "a@x.com", "pass1234")
	code := h.mailer.lastCode(t)

	h.mailer.fail = errors.New("smtp down")
	requireKind(t, h.engine.ResendEmailOTP(context.Background(), res.User.ID), ErrUnavailable)
	h.mailer.fail = nil

	if _, err := h.engine.VerifyEmail(context.Background(), res.User.ID, code); err != nil {
		t.Fatalf("expected original code to survive failed resend: %v", err)
	}
}
