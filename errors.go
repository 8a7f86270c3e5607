package goAccount

import (
	"errors"
	"strings"
)

// Error classes. Every error returned by Engine operations matches exactly one
// of these through errors.Is, or none when the failure is unclassified.
var (
	// ErrValidationFailed marks malformed input or a password policy violation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConflict marks a username or email uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a missing user row or session token.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated marks missing, invalid or revoked credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden marks a state precondition or a disallowed field mutation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCode marks an OTP mismatch, or a code that is absent or expired.
	ErrInvalidCode = errors.New("invalid code")
	// ErrRateLimited marks a throttled resend, login or signup.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable marks a failing store, mail, image or throttle backend.
	ErrUnavailable = errors.New("unavailable")
	// ErrNoOp marks an action that has nothing to do.
	ErrNoOp = errors.New("no-op")
)

// ErrEngineNotReady is returned when an Engine was not produced by Builder.Build.
var ErrEngineNotReady = errors.New("engine not initialized")

var errorKinds = []error{
	ErrValidationFailed,
	ErrConflict,
	ErrNotFound,
	ErrUnauthenticated,
	ErrForbidden,
	ErrInvalidCode,
	ErrRateLimited,
	ErrUnavailable,
	ErrNoOp,
}

// Error is a classified failure carrying a message that is safe to show to
// the caller. Field names the offending input for validation failures.
type Error struct {
	Kind    error
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the class sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func fieldError(field, message string) *Error {
	return &Error{Kind: ErrValidationFailed, Field: field, Message: message}
}

func wrapError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the class sentinel err belongs to, or nil when err is not
// classified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// MessageOf returns the caller-facing message of a classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if kind := KindOf(err); kind != nil {
		return kind.Error()
	}
	return ""
}

var (
	// ErrUserNotFound is returned when no row matches the id, email or username.
	ErrUserNotFound = newError(ErrNotFound, "User not found")
	// ErrTokenNotFound is returned when logout presents a token that is not active.
	ErrTokenNotFound = newError(ErrNotFound, "Session not found")
	// ErrUsernameTaken is returned when another row already owns the username.
	ErrUsernameTaken = newError(ErrConflict, "Username already exists")
	// ErrEmailTaken is returned when another row already owns the email.
	ErrEmailTaken = newError(ErrConflict, "Email already exists")
	// ErrDuplicateAccount is returned when the store rejects a write on a unique
	// column without naming it.
	ErrDuplicateAccount = newError(ErrConflict, "Username or email already exists")

	// ErrInvalidCredentials is returned by Login for any identifier or secret mismatch.
	ErrInvalidCredentials = newError(ErrUnauthenticated, "Invalid email or password")
	// ErrInvalidToken is returned by Validate for unparsable or revoked tokens.
	ErrInvalidToken = newError(ErrUnauthenticated, "Invalid token or not verified")
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = newError(ErrUnauthenticated, "Please login to get access")

	ErrEmailNotVerified          = newError(ErrForbidden, "Please verify your email first")
	ErrCredentialChangeForbidden = newError(ErrForbidden, "You can't change your email or password from here")
	ErrResetNotVerified          = newError(ErrForbidden, "Please verify the reset code first")
	ErrNotOwnAccount             = newError(ErrForbidden, "You can only act on your own account")

	ErrInvalidVerificationCode = newError(ErrInvalidCode, "Invalid verification code")
	ErrInvalidResetCode        = newError(ErrInvalidCode, "Invalid or expired reset code")

	ErrResendLimited     = newError(ErrRateLimited, "You have exceeded the maximum number of attempts, try again later")
	ErrLoginRateLimited  = newError(ErrRateLimited, "Too many login attempts, try again later")
	ErrSignupRateLimited = newError(ErrRateLimited, "Too many signups from this address, try again later")

	ErrAlreadyVerified  = newError(ErrNoOp, "You have already verified your email")
	ErrPlaceholderImage = newError(ErrNoOp, "You don't have a profile picture")

	ErrPasswordMismatch   = fieldError("confirmPass", "Passwords do not match")
	ErrPasswordPolicy     = fieldError("password", "Password must be between 8 and 50 characters")
	ErrPasswordReuse      = fieldError("newPassword", "New password can't be the same as old password")
	ErrOldPasswordInvalid = fieldError("oldPassword", "Old password is invalid, please try again")
	ErrPasswordInvalid    = fieldError("password", "Invalid password, please try again")
	ErrLocationInvalid    = fieldError("location", "Please provide a valid location")
	ErrGenderInvalid      = fieldError("gender", "Gender must be male or female")
	ErrImageMissing       = fieldError("image", "Please provide an image")
	ErrImageType          = fieldError("image", "Allow only jpeg, jpg and png")
	ErrImageTooLarge      = fieldError("image", "Image must not exceed 2MB")
)

func storeUnavailable(err error) error {
	return wrapError(ErrUnavailable, "Storage is unavailable", err)
}

func mailUnavailable(err error) error {
	return wrapError(ErrUnavailable, "Verification code could not be sent", err)
}
