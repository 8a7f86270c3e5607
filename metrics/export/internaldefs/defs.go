package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricSignupSuccess, Name: "goaccount_signup_success_total", Help: "Successful signups."},
	{ID: goAccount.MetricSignupFailure, Name: "goaccount_signup_failure_total", Help: "Failed signups."},
	{ID: goAccount.MetricSignupDuplicate, Name: "goaccount_signup_duplicate_total", Help: "Signups rejected because the username or email exists."},
	{ID: goAccount.MetricSignupRateLimited, Name: "goaccount_signup_rate_limited_total", Help: "Signups rejected by the per-IP throttle."},
	{ID: goAccount.MetricEmailVerificationSuccess, Name: "goaccount_email_verification_success_total", Help: "Successful email verifications."},
	{ID: goAccount.MetricEmailVerificationFailure, Name: "goaccount_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: goAccount.MetricOTPResend, Name: "goaccount_otp_resend_total", Help: "Codes resent on either track."},
	{ID: goAccount.MetricOTPResendLimited, Name: "goaccount_otp_resend_limited_total", Help: "Resends rejected by the resend guard."},
	{ID: goAccount.MetricMailFailure, Name: "goaccount_mail_failure_total", Help: "Failed code deliveries."},
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed logins."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Logins rejected by the throttle."},
	{ID: goAccount.MetricPasswordHashUpgraded, Name: "goaccount_password_hash_upgraded_total", Help: "Stored hashes upgraded on login."},
	{ID: goAccount.MetricSessionCreated, Name: "goaccount_session_created_total", Help: "Issued session tokens."},
	{ID: goAccount.MetricValidateFailure, Name: "goaccount_validate_failure_total", Help: "Rejected bearer tokens."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Single-session logouts."},
	{ID: goAccount.MetricLogoutAll, Name: "goaccount_logout_all_total", Help: "Logout-all operations."},
	{ID: goAccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Forgot-password requests."},
	{ID: goAccount.MetricPasswordResetVerifySuccess, Name: "goaccount_password_reset_verify_success_total", Help: "Reset codes matched."},
	{ID: goAccount.MetricPasswordResetVerifyFailure, Name: "goaccount_password_reset_verify_failure_total", Help: "Reset codes rejected."},
	{ID: goAccount.MetricPasswordResetSuccess, Name: "goaccount_password_reset_success_total", Help: "Completed password resets."},
	{ID: goAccount.MetricPasswordChangeSuccess, Name: "goaccount_password_change_success_total", Help: "Successful password changes."},
	{ID: goAccount.MetricPasswordChangeInvalidOld, Name: "goaccount_password_change_invalid_old_total", Help: "Password changes with a wrong old password."},
	{ID: goAccount.MetricPasswordChangeReuseRejected, Name: "goaccount_password_change_reuse_rejected_total", Help: "Password changes rejected for reuse."},
	{ID: goAccount.MetricProfileCompleted, Name: "goaccount_profile_completed_total", Help: "Completed signups."},
	{ID: goAccount.MetricProfileUpdated, Name: "goaccount_profile_updated_total", Help: "Profile updates."},
	{ID: goAccount.MetricLocationSet, Name: "goaccount_location_set_total", Help: "Stored locations."},
	{ID: goAccount.MetricGeocodeFailure, Name: "goaccount_geocode_failure_total", Help: "Best-effort geocode lookups that failed."},
	{ID: goAccount.MetricImageUploaded, Name: "goaccount_image_uploaded_total", Help: "Uploaded profile pictures."},
	{ID: goAccount.MetricImageDeleted, Name: "goaccount_image_deleted_total", Help: "Deleted profile pictures."},
	{ID: goAccount.MetricAccountDeleted, Name: "goaccount_account_deleted_total", Help: "Deleted accounts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricValidateLatency, Name: "goaccount_validate_latency_seconds", Help: "Bearer token validation latency."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
