package goAccount

import (
	"context"
	"errors"
)

const (
	auditEventSignup            = "signup"
	auditEventEmailVerify       = "email_verify"
	auditEventEmailResend       = "email_otp_resend"
	auditEventLogin             = "login"
	auditEventLogout            = "logout"
	auditEventLogoutAll         = "logout_all"
	auditEventPasswordForgot    = "password_forgot"
	auditEventPasswordResend    = "password_otp_resend"
	auditEventPasswordVerifyOTP = "password_otp_verify"
	auditEventPasswordReset     = "password_reset"
	auditEventPasswordChange    = "password_change"
	auditEventProfileComplete   = "profile_complete"
	auditEventProfileUpdate     = "profile_update"
	auditEventLocationSet       = "location_set"
	auditEventImageUpload       = "image_upload"
	auditEventImageDelete       = "image_delete"
	auditEventAccountDelete     = "account_delete"
	auditEventRateLimited       = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written on failed audit events.
type AuditErrorCode string

const (
	auditErrValidation      AuditErrorCode = "validation_failed"
	auditErrDuplicate       AuditErrorCode = "duplicate"
	auditErrNotFound        AuditErrorCode = "not_found"
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrForbidden       AuditErrorCode = "forbidden"
	auditErrInvalidCode     AuditErrorCode = "invalid_code"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrNoOp            AuditErrorCode = "noop"
	auditErrCanceled        AuditErrorCode = "canceled"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, userID string) {
	e.emitAudit(ctx, auditEventRateLimited, false, userID, ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return auditErrCanceled
	}

	switch KindOf(err) {
	case ErrValidationFailed:
		return auditErrValidation
	case ErrConflict:
		return auditErrDuplicate
	case ErrNotFound:
		return auditErrNotFound
	case ErrUnauthenticated:
		return auditErrUnauthenticated
	case ErrForbidden:
		return auditErrForbidden
	case ErrInvalidCode:
		return auditErrInvalidCode
	case ErrRateLimited:
		return auditErrRateLimited
	case ErrUnavailable:
		return auditErrUnavailable
	case ErrNoOp:
		return auditErrNoOp
	default:
		return auditErrInternal
	}
}
