package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/internal/rate"
	"go.uber.org/zap"
)

// Login authenticates by email, falling back to username, and mints a new
// session token. Every identifier or secret mismatch yields the same
// ErrInvalidCredentials. Only the verification flag is returned.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	identifier = normalizeIdentity(identifier)
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitRateLimit(ctx, "login", "")
				e.emitAudit(ctx, auditEventLogin, false, "", ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			unavailable := wrapError(ErrUnavailable, "Rate limiter is unavailable", err)
			e.emitAudit(ctx, auditEventLogin, false, "", unavailable, nil)
			return nil, unavailable
		}
	}

	user, err := e.findByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.emitAudit(ctx, auditEventLogin, false, "", err, nil)
			return nil, err
		}
		return nil, e.loginFailed(ctx, identifier, ip, "")
	}

	if !e.verifySecret(user, secret) {
		return nil, e.loginFailed(ctx, identifier, ip, user.ID)
	}

	e.maybeUpgradeHash(user, secret)

	token, err := e.issueToken(user)
	if err != nil {
		e.emitAudit(ctx, auditEventLogin, false, user.ID, err, nil)
		return nil, err
	}
	if err := e.save(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventLogin, false, user.ID, err, nil)
		return nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier); err != nil {
			e.logger.Warn("login throttle reset failed", zapUserID(user.ID), zap.Error(err))
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, user.ID, nil, nil)

	return &LoginResult{
		Token:      token,
		IsVerified: user.IsVerified,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip, userID string) error {
	if e.limiter != nil {
		if err := e.limiter.IncrementLogin(ctx, identifier, ip); err != nil {
			e.logger.Warn("login throttle increment failed", zap.Error(err))
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLogin, false, userID, ErrInvalidCredentials, nil)
	return ErrInvalidCredentials
}

// maybeUpgradeHash re-hashes a legacy or weaker hash with the current
// parameters. The new hash is persisted by the caller's save.
func (e *Engine) maybeUpgradeHash(user *User, secret string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	if err := e.setSecret(user, secret); err != nil {
		// Imported secrets may sit outside today's length policy.
		e.logger.Info("password hash upgrade skipped", zapUserID(user.ID), zap.Error(err))
		return
	}
	e.metricInc(MetricPasswordHashUpgraded)
}
