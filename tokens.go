package goAccount

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"
)

// issueToken mints a token for user and appends it to the active set. The
// caller persists the row.
func (e *Engine) issueToken(user *User) (string, error) {
	token, err := e.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return "", wrapError(ErrUnavailable, "Session could not be created", err)
	}
	user.ActiveTokens = append(user.ActiveTokens, token)
	e.metricInc(MetricSessionCreated)
	return token, nil
}

// Validate resolves a bearer token to its user. The token must verify as
// signed and must still be listed in the user's active tokens.
func (e *Engine) Validate(ctx context.Context, token string) (*Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	if token == "" {
		e.metricInc(MetricValidateFailure)
		return nil, ErrMissingToken
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrInvalidToken
	}

	user, err := e.store.FindByID(ctx, claims.UID)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, translateStoreError(err)
	}
	if !slices.Contains(user.ActiveTokens, token) {
		e.metricInc(MetricValidateFailure)
		return nil, ErrInvalidToken
	}

	return &Session{
		User:  user,
		Role:  user.Role,
		Token: token,
	}, nil
}

// Logout revokes exactly one token of userID. Other sessions stay valid.
func (e *Engine) Logout(ctx context.Context, userID, token string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, userID, err, nil)
		return err
	}

	idx := slices.Index(user.ActiveTokens, token)
	if token == "" || idx < 0 {
		e.emitAudit(ctx, auditEventLogout, false, userID, ErrTokenNotFound, nil)
		return ErrTokenNotFound
	}
	user.ActiveTokens = slices.Delete(user.ActiveTokens, idx, idx+1)

	if err := e.save(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
	return nil
}

// LogoutAll revokes every token of userID.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, err, nil)
		return err
	}

	revoked := len(user.ActiveTokens)
	user.ActiveTokens = []string{}
	if err := e.save(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(revoked)}
	})
	return nil
}
