package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"go.uber.org/zap"
)

// Engine runs the account state machine. Build one with [New].
type Engine struct {
	config   Config
	store    UserStore
	mailer   Mailer
	images   ImageStore
	geocoder Geocoder
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
	hasher   *password.Hasher
	tokens   *jwt.Manager
	logger   *zap.Logger
	clock    func() time.Time
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// collaboratorContext bounds a single mail, image or geocode call.
func (e *Engine) collaboratorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.OTP.CollaboratorTimeout)
}

// requireVerified guards every profile operation.
func requireVerified(user *User) error {
	if !user.IsVerified {
		return ErrEmailNotVerified
	}
	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func zapUserID(id string) zap.Field {
	return zap.String("user_id", id)
}
