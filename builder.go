package goAccount

import (
	"errors"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use: Build fails when
// called a second time.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     UserStore
	mailer    Mailer
	images    ImageStore
	geocoder  Geocoder
	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the login and signup throttles. It
// is required while Throttle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithStore(store UserStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithImageStore enables UploadImage. Without it uploads fail as unavailable
// and picture deletion only resets the row to the placeholder.
func (b *Builder) WithImageStore(images ImageStore) *Builder {
	b.images = images
	return b
}

// WithGeocoder enables address resolution in SetLocation.
func (b *Builder) WithGeocoder(geocoder Geocoder) *Builder {
	b.geocoder = geocoder
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and collaborators and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("user store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("Throttle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		mailer:   b.mailer,
		images:   b.images,
		geocoder: b.geocoder,
		logger:   logger.Named("goaccount"),
		metrics:  NewMetrics(cfg.Metrics),
	}

	if cfg.Throttle.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Throttle.RedisPrefix,
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
			MaxLoginAttempts: cfg.Throttle.MaxLoginAttempts,
			LoginWindow:      cfg.Throttle.LoginWindow,
			MaxSignupsPerIP:  cfg.Throttle.MaxSignupsPerIP,
			SignupWindow:     cfg.Throttle.SignupWindow,
		})
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
		MaxLength:   cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		TTL:           cfg.JWT.SessionTTL,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	b.built = true

	return engine, nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	return append([]byte(nil), in...)
}
