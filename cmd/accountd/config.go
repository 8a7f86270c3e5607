package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/geocode"
	"github.com/MrEthical07/goAccount/imagestore"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/MrEthical07/goAccount/store"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// appConfig is everything the binary needs, resolved from config.toml, an
// optional .env file and the environment.
type appConfig struct {
	Env      string
	LogLevel string

	Addr            string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
	MaxBodyBytes    int64
	RateLimit       middleware.RateLimiterConfig

	Database       store.Options
	Sweeper        store.SweeperConfig
	SweeperEnabled bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Engine goAccount.Config
	SMTP   mail.Options
	S3     imagestore.Options

	GeocodeEnabled bool
	Geocode        geocode.Options
}

func loadConfig(args []string) (*appConfig, error) {
	fs := pflag.NewFlagSet("accountd", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to the config file (default ./config.toml)")
	envPath := fs.String("env", "", "path to a .env file loaded into the environment")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *envPath != "" {
		if err := loadDotEnv(*envPath); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys map to upper snake case variables (jwt.secret -> JWT_SECRET).
	// These also accept their conventional names.
	v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	v.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	v.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configPath != "" {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables of a dotenv file unless the process
// environment already sets them.
func loadDotEnv(path string) error {
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file, %w", err)
	}

	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := goAccount.DefaultConfig()

	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allow_origins", []string{})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.rps", 10)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("database.driver", store.DriverSQLite)
	v.SetDefault("database.dsn", "accounts.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.schedule", "@every 5m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.signing_method", defaults.JWT.SigningMethod)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", defaults.JWT.Issuer)
	v.SetDefault("jwt.session_ttl", "0s")

	v.SetDefault("otp.ttl", defaults.OTP.TTL.String())
	v.SetDefault("otp.max_resends", defaults.OTP.MaxResends)
	v.SetDefault("otp.resend_cooldown", defaults.OTP.ResendCooldown.String())
	v.SetDefault("otp.brand", defaults.OTP.Brand)

	v.SetDefault("throttle.enabled", defaults.Throttle.Enabled)
	v.SetDefault("throttle.prefix", defaults.Throttle.RedisPrefix)
	v.SetDefault("throttle.login_attempts", defaults.Throttle.MaxLoginAttempts)
	v.SetDefault("throttle.login_window", defaults.Throttle.LoginWindow.String())
	v.SetDefault("throttle.signups_per_ip", defaults.Throttle.MaxSignupsPerIP)
	v.SetDefault("throttle.signup_window", defaults.Throttle.SignupWindow.String())

	v.SetDefault("audit.enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", defaults.OTP.Brand)
	v.SetDefault("smtp.ssl", false)

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("s3.key_prefix", "avatars")

	v.SetDefault("geocode.enabled", false)
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.timeout", "5s")
	v.SetDefault("geocode.cache_ttl", "24h")
}

func fromViper(v *viper.Viper) (*appConfig, error) {
	engine := goAccount.DefaultConfig()

	engine.JWT.SigningMethod = strings.ToLower(v.GetString("jwt.signing_method"))
	engine.JWT.Issuer = v.GetString("jwt.issuer")
	engine.JWT.SessionTTL = v.GetDuration("jwt.session_ttl")
	switch engine.JWT.SigningMethod {
	case "ed25519":
		priv, err := os.ReadFile(v.GetString("jwt.private_key_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read jwt private key, %w", err)
		}
		pub, err := os.ReadFile(v.GetString("jwt.public_key_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read jwt public key, %w", err)
		}
		engine.JWT.PrivateKey = priv
		engine.JWT.PublicKey = pub
	default:
		engine.JWT.PrivateKey = []byte(v.GetString("jwt.secret"))
	}

	engine.OTP.TTL = v.GetDuration("otp.ttl")
	engine.OTP.MaxResends = v.GetInt("otp.max_resends")
	engine.OTP.ResendCooldown = v.GetDuration("otp.resend_cooldown")
	engine.OTP.Brand = v.GetString("otp.brand")

	engine.Throttle.Enabled = v.GetBool("throttle.enabled")
	engine.Throttle.RedisPrefix = v.GetString("throttle.prefix")
	engine.Throttle.MaxLoginAttempts = v.GetInt("throttle.login_attempts")
	engine.Throttle.LoginWindow = v.GetDuration("throttle.login_window")
	engine.Throttle.MaxSignupsPerIP = v.GetInt("throttle.signups_per_ip")
	engine.Throttle.SignupWindow = v.GetDuration("throttle.signup_window")

	engine.Audit.Enabled = v.GetBool("audit.enabled")
	engine.Metrics.Enabled = v.GetBool("metrics.enabled")
	engine.Metrics.EnableLatencyHistograms = v.GetBool("metrics.latency")

	return &appConfig{
		Env:      v.GetString("app.env"),
		LogLevel: v.GetString("app.log_level"),

		Addr:            v.GetString("server.addr"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		AllowOrigins:    stringList(v.GetStringSlice("server.allow_origins")),
		MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: v.GetFloat64("server.rate_limit.rps"),
			Burst:             v.GetInt("server.rate_limit.burst"),
		},

		Database: store.Options{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogSQL:          v.GetBool("database.log_sql"),
		},
		Sweeper: store.SweeperConfig{
			Schedule: v.GetString("sweeper.schedule"),
			OTPTTL:   engine.OTP.TTL,
		},
		SweeperEnabled: v.GetBool("sweeper.enabled"),

		RedisAddr:     v.GetString("redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),

		Engine: engine,
		SMTP: mail.Options{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			FromName: v.GetString("smtp.from_name"),
			SSL:      v.GetBool("smtp.ssl"),
		},
		S3: imagestore.Options{
			Bucket:          v.GetString("s3.bucket"),
			Region:          v.GetString("s3.region"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			Endpoint:        v.GetString("s3.endpoint"),
			UsePathStyle:    v.GetBool("s3.use_path_style"),
			PublicBaseURL:   v.GetString("s3.public_base_url"),
			KeyPrefix:       v.GetString("s3.key_prefix"),
		},

		GeocodeEnabled: v.GetBool("geocode.enabled"),
		Geocode: geocode.Options{
			BaseURL:  v.GetString("geocode.base_url"),
			APIKey:   v.GetString("geocode.api_key"),
			Timeout:  v.GetDuration("geocode.timeout"),
			CacheTTL: v.GetDuration("geocode.cache_ttl"),
		},
	}, nil
}

// stringList accepts both TOML arrays and comma separated env values.
func stringList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *appConfig) validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return errors.New("invalid log level provided")
	}
	if c.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be > 0")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Engine.Throttle.Enabled && c.RedisAddr == "" {
		return errors.New("redis.addr is required while throttle.enabled is set")
	}
	if c.SMTP.Host == "" {
		return errors.New("smtp.host must not be empty")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("invalid account config, %w", err)
	}
	return nil
}
