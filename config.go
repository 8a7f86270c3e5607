package goAccount

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of the account engine. Build a Config with
// [DefaultConfig], adjust it, and pass it to [Builder.WithConfig].
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	OTP      OTPConfig
	Account  AccountConfig
	Image    ImageConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token signing.
//
// SessionTTL of zero mints tokens without an expiry claim; such tokens stay
// valid until revoked through logout or logout-all.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	SessionTTL    time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures argon2id hashing and the length policy. Lengths
// are counted in bytes.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures both one-time code tracks.
type OTPConfig struct {
	TTL            time.Duration
	MinCode        int
	MaxCode        int
	MaxResends     int
	ResendCooldown time.Duration

	Brand               string
	VerifySubject       string
	PasswordSubject     string
	CollaboratorTimeout time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig configures defaults applied to new accounts.
type AccountConfig struct {
	DefaultRole      Role
	PlaceholderImage Image
}

// ImageConfig bounds uploaded profile pictures.
type ImageConfig struct {
	MaxBytes     int64
	AllowedTypes []string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig configures the Redis-backed login and signup throttles.
type ThrottleConfig struct {
	Enabled          bool
	RedisPrefix      string
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	MaxSignupsPerIP  int
	SignupWindow     time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process operation counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. JWT keys are left empty
// and must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "goaccount",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			MaxLength:      50,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			TTL:                 90 * time.Minute,
			MinCode:             1000,
			MaxCode:             9999,
			MaxResends:          5,
			ResendCooldown:      10 * time.Minute,
			Brand:               "Home Finder",
			VerifySubject:       "Verify your email",
			PasswordSubject:     "Reset Password",
			CollaboratorTimeout: 10 * time.Second,
		},
		Account: AccountConfig{
			DefaultRole: RoleUser,
			PlaceholderImage: Image{
				URL:       "https://res.cloudinary.com/dgslxtxg8/image/upload/v1703609152/iwonvcvpn6oidmyhezvh.jpg",
				StorageID: "iwonvcvpn6oidmyhezvh",
			},
		},
		Image: ImageConfig{
			MaxBytes:     2_000_000,
			AllowedTypes: []string{"image/jpeg", "image/png"},
		},
		Throttle: ThrottleConfig{
			Enabled:          true,
			RedisPrefix:      "acct",
			EnableIPThrottle: true,
			MaxLoginAttempts: 10,
			LoginWindow:      15 * time.Minute,
			MaxSignupsPerIP:  5,
			SignupWindow:     time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	out.Image.AllowedTypes = append([]string(nil), cfg.Image.AllowedTypes...)
	return out
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// JWT
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SessionTTL < 0 {
		return errors.New("JWT SessionTTL must be >= 0")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MinCode < 0 || c.OTP.MaxCode <= c.OTP.MinCode {
		return errors.New("OTP code range is invalid")
	}
	if c.OTP.MaxResends <= 0 {
		return errors.New("OTP MaxResends must be > 0")
	}
	if c.OTP.ResendCooldown <= 0 {
		return errors.New("OTP ResendCooldown must be > 0")
	}
	if c.OTP.CollaboratorTimeout <= 0 {
		return errors.New("OTP CollaboratorTimeout must be > 0")
	}

	// Account
	if !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole must be user or admin")
	}
	if strings.TrimSpace(c.Account.PlaceholderImage.StorageID) == "" {
		return errors.New("Account PlaceholderImage requires a StorageID")
	}

	// Image
	if c.Image.MaxBytes <= 0 {
		return errors.New("Image MaxBytes must be > 0")
	}
	if len(c.Image.AllowedTypes) == 0 {
		return errors.New("Image AllowedTypes must not be empty")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxLoginAttempts <= 0 || c.Throttle.LoginWindow <= 0 {
			return errors.New("Throttle login limits must be > 0")
		}
		if c.Throttle.MaxSignupsPerIP <= 0 || c.Throttle.SignupWindow <= 0 {
			return errors.New("Throttle signup limits must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
