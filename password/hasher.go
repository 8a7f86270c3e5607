package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// ErrPolicy is returned when a plaintext falls outside the configured length
// bounds. Lengths are counted in bytes of the raw string.
var ErrPolicy = errors.New("password length outside policy")

// Config holds Argon2id cost parameters and the length policy.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
	MaxLength int
}

// Hasher produces and checks password hashes. It is safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// CheckPolicy reports ErrPolicy when plain is too short or too long.
func (h *Hasher) CheckPolicy(plain string) error {
	if len(plain) < h.config.MinLength || len(plain) > h.config.MaxLength {
		return ErrPolicy
	}
	return nil
}

// Hash returns the Argon2id PHC encoding of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if err := h.CheckPolicy(plain); err != nil {
		return "", err
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded. Both Argon2id and legacy
// bcrypt encodings are accepted. Oversized input is rejected before any
// key derivation runs.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	if len(plain) > h.config.MaxLength {
		return false, nil
	}
	if IsLegacy(encoded) {
		return verifyLegacy(plain, encoded)
	}

	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plain), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether encoded should be replaced by a fresh hash:
// it is a legacy bcrypt hash or uses weaker Argon2id parameters.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	if IsLegacy(encoded) {
		return true, nil
	}

	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	switch {
	case h.config.Memory > parsed.memory,
		h.config.Time > parsed.time,
		h.config.Parallelism > parsed.parallelism,
		h.config.KeyLength != parsed.keyLength:
		return true, nil
	}
	return false, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	if cfg.MinLength < 1 || cfg.MaxLength < cfg.MinLength {
		return errors.New("password length bounds are invalid")
	}
	return nil
}
