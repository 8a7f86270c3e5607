package goAccount

import (
	"context"
	"io"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
)

// Role is the flat account role. There is no hierarchy between roles.
type Role string

const (
	// RoleUser is assigned to every account at signup.
	RoleUser Role = "user"
	// RoleAdmin is granted out of band.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Gender is stored lowercased; input is matched case-insensitively.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalizes s into a Gender.
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	}
	return "", ErrGenderInvalid
}

// Image references an object held by the image store.
type Image struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// Address is the best-effort result of reverse geocoding.
type Address struct {
	FullAddress string `json:"fullAddress,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Location holds the user's coordinates and, when resolved, their address.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address
}

// ResetOTP is the password-reset track of a user. Verified becomes true only
// after the stored code was matched.
type ResetOTP struct {
	Code     int
	Verified bool
	IssuedAt time.Time
}

// User is the persisted account row owned by the credential store.
//
// PasswordHash is only ever written through the hashing transition inside the
// Engine; stores persist it verbatim.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string

	FirstName string
	LastName  string
	Phone     string
	Gender    Gender
	Role      Role

	Image    Image
	Location *Location

	IsVerified        bool
	EmailOTP          *int
	EmailOTPIssuedAt  *time.Time
	OTPAttemptCounter int
	OTPCooldownUntil  *time.Time

	ResetOTP *ResetOTP

	ActiveTokens []string
	Wishlist     []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the externally visible projection of a User. It never carries
// the password hash, OTP state, counters, reset state or session tokens.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Gender     Gender    `json:"gender,omitempty"`
	Role       Role      `json:"role"`
	Image      Image     `json:"image"`
	Location   *Location `json:"location,omitempty"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProfileWithWishlist is returned by [Engine.GetProfile].
type ProfileWithWishlist struct {
	User     Profile  `json:"user"`
	Wishlist []string `json:"wishList"`
}

// SignupRequest carries the identity and secret of a new account.
type SignupRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult is returned by [Engine.Signup].
type AuthResult struct {
	Token string
	User  Profile
}

// LoginResult deliberately exposes only the verification flag.
type LoginResult struct {
	Token      string
	IsVerified bool
}

// Session is the outcome of a successful [Engine.Validate].
type Session struct {
	User  *User
	Role  Role
	Token string
}

// ProfileFields are set together by [Engine.CompleteSignup].
type ProfileFields struct {
	FirstName string
	LastName  string
	Phone     string
	Gender    string
}

// ProfileUpdate carries optional field changes. Email and Password exist so
// that attempts to change them through this path can be rejected.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Gender    *string
	Email     *string
	Password  *string
}

// ImageUpload is the raw content of a profile picture.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// UserStore persists User rows.
//
// Lookups return an error matching [ErrNotFound] when no row exists. Create
// and Save return an error matching [ErrConflict] when a unique column
// (username, email) is already owned by another row. Any other failure is
// treated as the store being unavailable.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// Mailer delivers an HTML message. The Engine never retries.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ImageStore uploads and deletes profile pictures by opaque storage id.
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (Image, error)
	Delete(ctx context.Context, storageID string) error
}

// Geocoder resolves coordinates into an address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (Address, error)
}

// AuditEvent is the structured record emitted for every account operation.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers events on a channel, mostly for tests.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs events through a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink on w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
