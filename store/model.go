package store

import (
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

// userRow is the gorm model behind the users table.
type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex:idx_users_username;size:25;not null"`
	Email        string `gorm:"uniqueIndex:idx_users_email;size:50;not null"`
	PasswordHash string `gorm:"not null"`

	FirstName string `gorm:"size:30"`
	LastName  string `gorm:"size:30"`
	Phone     string `gorm:"size:32"`
	Gender    string `gorm:"size:8"`
	Role      string `gorm:"size:8;not null;default:user"`

	ImageURL       string
	ImageStorageID string

	HasLocation bool `gorm:"not null;default:false"`
	Longitude   float64
	Latitude    float64
	FullAddress string
	City        string
	State       string
	Country     string

	IsVerified        bool `gorm:"not null;default:false"`
	EmailOTP          *int
	EmailOTPIssuedAt  *time.Time `gorm:"index"`
	OTPAttemptCounter int        `gorm:"not null;default:0"`
	OTPCooldownUntil  *time.Time `gorm:"index"`

	ResetCode     *int
	ResetVerified bool       `gorm:"not null;default:false"`
	ResetIssuedAt *time.Time `gorm:"index"`

	ActiveTokens StringSlice `gorm:"type:text"`
	Wishlist     StringSlice `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string {
	return "users"
}

func toRow(u *goAccount.User) *userRow {
	row := &userRow{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Phone:             u.Phone,
		Gender:            string(u.Gender),
		Role:              string(u.Role),
		ImageURL:          u.Image.URL,
		ImageStorageID:    u.Image.StorageID,
		IsVerified:        u.IsVerified,
		EmailOTP:          copyInt(u.EmailOTP),
		EmailOTPIssuedAt:  utcPtr(u.EmailOTPIssuedAt),
		OTPAttemptCounter: u.OTPAttemptCounter,
		OTPCooldownUntil:  utcPtr(u.OTPCooldownUntil),
		ActiveTokens:      append(StringSlice{}, u.ActiveTokens...),
		Wishlist:          append(StringSlice{}, u.Wishlist...),
		CreatedAt:         u.CreatedAt.UTC(),
		UpdatedAt:         u.UpdatedAt.UTC(),
	}

	if loc := u.Location; loc != nil {
		row.HasLocation = true
		row.Longitude = loc.Longitude
		row.Latitude = loc.Latitude
		row.FullAddress = loc.FullAddress
		row.City = loc.City
		row.State = loc.State
		row.Country = loc.Country
	}

	if r := u.ResetOTP; r != nil {
		code := r.Code
		issued := r.IssuedAt.UTC()
		row.ResetCode = &code
		row.ResetVerified = r.Verified
		row.ResetIssuedAt = &issued
	}

	return row
}

func (r *userRow) toUser() *goAccount.User {
	u := &goAccount.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Phone:        r.Phone,
		Gender:       goAccount.Gender(r.Gender),
		Role:         goAccount.Role(r.Role),
		Image: goAccount.Image{
			URL:       r.ImageURL,
			StorageID: r.ImageStorageID,
		},
		IsVerified:        r.IsVerified,
		EmailOTP:          copyInt(r.EmailOTP),
		EmailOTPIssuedAt:  utcPtr(r.EmailOTPIssuedAt),
		OTPAttemptCounter: r.OTPAttemptCounter,
		OTPCooldownUntil:  utcPtr(r.OTPCooldownUntil),
		ActiveTokens:      append([]string{}, r.ActiveTokens...),
		Wishlist:          append([]string{}, r.Wishlist...),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}

	if r.HasLocation {
		u.Location = &goAccount.Location{
			Longitude: r.Longitude,
			Latitude:  r.Latitude,
			Address: goAccount.Address{
				FullAddress: r.FullAddress,
				City:        r.City,
				State:       r.State,
				Country:     r.Country,
			},
		}
	}

	if r.ResetCode != nil && r.ResetIssuedAt != nil {
		u.ResetOTP = &goAccount.ResetOTP{
			Code:     *r.ResetCode,
			Verified: r.ResetVerified,
			IssuedAt: r.ResetIssuedAt.UTC(),
		}
	}

	return u
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := t.UTC()
	return &out
}
