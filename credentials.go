package goAccount

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goAccount/password"
)

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// translateStoreError maps a UserStore failure onto the error taxonomy.
// Not-found and conflict errors pass through; everything else means the
// store is unavailable.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if isContextError(err) {
		return err
	}
	var classified *Error
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrConflict):
		if errors.As(err, &classified) {
			return classified
		}
		return ErrDuplicateAccount
	default:
		return storeUnavailable(err)
	}
}

func (e *Engine) findByID(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return user, nil
}

func (e *Engine) findByEmail(ctx context.Context, email string) (*User, error) {
	email = normalizeIdentity(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	user, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return user, nil
}

// findByIdentifier looks the identifier up as an email first and falls back
// to the username.
func (e *Engine) findByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = normalizeIdentity(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	user, err := e.store.FindByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, translateStoreError(err)
	}

	user, err = e.store.FindByUsername(ctx, identifier)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return user, nil
}

// ensureAvailable reports a conflict when username or email already belongs
// to a row other than selfID.
func (e *Engine) ensureAvailable(ctx context.Context, selfID, username, email string) error {
	if username != "" {
		existing, err := e.store.FindByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrUsernameTaken
		case err != nil && !errors.Is(err, ErrNotFound):
			return translateStoreError(err)
		}
	}
	if email != "" {
		existing, err := e.store.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrEmailTaken
		case err != nil && !errors.Is(err, ErrNotFound):
			return translateStoreError(err)
		}
	}
	return nil
}

func (e *Engine) create(ctx context.Context, user *User) error {
	now := e.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	return translateStoreError(e.store.Create(ctx, user))
}

// save persists user as is. It never touches PasswordHash; the only writer of
// that field is setSecret.
func (e *Engine) save(ctx context.Context, user *User) error {
	user.UpdatedAt = e.now()
	return translateStoreError(e.store.Save(ctx, user))
}

// setSecret hashes plain and stores the result on user. It is the single
// place where a plaintext becomes a hash.
func (e *Engine) setSecret(user *User, plain string) error {
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return ErrPasswordPolicy
		}
		return wrapError(ErrUnavailable, "Password could not be hashed", err)
	}
	user.PasswordHash = hash
	return nil
}

// verifySecret compares candidate with the stored hash in constant time. A
// malformed stored hash never verifies.
func (e *Engine) verifySecret(user *User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	ok, err := e.hasher.Verify(candidate, user.PasswordHash)
	if err != nil {
		e.logger.Warn("stored password hash is unreadable", zapUserID(user.ID))
		return false
	}
	return ok
}

func (e *Engine) checkPolicy(plain string) error {
	if err := e.hasher.CheckPolicy(plain); err != nil {
		return ErrPasswordPolicy
	}
	return nil
}

// Serialize returns the externally visible projection of user.
func (e *Engine) Serialize(user *User) Profile {
	return serialize(user)
}

func serialize(user *User) Profile {
	if user == nil {
		return Profile{}
	}
	p := Profile{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Gender:     user.Gender,
		Role:       user.Role,
		Image:      user.Image,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
	if user.Location != nil {
		loc := *user.Location
		p.Location = &loc
	}
	return p
}
