package goAccount

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
)

// CompleteSignup sets first name, last name, phone and gender together.
func (e *Engine) CompleteSignup(ctx context.Context, userID string, fields ProfileFields) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Profile, error) {
		e.emitAudit(ctx, auditEventProfileComplete, false, userID, err, nil)
		return nil, err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}

	gender, err := ParseGender(fields.Gender)
	if err != nil {
		return fail(err)
	}

	user.FirstName = strings.TrimSpace(fields.FirstName)
	user.LastName = strings.TrimSpace(fields.LastName)
	user.Phone = strings.TrimSpace(fields.Phone)
	user.Gender = gender
	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricProfileCompleted)
	e.emitAudit(ctx, auditEventProfileComplete, true, userID, nil, nil)

	profile := serialize(user)
	return &profile, nil
}

// SetLocation stores the coordinates of userID and, when a geocoder is
// configured, the resolved address. A geocoding failure is logged and the
// coordinates are saved anyway.
func (e *Engine) SetLocation(ctx context.Context, userID string, latitude, longitude float64) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Profile, error) {
		e.emitAudit(ctx, auditEventLocationSet, false, userID, err, nil)
		return nil, err
	}

	if !validCoordinate(latitude, 90) || !validCoordinate(longitude, 180) {
		return fail(ErrLocationInvalid)
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}

	loc := &Location{Latitude: latitude, Longitude: longitude}
	resolved := false
	if e.geocoder != nil {
		geoCtx, cancel := e.collaboratorContext(ctx)
		addr, err := e.geocoder.ReverseGeocode(geoCtx, latitude, longitude)
		cancel()
		if err != nil {
			e.metricInc(MetricGeocodeFailure)
			e.logger.Warn("reverse geocoding failed, saving coordinates only",
				zapUserID(userID),
				zap.Float64("latitude", latitude),
				zap.Float64("longitude", longitude),
				zap.Error(err),
			)
		} else {
			loc.Address = addr
			resolved = true
		}
	}

	user.Location = loc
	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricLocationSet)
	e.emitAudit(ctx, auditEventLocationSet, true, userID, nil, func() map[string]string {
		if resolved {
			return map[string]string{"address": "resolved"}
		}
		return map[string]string{"address": "unresolved"}
	})

	profile := serialize(user)
	return &profile, nil
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// GetProfile returns the projection of userID together with its wishlist.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*ProfileWithWishlist, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireVerified(user); err != nil {
		return nil, err
	}

	wishlist := append([]string{}, user.Wishlist...)
	return &ProfileWithWishlist{
		User:     serialize(user),
		Wishlist: wishlist,
	}, nil
}

// UpdateProfile applies the non-nil fields of update. Email and password
// cannot be changed here, and a username owned by another row is rejected.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Profile, error) {
		e.emitAudit(ctx, auditEventProfileUpdate, false, userID, err, nil)
		return nil, err
	}

	if update.Email != nil || update.Password != nil {
		return fail(ErrCredentialChangeForbidden)
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}

	if update.Username != nil {
		username := normalizeIdentity(*update.Username)
		if username == "" {
			return fail(fieldError("username", "Please provide a username"))
		}
		if username != user.Username {
			if err := e.ensureAvailable(ctx, user.ID, username, ""); err != nil {
				return fail(err)
			}
			user.Username = username
		}
	}
	if update.Gender != nil {
		gender, err := ParseGender(*update.Gender)
		if err != nil {
			return fail(err)
		}
		user.Gender = gender
	}
	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}

	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdate, true, userID, nil, nil)

	profile := serialize(user)
	return &profile, nil
}

// UploadImage stores a new profile picture and then removes the previous
// one unless it was the placeholder. Removal is best-effort.
func (e *Engine) UploadImage(ctx context.Context, userID string, upload ImageUpload) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Profile, error) {
		e.emitAudit(ctx, auditEventImageUpload, false, userID, err, nil)
		return nil, err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}

	contentType, err := e.detectImageType(upload)
	if err != nil {
		return fail(err)
	}
	if e.images == nil {
		return fail(newError(ErrUnavailable, "Image storage is not configured"))
	}

	upCtx, cancel := e.collaboratorContext(ctx)
	img, err := e.images.Upload(upCtx, upload.Filename, contentType, upload.Data)
	cancel()
	if err != nil {
		return fail(wrapError(ErrUnavailable, "Image could not be uploaded", err))
	}

	previous := user.Image
	user.Image = img
	if err := e.save(ctx, user); err != nil {
		e.deleteImageBestEffort(ctx, userID, img)
		return fail(err)
	}
	if !e.isPlaceholder(previous) {
		e.deleteImageBestEffort(ctx, userID, previous)
	}

	e.metricInc(MetricImageUploaded)
	e.emitAudit(ctx, auditEventImageUpload, true, userID, nil, nil)

	profile := serialize(user)
	return &profile, nil
}

// DeleteProfilePicture removes the stored picture and restores the
// placeholder. Deleting the placeholder itself is a no-op error.
func (e *Engine) DeleteProfilePicture(ctx context.Context, userID string) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Profile, error) {
		e.emitAudit(ctx, auditEventImageDelete, false, userID, err, nil)
		return nil, err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}
	if e.isPlaceholder(user.Image) {
		return fail(ErrPlaceholderImage)
	}

	if e.images == nil {
		return fail(newError(ErrUnavailable, "Image storage is not configured"))
	}

	delCtx, cancel := e.collaboratorContext(ctx)
	err = e.images.Delete(delCtx, user.Image.StorageID)
	cancel()
	if err != nil {
		return fail(wrapError(ErrUnavailable, "Image could not be deleted", err))
	}

	user.Image = e.config.Account.PlaceholderImage
	if err := e.save(ctx, user); err != nil {
		return fail(err)
	}

	e.metricInc(MetricImageDeleted)
	e.emitAudit(ctx, auditEventImageDelete, true, userID, nil, nil)

	profile := serialize(user)
	return &profile, nil
}

// DeleteUser hard-deletes a verified account after checking its secret. The
// stored picture is removed best-effort afterwards.
func (e *Engine) DeleteUser(ctx context.Context, userID, secret string) error {
	if err := e.ready(); err != nil {
		return err
	}

	fail := func(err error) error {
		e.emitAudit(ctx, auditEventAccountDelete, false, userID, err, nil)
		return err
	}

	user, err := e.findByID(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if err := requireVerified(user); err != nil {
		return fail(err)
	}
	if !e.verifySecret(user, secret) {
		return fail(ErrPasswordInvalid)
	}

	if err := translateStoreError(e.store.Delete(ctx, user.ID)); err != nil {
		return fail(err)
	}
	if !e.isPlaceholder(user.Image) {
		e.deleteImageBestEffort(ctx, userID, user.Image)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDelete, true, userID, nil, nil)
	return nil
}

func (e *Engine) deleteImageBestEffort(ctx context.Context, userID string, img Image) {
	if e.images == nil || img.StorageID == "" {
		return
	}
	delCtx, cancel := e.collaboratorContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := e.images.Delete(delCtx, img.StorageID); err != nil {
		e.logger.Warn("image cleanup failed", zapUserID(userID), zap.String("storage_id", img.StorageID), zap.Error(err))
	}
}
