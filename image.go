package goAccount

import (
	"github.com/gabriel-vasile/mimetype"
)

// detectImageType checks an upload against the configured size and type
// limits and returns the sniffed content type. The filename extension is
// ignored; only the bytes decide.
func (e *Engine) detectImageType(upload ImageUpload) (string, error) {
	if len(upload.Data) == 0 {
		return "", ErrImageMissing
	}
	if int64(len(upload.Data)) > e.config.Image.MaxBytes {
		return "", ErrImageTooLarge
	}

	mime := mimetype.Detect(upload.Data)
	for _, allowed := range e.config.Image.AllowedTypes {
		if mime.Is(allowed) {
			return allowed, nil
		}
	}
	return "", ErrImageType
}

func (e *Engine) isPlaceholder(img Image) bool {
	return img.StorageID == "" || img.StorageID == e.config.Account.PlaceholderImage.StorageID
}
