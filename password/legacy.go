package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var legacyPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// IsLegacy reports whether encoded is a bcrypt hash.
func IsLegacy(encoded string) bool {
	for _, p := range legacyPrefixes {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}

func verifyLegacy(plain, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
