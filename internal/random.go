package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// NewNumericOTP returns a uniformly distributed code in [min, max].
func NewNumericOTP(min, max int) (int, error) {
	if min < 0 || max <= min {
		return 0, errors.New("invalid otp range")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}

	return min + int(n.Int64()), nil
}
