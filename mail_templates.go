package goAccount

//go:generate templ generate -f otp_mail.templ

import (
	"bytes"
	"context"
)

// otpMailView holds everything the code email displays.
type otpMailView struct {
	Brand    string
	Username string
	Code     int
	Validity string
}

func renderOTPMail(ctx context.Context, view otpMailView) (string, error) {
	var buf bytes.Buffer
	if err := otpMail(view).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
