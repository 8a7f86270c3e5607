package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
)

// bindJSON decodes and validates the request body into dst. On failure the
// response has already been written.
func (a *API) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// BodySizeLimiter answers once the handler returns.
			_ = c.Error(err)
			return false
		}
		a.writeError(c, badBody(err))
		return false
	}
	if err := validateBody(dst); err != nil {
		a.writeError(c, err)
		return false
	}
	return true
}

func (a *API) session(c *gin.Context) (*goAccount.Session, bool) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		a.writeError(c, goAccount.ErrMissingToken)
	}
	return s, ok
}

// ownAccount rejects path ids that do not name the authenticated user.
func (a *API) ownAccount(c *gin.Context) (*goAccount.Session, bool) {
	s, ok := a.session(c)
	if !ok {
		return nil, false
	}
	if c.Param("id") != s.User.ID {
		a.writeError(c, goAccount.ErrNotOwnAccount)
		return nil, false
	}
	return s, true
}

// otpBody accepts the code as a JSON number or a numeric string.
type otpBody struct {
	OTP json.Number `json:"otp" validate:"required"`
}

func (b otpBody) code() (int, error) {
	n, err := strconv.Atoi(b.OTP.String())
	if err != nil {
		return 0, &goAccount.Error{
			Kind:    goAccount.ErrValidationFailed,
			Field:   "otp",
			Message: `"otp" must be a number`,
			Err:     err,
		}
	}
	return n, nil
}
