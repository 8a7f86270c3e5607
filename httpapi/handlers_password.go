package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type forgotBody struct {
	Email string `json:"email" validate:"required,email"`
}

type resetBody struct {
	Password    string `json:"password" validate:"required"`
	ConfirmPass string `json:"confirmPass"`
}

type changePasswordBody struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
	ConfirmPass string `json:"confirmPass"`
}

func (a *API) ForgotPassword(c *gin.Context) {
	var body forgotBody
	if !a.bindJSON(c, &body) {
		return
	}

	if err := a.engine.ForgotPassword(c.Request.Context(), body.Email); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Verification code has been sent"})
}

func (a *API) ResendPasswordOTP(c *gin.Context) {
	if err := a.engine.ResendPasswordOTP(c.Request.Context(), c.Param("email")); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Verification code has been sent"})
}

func (a *API) VerifyPasswordOTP(c *gin.Context) {
	var body otpBody
	if !a.bindJSON(c, &body) {
		return
	}
	code, err := body.code()
	if err != nil {
		a.writeError(c, err)
		return
	}

	if err := a.engine.VerifyPasswordOTP(c.Request.Context(), c.Param("email"), code); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Code verified"})
}

// ResetPassword sets a new password once the reset code was verified for
// the email in the path.
func (a *API) ResetPassword(c *gin.Context) {
	var body resetBody
	if !a.bindJSON(c, &body) {
		return
	}

	err := a.engine.ResetPassword(c.Request.Context(), c.Param("email"), body.Password, body.ConfirmPass)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password has been reset"})
}

func (a *API) ChangePassword(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	var body changePasswordBody
	if !a.bindJSON(c, &body) {
		return
	}

	err := a.engine.ChangePassword(c.Request.Context(), s.User.ID, body.OldPassword, body.NewPassword, body.ConfirmPass)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Password has been changed"})
}
