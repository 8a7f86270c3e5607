package httpapi

import (
	"net/http"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
)

type signupBody struct {
	Username    string `json:"username" validate:"required,min=6,max=25,username"`
	Email       string `json:"email" validate:"required,email,min=5,max=50"`
	Password    string `json:"password" validate:"required,min=8,max=50"`
	ConfirmPass string `json:"confirmPass" validate:"eqfield=Password"`
}

func (a *API) Signup(c *gin.Context) {
	var body signupBody
	if !a.bindJSON(c, &body) {
		return
	}

	res, err := a.engine.Signup(c.Request.Context(), goAccount.SignupRequest{
		Username:        body.Username,
		Email:           body.Email,
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPass,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Verification code has been sent",
		"user":    res.User,
		"token":   res.Token,
	})
}

// loginBody takes either an email or a username as the identifier.
type loginBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		a.writeError(c, badBody(err))
		return
	}

	identifier := strings.TrimSpace(body.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(body.Username)
	}
	if identifier == "" || body.Password == "" {
		a.writeError(c, goAccount.ErrInvalidCredentials)
		return
	}

	res, err := a.engine.Login(c.Request.Context(), identifier, body.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"token":      res.Token,
		"isVerified": res.IsVerified,
	})
}

func (a *API) VerifyEmail(c *gin.Context) {
	s, ok := a.ownAccount(c)
	if !ok {
		return
	}

	var body otpBody
	if !a.bindJSON(c, &body) {
		return
	}
	code, err := body.code()
	if err != nil {
		a.writeError(c, err)
		return
	}

	profile, err := a.engine.VerifyEmail(c.Request.Context(), s.User.ID, code)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile})
}

func (a *API) ResendCode(c *gin.Context) {
	s, ok := a.ownAccount(c)
	if !ok {
		return
	}

	if err := a.engine.ResendEmailOTP(c.Request.Context(), s.User.ID); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Verification code has been sent"})
}

func (a *API) Logout(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	if err := a.engine.Logout(c.Request.Context(), s.User.ID, s.Token); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *API) LogoutAll(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	if err := a.engine.LogoutAll(c.Request.Context(), s.User.ID); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
