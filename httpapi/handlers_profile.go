package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
)

type completeSignupBody struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=30,personname"`
	LastName  string `json:"lastName" validate:"required,min=2,max=30,personname"`
	Phone     string `json:"phone" validate:"omitempty,min=11"`
	Gender    string `json:"gender" validate:"required,gender"`
}

type updateUserBody struct {
	Username  *string `json:"username" validate:"omitempty,min=6,max=25,username"`
	FirstName *string `json:"firstName" validate:"omitempty,min=2,max=30,personname"`
	LastName  *string `json:"lastName" validate:"omitempty,min=2,max=30,personname"`
	Phone     *string `json:"phone" validate:"omitempty,min=11"`
	Gender    *string `json:"gender" validate:"omitempty,gender"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

type deleteUserBody struct {
	Password string `json:"password" validate:"required"`
}

func (a *API) CompleteSignup(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	var body completeSignupBody
	if !a.bindJSON(c, &body) {
		return
	}

	profile, err := a.engine.CompleteSignup(c.Request.Context(), s.User.ID, goAccount.ProfileFields{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Gender:    body.Gender,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile, "token": s.Token})
}

// SetLocation reads the coordinates from the latitude and longitude query
// parameters.
func (a *API) SetLocation(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lonErr != nil {
		a.writeError(c, goAccount.ErrLocationInvalid)
		return
	}

	profile, err := a.engine.SetLocation(c.Request.Context(), s.User.ID, lat, lon)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile})
}

func (a *API) GetUser(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	res, err := a.engine.GetProfile(c.Request.Context(), s.User.ID)
	if err != nil {
		a.writeError(c, err)
		return
	}

	wishlist := res.Wishlist
	if wishlist == nil {
		wishlist = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": res.User, "wishList": wishlist})
}

func (a *API) UpdateUser(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	var body updateUserBody
	if !a.bindJSON(c, &body) {
		return
	}

	profile, err := a.engine.UpdateProfile(c.Request.Context(), s.User.ID, goAccount.ProfileUpdate{
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Gender:    body.Gender,
		Email:     body.Email,
		Password:  body.Password,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile})
}

// UploadImage takes the picture from the "image" multipart field.
func (a *API) UploadImage(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(err)
			return
		}
		a.writeError(c, goAccount.ErrImageMissing)
		return
	}

	f, err := fh.Open()
	if err != nil {
		a.writeError(c, badBody(err))
		return
	}
	defer f.Close()

	// One byte past the limit is enough for the engine to reject it.
	data, err := io.ReadAll(io.LimitReader(f, a.engine.Config().Image.MaxBytes+1))
	if err != nil {
		a.writeError(c, badBody(err))
		return
	}

	profile, err := a.engine.UploadImage(c.Request.Context(), s.User.ID, goAccount.ImageUpload{
		Filename: fh.Filename,
		Data:     data,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile})
}

func (a *API) DeleteProfilePicture(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	profile, err := a.engine.DeleteProfilePicture(c.Request.Context(), s.User.ID)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "user": profile})
}

func (a *API) DeleteUser(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	var body deleteUserBody
	if !a.bindJSON(c, &body) {
		return
	}

	if err := a.engine.DeleteUser(c.Request.Context(), s.User.ID, body.Password); err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Account has been deleted"})
}
