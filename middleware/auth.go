package middleware

import (
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "goaccount.session"
	userIDKey  = "userID"
)

// ErrorHandler writes an error response and aborts the chain.
type ErrorHandler func(c *gin.Context, err error)

// SessionFrom returns the session stored by Auth.
func SessionFrom(c *gin.Context) (*goAccount.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*goAccount.Session)
	return s, ok && s != nil
}

// Auth rejects requests without a valid bearer token. Failures are passed to
// onError; a nil onError answers with a bare 401.
func Auth(engine *goAccount.Engine, onError ErrorHandler) gin.HandlerFunc {
	if onError == nil {
		onError = func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(401, gin.H{"status": "fail", "message": goAccount.MessageOf(err)})
		}
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			onError(c, goAccount.ErrMissingToken)
			return
		}

		session, err := engine.Validate(c.Request.Context(), token)
		if err != nil {
			onError(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Set(userIDKey, session.User.ID)
		c.Next()
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
