package httpapi

import (
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericMessage = "something went wrong!"

var kindStatus = map[error]int{
	goAccount.ErrValidationFailed: http.StatusBadRequest,
	goAccount.ErrConflict:         http.StatusConflict,
	goAccount.ErrNotFound:         http.StatusNotFound,
	goAccount.ErrUnauthenticated:  http.StatusUnauthorized,
	goAccount.ErrForbidden:        http.StatusForbidden,
	goAccount.ErrInvalidCode:      http.StatusBadRequest,
	goAccount.ErrRateLimited:      http.StatusTooManyRequests,
	goAccount.ErrUnavailable:      http.StatusServiceUnavailable,
	goAccount.ErrNoOp:             http.StatusBadRequest,
}

// StatusOf returns the HTTP status for err. Unclassified errors map to 500.
func StatusOf(err error) int {
	if status, ok := kindStatus[goAccount.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func badBody(err error) error {
	return &goAccount.Error{Kind: goAccount.ErrValidationFailed, Message: "Invalid request body", Err: err}
}

func (a *API) writeError(c *gin.Context, err error) {
	status := StatusOf(err)
	classified := goAccount.KindOf(err) != nil

	message := genericMessage
	if classified {
		message = goAccount.MessageOf(err)
	}

	body := gin.H{"message": message}
	if status >= http.StatusInternalServerError {
		body["status"] = "error"
	} else {
		body["status"] = "fail"
	}

	var ae *goAccount.Error
	if errors.As(err, &ae) && ae.Field != "" {
		body["field"] = ae.Field
	}
	if a.mode == ModeDevelopment {
		body["detail"] = err.Error()
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", fields...)
	} else {
		a.logger.Debug("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, body)
}
