package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumeo/auth-core/internal/dto"
	autherr "github.com/lumeo/auth-core/internal/errors"
)

// statusFromError maps a service error category onto an HTTP status and a
// fixed client-facing message. The wrapped detail never leaves the process.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, autherr.ErrValidation):
		return http.StatusBadRequest, autherr.ErrValidation.Error()
	case errors.Is(err, autherr.ErrInvalidCredentials):
		return http.StatusUnauthorized, autherr.ErrInvalidCredentials.Error()
	case errors.Is(err, autherr.ErrInvalidToken):
		return http.StatusUnauthorized, autherr.ErrInvalidToken.Error()
	case errors.Is(err, autherr.ErrAccountLocked):
		return http.StatusLocked, autherr.ErrAccountLocked.Error()
	case errors.Is(err, autherr.ErrEmailTaken):
		return http.StatusConflict, autherr.ErrEmailTaken.Error()
	case errors.Is(err, autherr.ErrForbidden):
		return http.StatusForbidden, autherr.ErrForbidden.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, message := statusFromError(err)
	c.JSON(status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
