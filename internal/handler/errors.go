package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aetherlens/backend/internal/logger"
	"github.com/aetherlens/backend/internal/model"
	"github.com/aetherlens/backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	detailTokenExpired    = "Token has expired"
	detailTokenInvalid    = "Could not validate credentials"
	detailUnauthenticated = "Invalid authentication credentials"
	detailNotAuthed       = "Not authenticated"
	detailInternal        = "Internal server error"
)

// writeError maps the service error taxonomy onto an HTTP response and aborts the
// chain. Anything outside the taxonomy becomes a bare 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		abortUnauthorized(c, detailTokenExpired)
	case errors.Is(err, service.ErrTokenInvalid):
		abortUnauthorized(c, detailTokenInvalid)
	case errors.Is(err, service.ErrUnauthenticated):
		abortUnauthorized(c, detailUnauthenticated)
	case errors.Is(err, service.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Detail: "Forbidden"})
	case errors.Is(err, service.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{Detail: detailOf(err, service.ErrInvalidInput, "Invalid request")})
	case errors.Is(err, service.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, model.ErrorResponse{Detail: detailOf(err, service.ErrNotFound, "Not found")})
	case errors.Is(err, service.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, model.ErrorResponse{Detail: detailOf(err, service.ErrConflict, "Already exists")})
	default:
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Detail: detailInternal})
	}
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Detail: detail})
}

// detailOf strips the sentinel prefix from a wrapped error ("not found: Device 'x'
// not found" -> "Device 'x' not found").
func detailOf(err, sentinel error, fallback string) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimSpace(strings.TrimPrefix(msg, ":"))
	if msg == "" {
		return fallback
	}
	return msg
}
