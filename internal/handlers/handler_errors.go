package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paycore/paycore/internal/apperrors"
)

// writeError maps service errors onto HTTP responses. Unknown errors are
// logged and masked with a generic 500 so internals never leak to callers.
func writeError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrAccountInactive),
		errors.Is(err, apperrors.ErrRateUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// actorFrom identifies the caller for audit attribution. Deployments that
// front this service with a gateway pass the authenticated principal through
// the X-User-ID header.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-User-ID"); actor != "" {
		return actor
	}
	return "api"
}
