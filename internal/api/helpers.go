package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/middleware"
	"codequest-backend-go/internal/models"
)

// identityFromContext rebuilds the authenticated identity from the
// context keys set by the auth middleware. The boolean is false when
// the middleware did not run or failed.
func identityFromContext(c *gin.Context) (models.Identity, bool) {
	rawUID, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return models.Identity{}, false
	}
	uid, ok := rawUID.(string)
	if !ok || uid == "" {
		return models.Identity{}, false
	}
	identity := models.Identity{UID: uid}
	if email, ok := c.Get(middleware.ContextUserEmail); ok {
		identity.Email, _ = email.(string)
	}
	if name, ok := c.Get(middleware.ContextDisplayName); ok {
		identity.DisplayName, _ = name.(string)
	}
	return identity, true
}

// abortMissingIdentity is the shared response for handlers reached
// without a populated identity.
func abortMissingIdentity(c *gin.Context, logger *zap.Logger) {
	logger.Error("userID not found in context; auth middleware might not have run or failed",
		zap.String("path", c.FullPath()))
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
}

// respondServiceError maps core-layer errors onto HTTP responses.
// Validation rejections carry their transient notice; store failures
// distinguish permission problems from connectivity so the client can
// show the right blocking screen.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusConflict, NoticeResponse{Notice: ve.Notice})
		return
	}

	switch {
	case errors.Is(err, core.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found"})
	case errors.Is(err, core.ErrStorePermissionDenied):
		logger.Error("Profile store permission denied", zap.Error(err))
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "Profile store permission denied",
			Details: "Check the Firestore security rules for the users collection.",
		})
	case errors.Is(err, core.ErrStoreTimeout):
		logger.Error("Profile store timeout", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error: "Connection timeout. Please check your internet connection and try again.",
		})
	case errors.Is(err, core.ErrSessionNotStarted):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "No active session; initialize the profile first"})
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Details: err.Error()})
	}
}
