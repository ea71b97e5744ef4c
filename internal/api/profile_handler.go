package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/models"
)

// ProfileHandler handles profile read and mutation endpoints.
type ProfileHandler struct {
	profiles   core.ProfileService
	reconciler *core.Reconciler
	logger     *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles core.ProfileService, reconciler *core.Reconciler, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, reconciler: reconciler, logger: logger}
}

// GetCurrentProfile handles GET /api/v1/users/me. When a reconciliation
// session is active its latest snapshot view is served, so writes are
// read back through the subscription; without a session the profile is
// fetched and normalized directly.
func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	if session, ok := h.reconciler.SessionFor(identity.UID); ok {
		profile, err := session.Current()
		if err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, NewProfileResponse(profile))
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, NewProfileResponse(profile))
}

// SelectLanguage handles PUT /api/v1/users/me/language.
func (h *ProfileHandler) SelectLanguage(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	var req models.SelectLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	if err := h.profiles.SelectLanguage(c.Request.Context(), identity.UID, req.Language); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Language selected.", "language": req.Language})
}
