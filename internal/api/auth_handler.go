package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/core"
)

// AuthHandler handles session lifecycle endpoints.
type AuthHandler struct {
	reconciler *core.Reconciler
	attempts   *core.AttemptStore
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(reconciler *core.Reconciler, attempts *core.AttemptStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{reconciler: reconciler, attempts: attempts, logger: logger}
}

// InitializeProfile handles POST /api/v1/users/initialize. Called by
// the client after a Firebase authentication event; it starts the
// reconciliation session for the identity (tearing down any prior one),
// which creates the profile document on first sign-in and applies the
// daily grant. Responds 201 when the profile was just created.
func (h *AuthHandler) InitializeProfile(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	session, err := h.reconciler.Start(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	profile, err := session.Current()
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if session.Created() {
		status = http.StatusCreated
	}
	c.JSON(status, NewProfileResponse(profile))
}

// SignOut handles POST /api/v1/users/signout. It stops the identity's
// reconciliation session and discards any in-flight lesson attempt; no
// further profile events are delivered until the next initialize.
func (h *AuthHandler) SignOut(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	h.reconciler.Stop(identity.UID)
	h.attempts.RemoveForUser(identity.UID)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out."})
}
