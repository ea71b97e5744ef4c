package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/core"
)

// AdminHandler serves aggregate usage stats to admin profiles.
type AdminHandler struct {
	profiles core.ProfileService
	admin    core.AdminService
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(profiles core.ProfileService, admin core.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{profiles: profiles, admin: admin, logger: logger}
}

// GetStats handles GET /api/v1/admin/stats. The caller's own profile
// decides admin access; non-admins get 403 regardless of token validity.
func (h *AdminHandler) GetStats(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	if !profile.IsAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Admin access required"})
		return
	}

	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	users := make([]ProfileResponse, 0, len(stats.Users))
	for _, u := range stats.Users {
		users = append(users, NewProfileResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"totalUsers": stats.TotalUsers,
		"totalCoins": stats.TotalCoins,
		"users":      users,
	})
}
