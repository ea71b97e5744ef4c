package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/core"
)

// CatalogHandler serves the level catalog with per-user progression
// state folded in.
type CatalogHandler struct {
	profiles core.ProfileService
	logger   *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(profiles core.ProfileService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{profiles: profiles, logger: logger}
}

// ListLanguages handles GET /api/v1/languages. Public; the catalog is
// static.
func (h *CatalogHandler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": catalog.Languages})
}

// ListLevels handles GET /api/v1/languages/:language/levels. Returns
// the ordered roadmap with the caller's state for every level.
func (h *CatalogHandler) ListLevels(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	language := c.Param("language")
	if !catalog.IsSupported(language) {
		respondServiceError(c, h.logger, core.ErrUnknownLanguage)
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	levels := catalog.Levels(language)
	summaries := make([]LevelSummaryResponse, 0, len(levels))
	for i, level := range levels {
		summaries = append(summaries, LevelSummaryResponse{
			ID:    level.ID,
			Title: level.Title,
			State: core.StateOf(profile, language, i),
		})
	}
	c.JSON(http.StatusOK, gin.H{"language": language, "levels": summaries})
}

// GetLevel handles GET /api/v1/languages/:language/levels/:levelId.
// Locked levels are rejected; quiz answers and challenge solutions are
// never part of the response.
func (h *CatalogHandler) GetLevel(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	language := c.Param("language")
	if !catalog.IsSupported(language) {
		respondServiceError(c, h.logger, core.ErrUnknownLanguage)
		return
	}

	level, index, ok := catalog.LevelByID(language, c.Param("levelId"))
	if !ok {
		respondServiceError(c, h.logger, core.ErrUnknownLevel)
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	state := core.StateOf(profile, language, index)
	if state == core.LevelLocked {
		respondServiceError(c, h.logger, core.ErrLevelLocked)
		return
	}

	c.JSON(http.StatusOK, LevelDetailResponse{
		ID:             level.ID,
		Title:          level.Title,
		Theory:         level.Theory,
		QuizCount:      len(level.Quizzes),
		ChallengeCount: len(level.Challenges),
		State:          state,
	})
}
