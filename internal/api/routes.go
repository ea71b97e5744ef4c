package api

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers
// and middleware. Global middleware (logging, recovery, CORS) are
// applied to the router before this is called, in main.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	firebaseAuthClient *auth.Client,
	reconciler *core.Reconciler,
	profileService core.ProfileService,
	adminService core.AdminService,
	attempts *core.AttemptStore,
) {
	if firebaseAuthClient == nil {
		logger.Fatal("Firebase Auth client is not initialized; routes cannot be secured")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient, logger)

	// --- Initialize Handlers ---
	authHandler := NewAuthHandler(reconciler, attempts, logger)
	profileHandler := NewProfileHandler(profileService, reconciler, logger)
	catalogHandler := NewCatalogHandler(profileService, logger)
	attemptHandler := NewAttemptHandler(profileService, attempts, logger)
	adminHandler := NewAdminHandler(profileService, adminService, logger)

	apiV1 := router.Group("/api/v1")
	{
		// --- User and Session Endpoints ---
		usersGroup := apiV1.Group("/users")
		{
			// Called after client-side Firebase login/signup to ensure
			// the backend profile exists and the session is live.
			usersGroup.POST("/initialize", authMW.VerifyToken(), authHandler.InitializeProfile)
			usersGroup.POST("/signout", authMW.VerifyToken(), authHandler.SignOut)
			usersGroup.GET("/me", authMW.VerifyToken(), profileHandler.GetCurrentProfile)
			usersGroup.PUT("/me/language", authMW.VerifyToken(), profileHandler.SelectLanguage)
		}

		// --- Catalog Endpoints ---
		apiV1.GET("/languages", catalogHandler.ListLanguages)
		languagesGroup := apiV1.Group("/languages", authMW.VerifyToken())
		{
			languagesGroup.GET("/:language/levels", catalogHandler.ListLevels)
			languagesGroup.GET("/:language/levels/:levelId", catalogHandler.GetLevel)
		}

		// --- Lesson Attempt Endpoints ---
		attemptsGroup := apiV1.Group("/attempts", authMW.VerifyToken())
		{
			attemptsGroup.POST("", attemptHandler.StartAttempt)
			attemptsGroup.POST("/:attemptId/theory", attemptHandler.AcknowledgeTheory)
			attemptsGroup.POST("/:attemptId/quiz", attemptHandler.AnswerQuiz)
			attemptsGroup.POST("/:attemptId/quiz/skip", attemptHandler.SkipQuiz)
			attemptsGroup.POST("/:attemptId/challenge", attemptHandler.SubmitChallenge)
		}

		// --- Admin Endpoints ---
		apiV1.GET("/admin/stats", authMW.VerifyToken(), adminHandler.GetStats)
	}

	// --- General Health Check Endpoint ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "CodeQuest backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
