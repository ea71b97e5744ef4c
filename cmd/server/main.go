package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/api"
	"codequest-backend-go/internal/config"
	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/db"
	"codequest-backend-go/internal/middleware"
	"codequest-backend-go/pkg/cache"
	"codequest-backend-go/pkg/messagequeue"
)

func main() {
	// --- 1. Initialize Logger (Zap) ---
	// Using NewDevelopment for more verbose, human-readable output during development.
	// For production, consider zap.NewProduction() or a custom configuration.
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync() // Flushes buffer, if any. IMPORTANT for buffered loggers.
	zapLogger.Info("Zap logger initialized successfully.")

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 3. Initialize Firebase Admin SDK (includes Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized successfully.")

	// --- 4. Retrieve initialized clients ---
	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient() // Needed for AuthMiddleware

	if firestoreClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firestore client is nil after initialization. Application cannot start.")
	}
	if firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}
	zapLogger.Info("Firestore and Firebase Auth clients retrieved successfully.")

	// --- 5. Initialize Optional Integrations (Redis, RabbitMQ) ---
	var statsCache cache.Cache
	if appConfig.RedisAddr != "" {
		statsCache, err = cache.NewRedisCache(cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to Redis", zap.Error(err))
		}
	} else {
		zapLogger.Warn("REDIS_ADDR not configured; admin stats caching is disabled.")
	}

	var progressQueue messagequeue.MessageQueue
	if appConfig.RabbitMQURL != "" {
		progressQueue, err = messagequeue.NewRabbitMQService(appConfig.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer progressQueue.Close()
	} else {
		zapLogger.Warn("RABBITMQ_URL not configured; progress events are disabled.")
	}

	// --- 6. Initialize Repositories ---
	profileRepo := db.NewFirestoreProfileRepository(firestoreClient)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 7. Initialize Services ---
	normalizer := core.NewProfileNormalizer(appConfig.AdminAllowList())
	attempts := core.NewAttemptStore()
	profileService := core.NewProfileService(profileRepo, normalizer, attempts, progressQueue, zapLogger, appConfig.StoreTimeout())
	adminService := core.NewAdminService(profileRepo, normalizer, statsCache, zapLogger, appConfig.StoreTimeout())
	reconciler := core.NewReconciler(profileRepo, profileService, normalizer, zapLogger, appConfig.StoreTimeout(), appConfig.SessionIdleTTL())
	defer reconciler.StopAll()
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
		zapLogger.Info("Gin mode set to 'release'.")
	} else {
		gin.SetMode(gin.DebugMode) // Default or "debug"
		zapLogger.Info("Gin mode set to 'debug'.")
	}
	// Using gin.New() to have control over the middleware stack.
	router := gin.New()
	zapLogger.Info("Gin engine created.")

	// --- 9. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestLogger(zapLogger))      // Log every request; should be early.
	router.Use(middleware.RecoveryMiddleware(zapLogger)) // Recover from panics; after logger, before handlers.

	// Apply CORS middleware only if ClientURL is configured, otherwise log a warning.
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	// --- 10. Setup API Routes ---
	api.SetupRoutes(
		router,
		zapLogger,
		firebaseAuthClient,
		reconciler,
		profileService,
		adminService,
		attempts,
	)
	// SetupRoutes logs its own success message.

	// --- 11. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	// Goroutine for starting the server, so it doesn't block graceful shutdown logic.
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 12. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received on the quitChannel.
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Stop all live profile watch sessions before shutting the server down
	// so in-flight snapshot handlers finish cleanly.
	reconciler.StopAll()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	zapLogger.Info("Attempting graceful shutdown of HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
