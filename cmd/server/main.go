package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/lucidlabs/lucid-analytics/internal/analytics"
	"github.com/lucidlabs/lucid-analytics/internal/auth"
	"github.com/lucidlabs/lucid-analytics/internal/config"
	"github.com/lucidlabs/lucid-analytics/internal/database"
	"github.com/lucidlabs/lucid-analytics/internal/dropi"
	"github.com/lucidlabs/lucid-analytics/internal/lucidbot"
	"github.com/lucidlabs/lucid-analytics/internal/meta"
	"github.com/lucidlabs/lucid-analytics/internal/metrics"
	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the analytics API server with graceful
// shutdown support. It sets up all required services, database
// connections, the background sync processor, and API routes.
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	box, err := secrets.NewBox(cfg.Auth.EncryptionKey)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize credential encryption")
	}

	m := metrics.Registry("lucid")
	requestTimeout := time.Duration(cfg.Sync.RequestTimeoutSecs) * time.Second

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(db, cfg.Auth.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)

	dropiClient := dropi.NewClient(cfg.Dropi, requestTimeout)
	dropiService := dropi.NewService(db, dropiClient, box, cfg.Sync, cfg.Dropi, m)
	dropiHandlers := dropi.NewGinHandlers(dropiService)

	lucidbotClient := lucidbot.NewClient(cfg.Lucidbot, requestTimeout)
	lucidbotService := lucidbot.NewService(db, lucidbotClient, box, cfg.Lucidbot, m)
	lucidbotHandlers := lucidbot.NewGinHandlers(lucidbotService)

	metaClient := meta.NewClient(cfg.Meta, requestTimeout)
	metaService := meta.NewService(db, metaClient, box)
	metaHandlers := meta.NewGinHandlers(metaService)

	analyticsService := analytics.NewService(metaService, lucidbotService, dropiService)
	analyticsHandlers := analytics.NewGinHandlers(analyticsService)

	// Create and start the periodic sync processor
	processor := dropi.NewProcessor(dropiService, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go processor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.Auth.JWTSecret, authHandlers, dropiHandlers, lucidbotHandlers, metaHandlers, analyticsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for registration and login
// - Platform routes: Protected by JWT authentication
// - Admin routes: Protected by JWT plus the admin flag
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	dropiHandlers *dropi.GinHandlers,
	lucidbotHandlers *lucidbot.GinHandlers,
	metaHandlers *meta.GinHandlers,
	analyticsHandlers *analytics.GinHandlers,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
			authGroup.GET("/me", middleware.JWTAuth(jwtSecret), authHandlers.MeHandler())
		}

		// Dropi routes
		dropiGroup := v1.Group("/dropi")
		dropiGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			dropiGroup.POST("/connect", dropiHandlers.ConnectHandler())
			dropiGroup.GET("/status", dropiHandlers.StatusHandler())
			dropiGroup.DELETE("/disconnect", dropiHandlers.DisconnectHandler())
			dropiGroup.POST("/sync", dropiHandlers.TriggerSyncHandler())
			dropiGroup.GET("/sync/status", dropiHandlers.SyncStatusHandler())
			dropiGroup.DELETE("/data", dropiHandlers.ClearDataHandler())
			dropiGroup.GET("/orders", dropiHandlers.OrdersHandler())
			dropiGroup.GET("/wallet/summary", dropiHandlers.WalletSummaryHandler())
		}

		// LucidBot routes
		lucidbotGroup := v1.Group("/lucidbot")
		lucidbotGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			lucidbotGroup.POST("/connect", lucidbotHandlers.ConnectHandler())
			lucidbotGroup.GET("/status", lucidbotHandlers.StatusHandler())
			lucidbotGroup.DELETE("/disconnect", lucidbotHandlers.DisconnectHandler())
			lucidbotGroup.POST("/contacts/sync", lucidbotHandlers.SyncContactsHandler())
			lucidbotGroup.GET("/contacts/:adId", lucidbotHandlers.ContactsHandler())
			lucidbotGroup.GET("/stats", lucidbotHandlers.StatsHandler())
			lucidbotGroup.DELETE("/contacts", lucidbotHandlers.ClearContactsHandler())
		}

		// Meta routes
		metaGroup := v1.Group("/meta")
		metaGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			metaGroup.POST("/accounts", metaHandlers.ConnectHandler())
			metaGroup.GET("/accounts", metaHandlers.AccountsHandler())
			metaGroup.DELETE("/accounts/:accountId", metaHandlers.DisconnectHandler())
			metaGroup.GET("/accounts/:accountId/ads", metaHandlers.AdsHandler())
		}

		// Analytics routes
		analyticsGroup := v1.Group("/analytics")
		analyticsGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			analyticsGroup.GET("/dashboard", analyticsHandlers.DashboardHandler())
			analyticsGroup.GET("/profit", analyticsHandlers.ProfitHandler())
			analyticsGroup.GET("/ads/:adId/contacts", analyticsHandlers.AdContactsHandler())
		}

		// Admin routes
		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.JWTAuth(jwtSecret), middleware.AdminOnly())
		{
			adminGroup.POST("/sync/all", dropiHandlers.SyncAllHandler())
		}
	}
}
