package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/knowledgevault/api/internal/auth"
	"github.com/knowledgevault/api/internal/cache"
	"github.com/knowledgevault/api/internal/client"
	"github.com/knowledgevault/api/internal/config"
	"github.com/knowledgevault/api/internal/database"
	"github.com/knowledgevault/api/internal/handler"
	"github.com/knowledgevault/api/internal/middleware"
	"github.com/knowledgevault/api/internal/ratelimit"
	"github.com/knowledgevault/api/internal/scheduler"
	"github.com/knowledgevault/api/internal/vectorstore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisCache = nil
		// Continue without Redis cache (fail-open)
	}

	// Semantic search collaborators
	embedder := client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if cfg.OpenAIAPIKey == "" {
		log.Printf("Warning: OPENAI_API_KEY not set, semantic note search disabled")
	}
	vectors := vectorstore.NewPgVectorStore(db)

	tokens := auth.NewRefreshTokenStore(db, cfg.RefreshTokenExpiry)
	limiter := ratelimit.New()

	// Background purge of refresh tokens that can never validate again
	tokenCleanup := scheduler.NewTokenCleanupScheduler(db, cfg.TokenCleanupInterval)
	go tokenCleanup.Start(context.Background())

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, cfg, tokens)
	googleHandler := handler.NewGoogleAuthHandler(db, cfg, tokens, auth.NewGoogleOAuthConfig(cfg))
	pomodoroHandler := handler.NewPomodoroHandler(db)
	projectHandler := handler.NewProjectHandler(db)
	categoryHandler := handler.NewCategoryHandler(db)
	noteHandler := handler.NewNoteHandler(db, redisCache, embedder, vectors)
	dashboardHandler := handler.NewDashboardHandler(db)
	exportHandler := handler.NewExportHandler(db)
	healthHandler := handler.NewHealthHandler(db)

	// Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware. Credentialed requests require an exact origin
	// echo, never a wildcard.
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Timezone")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.OriginGuard(cfg.AllowedOrigins))

	// Health check and metrics
	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Cleanup scheduler status
	r.GET("/scheduler/status", func(c *gin.Context) {
		c.JSON(200, tokenCleanup.GetStatus())
	})

	rateByIP := func(rate string) gin.HandlerFunc {
		return middleware.RateLimit(limiter, rate, middleware.LimitByIP, cfg.TrustedProxyIPs)
	}
	rateByUser := func(rate string) gin.HandlerFunc {
		return middleware.RateLimit(limiter, rate, middleware.LimitByUser, cfg.TrustedProxyIPs)
	}
	requireAuth := middleware.RequireAuth(db, cfg)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateByIP(cfg.RateLimits.Register), authHandler.Register)
			authGroup.POST("/login", rateByIP(cfg.RateLimits.Login), authHandler.Login)
			authGroup.POST("/refresh-token", rateByIP(cfg.RateLimits.Refresh), authHandler.RefreshToken)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/revoke-all-tokens", requireAuth, authHandler.RevokeAllTokens)
			authGroup.GET("/me", requireAuth, authHandler.Me)

			authGroup.GET("/google", googleHandler.GoogleAuth)
			authGroup.GET("/google/callback", googleHandler.GoogleCallback)

			// Browser-extension variants exchange tokens in JSON
			// bodies instead of cookies.
			authGroup.POST("/extension/login", rateByIP(cfg.RateLimits.Login), authHandler.ExtensionLogin)
			authGroup.POST("/extension/refresh-token", rateByIP(cfg.RateLimits.Refresh), authHandler.ExtensionRefreshToken)
			authGroup.POST("/extension/logout", authHandler.ExtensionLogout)
		}

		// Everything below requires an authenticated, active user.
		protected := api.Group("")
		protected.Use(requireAuth, rateByUser(cfg.RateLimits.General))
		{
			// Pomodoro
			pomodoro := protected.Group("/pomodoro")
			{
				pomodoro.GET("/preferences", pomodoroHandler.GetPreferences)
				pomodoro.PUT("/preferences", pomodoroHandler.UpdatePreferences)
				pomodoro.POST("/sessions/start", pomodoroHandler.StartSession)
				pomodoro.POST("/sessions/:id/complete", pomodoroHandler.CompleteSession)
				pomodoro.POST("/sessions/:id/abandon", pomodoroHandler.AbandonSession)
				pomodoro.GET("/sessions", pomodoroHandler.ListSessions)
				pomodoro.GET("/sessions/summary", pomodoroHandler.SessionSummaries)
				pomodoro.GET("/statistics/weekly", pomodoroHandler.WeeklyStatistics)
			}

			// Learning projects
			projects := protected.Group("/learning-projects")
			{
				projects.POST("", projectHandler.Create)
				projects.GET("", projectHandler.List)
				projects.GET("/:id", projectHandler.Get)
				projects.PUT("/:id", projectHandler.Update)
				projects.DELETE("/:id", projectHandler.Delete)
			}

			// Categories
			protected.GET("/categories", categoryHandler.List)

			// Notes
			notes := protected.Group("/notes")
			{
				notes.POST("", noteHandler.Create)
				notes.GET("", noteHandler.List)
				notes.GET("/:id", noteHandler.Get)
				notes.PUT("/:id", noteHandler.Update)
				notes.DELETE("/:id", noteHandler.Delete)
				notes.GET("/export", exportHandler.ExportNotes)
			}

			// Dashboard
			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("", dashboardHandler.Get)
				dashboard.GET("/stats", dashboardHandler.Stats)
				dashboard.GET("/projects", dashboardHandler.Projects)
				dashboard.GET("/activity", dashboardHandler.Activity)
				dashboard.GET("/session-times", dashboardHandler.SessionTimes)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.Printf("API server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
