// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/haru-album/pocket-backend/internal/api/handlers"
	"github.com/haru-album/pocket-backend/internal/api/middleware"
	"github.com/haru-album/pocket-backend/internal/config"
	"github.com/haru-album/pocket-backend/internal/cron"
	"github.com/haru-album/pocket-backend/internal/db"
	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/haru-album/pocket-backend/internal/service"
	"github.com/haru-album/pocket-backend/internal/socket"
	"github.com/haru-album/pocket-backend/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	// ============================================
	// Set Gin mode
	// ============================================
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	postgres, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()
	log.Println("✅ Connected to PostgreSQL")

	// ============================================
	// Initialize Repositories
	// ============================================
	repos := repository.NewRepositories(postgres.Pool)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("⚡ Redis cache enabled")
		}
	}

	// ============================================
	// Initialize Image Uploader
	// ============================================
	uploader := storage.NewCloudinaryUploader(cfg.CloudName, cfg.CloudAPIKey, cfg.CloudSecret, cfg.CloudFolder)
	log.Println("🖼️  Image uploader initialized")

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)

	// WebSocket handler with JWT secret for self-authentication
	wsHandler := socket.NewHandler(hub, cfg.JWTSecret)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Cache:       redisDB,
		Uploader:    uploader,
		Broadcaster: broadcaster,
	})
	log.Println("✨ All services initialized")

	// ============================================
	// Initialize Handlers
	// ============================================
	h := handlers.NewHandlers(services)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(repos.UserRepo)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.Default()
	r.Use(middleware.RequestLogger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173", "*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"cache":      getCacheStatus(redisDB),
			"websocket":  "active",
			"ws_clients": hub.GetConnectedClientsCount(),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Public invite key preview (for link landing pages)
		api.GET("/invitations/link/:key", h.Pocket.ResolveInviteKey)

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			// Session revocation across all devices
			protected.POST("/auth/logout-all", h.Auth.LogoutAll)

			// User routes
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateCurrentUser)
				users.GET("/search", h.User.SearchUsers)
				users.GET("/:id", h.User.GetUser)
			}

			// Pocket routes
			pockets := protected.Group("/pockets")
			{
				pockets.GET("", h.Pocket.ListPockets)
				pockets.POST("", h.Pocket.CreatePocket)
				pockets.GET("/:id", h.Pocket.GetPocket)
				pockets.PUT("/:id", h.Pocket.UpdatePocket)

				// Membership
				pockets.GET("/:id/members", h.Pocket.ListMembers)
				pockets.POST("/:id/leave", h.Pocket.LeavePocket)
				pockets.POST("/:id/ban", h.Pocket.BanUser)
				pockets.PUT("/:id/master", h.Pocket.DelegateMaster)

				// Invitations
				pockets.GET("/:id/invitations", h.Pocket.ListPendingInvitees)
				pockets.POST("/:id/invitations", h.Pocket.InviteUsers)
				pockets.DELETE("/:id/invitations", h.Pocket.CancelInvitation)
				pockets.POST("/:id/accept", h.Pocket.AcceptInvitation)
			}

			// Join a pocket through a shared invite link
			protected.POST("/invitations/link", h.Pocket.JoinViaLink)
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}
