package main

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"estate-video-backend/internal/config"
	"estate-video-backend/internal/database"
	"estate-video-backend/internal/handlers"
	"estate-video-backend/internal/middleware"
	"estate-video-backend/internal/notify"
	"estate-video-backend/internal/pipeline"
	"estate-video-backend/internal/promptgen"
	"estate-video-backend/internal/runway"
	"estate-video-backend/internal/storage"
	"estate-video-backend/internal/store"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	for _, dir := range []string{cfg.UploadsDir, cfg.VideosDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()

	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	// Generator selection: the mock never leaves the process and never
	// bills the provider account.
	var generator runway.Generator
	if cfg.RunwayMock {
		log.Info("Runway mock mode active, no provider calls will be made")
		generator = runway.NewMockGenerator()
	} else {
		generator = runway.NewClient(cfg.RunwayAPIBaseURL, cfg.RunwayAPIKey, cfg.RunwayModel, cfg.RunwayPollInterval, cfg.RunwayMaxPollAttempts)
	}

	var prompts pipeline.PromptEngine
	if cfg.GeminiAPIKey != "" {
		engine, err := promptgen.NewEngine(cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize prompt engine: %v", err)
		}
		prompts = engine
	} else {
		log.Warn("GEMINI_API_KEY not set, prompt generation will use fallbacks")
		prompts = promptgen.NewEngineWith(nil, nil)
	}

	var storageClient *storage.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		storageClient, err = storage.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize storage client: %v", err)
		}
	} else {
		log.Warn("Supabase storage not configured, final videos stay on local disk")
	}

	notifier := notify.New(st)
	orchestrator := pipeline.New(st, generator, prompts, notifier,
		cfg.UploadsDir, cfg.VideosDir, cfg.BaseURL, cfg.RegenerateOnFeedback)

	healthHandler := handlers.NewHealthHandler(cfg)
	authHandler := handlers.NewAuthHandler(st, cfg)
	uploadHandler := handlers.NewUploadHandler(st, orchestrator, cfg.UploadsDir)
	videosHandler := handlers.NewVideosHandler(st, orchestrator)
	clientHandler := handlers.NewClientHandler(st)
	adminHandler := handlers.NewAdminHandler(st, orchestrator, storageClient, cfg.VideosDir, cfg.BaseURL)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	// Generated assets are served directly.
	router.Static("/videos", cfg.VideosDir)
	router.Static("/uploads", cfg.UploadsDir)

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/signin", authHandler.Signin)
	auth.POST("/guest", authHandler.Guest)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg))

	authed.POST("/upload", uploadHandler.Upload)
	authed.GET("/generation/status", healthHandler.GenerationStatus)

	authed.GET("/videos/:video_id/status", videosHandler.Status)
	authed.POST("/videos/:video_id/feedback", videosHandler.Feedback)

	authed.GET("/download-center", clientHandler.DownloadCenter)
	authed.POST("/orders/:order_id/reorder", clientHandler.Reorder)
	authed.GET("/invoices", clientHandler.Invoices)
	authed.GET("/invoices/:invoice_id", clientHandler.Invoice)
	authed.POST("/orders/:order_id/pay", clientHandler.PayInvoice)
	authed.GET("/notifications", clientHandler.Notifications)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.GET("/orders", adminHandler.Orders)
	admin.POST("/orders/:image_id/status", adminHandler.UpdateStatus)
	admin.POST("/orders/:image_id/regenerate", adminHandler.Regenerate)
	admin.POST("/orders/:image_id/final-video", adminHandler.UploadFinalVideo)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Infof("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
