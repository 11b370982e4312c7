package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venturekit/internal/catalog"
	"venturekit/internal/config"
	"venturekit/internal/database"
	"venturekit/internal/handlers"
	"venturekit/internal/logging"
	"venturekit/internal/middleware"
	"venturekit/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting VentureKit Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s)", cfg.Port, cfg.Environment)

	// Module catalog: built-in lineup, optionally overridden by a YAML file
	cat := catalog.New()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("❌ Failed to load catalog from %s: %v", cfg.CatalogPath, err)
		}
		cat = loaded
	}
	log.Printf("📚 Catalog ready with %d modules", cat.Len())

	// MongoDB
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	cancelInit()
	log.Println("✅ MongoDB connected and indexes ensured")

	// Redis (optional): pub/sub fan-out and the sweep lock need it, the rest
	// of the system runs without it
	var redisService *services.RedisService
	var pubsubService *services.PubSubService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, running single-instance: %v", err)
			redisService = nil
		} else {
			pubsubService = services.NewPubSubService(redisService, uuid.New().String())
			if err := pubsubService.Start(); err != nil {
				log.Printf("⚠️  Failed to start pub/sub listener: %v", err)
				pubsubService = nil
			}
		}
	} else {
		log.Println("⚠️  REDIS_URL not set, pub/sub and sweep locking disabled")
	}

	// Metrics
	metrics := services.InitMetrics()

	// Stores and services
	moduleStore := services.NewMongoModuleStore(mongoDB)
	snapshotStore := services.NewMongoSnapshotStore(mongoDB)
	profileService := services.NewProfileService(mongoDB)
	conversationService := services.NewConversationService(mongoDB)

	moduleService := services.NewModuleService(moduleStore, cat)

	contextService := services.NewContextService(moduleStore, conversationService, profileService, snapshotStore)
	contextService.SetMetrics(metrics)
	moduleService.SetContextRefresher(contextService)
	if pubsubService != nil {
		moduleService.SetEventPublisher(pubsubService)
		contextService.SetEventPublisher(pubsubService)
	}

	// Generation gateway
	modelRegistry := services.NewModelRegistry(cfg.DefaultModel)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	if err := modelRegistry.LoadFromStore(loadCtx, mongoDB); err != nil {
		log.Printf("⚠️  Failed to load model registry overrides: %v", err)
	}
	cancelLoad()

	completionClient := services.NewHTTPCompletionClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	generationService := services.NewGenerationService(modelRegistry, completionClient, services.NewGenerationCache(), cfg.GenerationRPS)
	generationService.SetMetrics(metrics)
	log.Println("✅ Generation gateway initialized")

	// Periodic context sweep
	var schedulerService *services.SchedulerService
	if cfg.ContextSweepHours > 0 {
		schedulerService, err = services.NewSchedulerService(moduleStore, contextService, redisService, time.Duration(cfg.ContextSweepHours)*time.Hour)
		if err != nil {
			log.Fatalf("❌ Failed to create scheduler: %v", err)
		}
		if err := schedulerService.Start(); err != nil {
			log.Fatalf("❌ Failed to start scheduler: %v", err)
		}
	} else {
		log.Println("⚠️  CONTEXT_SWEEP_HOURS=0, periodic context sweep disabled")
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "VentureKit v1.0",
		ReadTimeout:  180 * time.Second,
		WriteTimeout: 180 * time.Second, // generation calls can run long
		IdleTimeout:  180 * time.Second,
		BodyLimit:    5 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("venturekit")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-User-ID",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	catalogHandler := handlers.NewCatalogHandler(cat)
	moduleHandler := handlers.NewModuleHandler(moduleService)
	contextHandler := handlers.NewContextHandler(contextService, profileService)
	profileHandler := handlers.NewProfileHandler(profileService, contextService)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	generationHandler := handlers.NewGenerationHandler(generationService)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.UserAuth())

	api.Get("/catalog", catalogHandler.List)
	api.Get("/catalog/:moduleId", catalogHandler.Get)

	api.Get("/modules", moduleHandler.List)
	api.Get("/modules/suggestions", moduleHandler.Suggestions)
	api.Get("/modules/:moduleId", moduleHandler.Get)
	api.Post("/modules/:moduleId/activate", moduleHandler.Activate)
	api.Put("/modules/:moduleId/progress", moduleHandler.UpdateProgress)
	api.Post("/modules/:moduleId/pause", moduleHandler.Pause)
	api.Post("/modules/:moduleId/resume", moduleHandler.Resume)
	api.Post("/modules/:moduleId/submodules/:subModuleId/complete", moduleHandler.CompleteSubModule)
	api.Get("/modules/:moduleId/dependencies", moduleHandler.Dependencies)

	api.Get("/context", contextHandler.Get)
	api.Get("/context/preview", contextHandler.Preview)
	api.Post("/context/refresh", contextHandler.Refresh)

	api.Get("/profile", profileHandler.Get)
	api.Put("/profile", profileHandler.Update)

	api.Post("/conversations/message", conversationHandler.RecordMessage)
	api.Post("/conversations/topics", conversationHandler.SaveTopic)
	api.Get("/conversations/stats", conversationHandler.Stats)

	api.Post("/generate", generationHandler.Generate)
	api.Get("/generate/models", generationHandler.Models)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if schedulerService != nil {
			if err := schedulerService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping scheduler: %v", err)
			}
		}

		if pubsubService != nil {
			pubsubService.Stop()
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
