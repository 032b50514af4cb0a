package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simpledj/api/internal/client"
	"github.com/simpledj/api/internal/config"
	"github.com/simpledj/api/internal/handler"
	"github.com/simpledj/api/internal/middleware"
	"github.com/simpledj/api/internal/reaper"
	"github.com/simpledj/api/internal/separation"
	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
	"github.com/simpledj/api/internal/worker"
	"github.com/simpledj/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := newLogger(&cfg.Server)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		sugar.Warnw("Redis not available", "error", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Job state and artifact storage
	jobStore := store.NewJobStore()
	artifacts, err := storage.New(cfg.Storage.ResultsDir)
	if err != nil {
		sugar.Fatalw("Failed to initialize artifact storage", "error", err)
	}

	// Lazy-loaded shared separation model
	inferenceClient := client.NewInferenceClient(&cfg.Separation)
	modelLoader := separation.NewLoader(func(ctx context.Context) (separation.Model, error) {
		sugar.Infow("loading separation model", "service_url", cfg.Separation.ServiceURL)
		if err := inferenceClient.Init(ctx); err != nil {
			return nil, err
		}
		sugar.Infow("separation model loaded",
			"sample_rate", inferenceClient.SampleRate(), "sources", inferenceClient.Sources())
		return inferenceClient, nil
	})

	// External analysis client
	analysisClient := client.NewAnalysisClient(&cfg.Analysis)

	// Initialize services
	separationService := service.NewSeparationService(jobStore, artifacts, asynqClient, cfg.Limits.MaxUploadMB)
	analysisService := service.NewAnalysisService(analysisClient)

	// Initialize handlers
	separateHandler := handler.NewSeparateHandler(separationService, validate)
	jobHandler := handler.NewJobHandler(separationService, validate)
	analyzeHandler := handler.NewAnalyzeHandler(analysisService, validate, cfg.Limits.MaxUploadMB)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Limits.MaxUploadMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "Simple DJ Backend",
			"status":    "running",
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"jobs_count": separationService.JobCount(),
			"services": fiber.Map{
				"separation": inferenceClient.IsConfigured(),
				"analysis":   analysisService.IsConfigured(),
			},
		})
	})

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Analysis route
	app.Post("/analyze", rateLimiter.AnalyzeLimit(cfg.Limits.AnalyzePerMin), analyzeHandler.Analyze)

	// Separation routes
	app.Post("/separate", rateLimiter.SeparateLimit(cfg.Limits.SeparatePerHour), separateHandler.Separate)
	app.Get("/jobs", jobHandler.List)
	app.Get("/job/:jobId", jobHandler.Status)
	app.Get("/job/:jobId/stems/:stemName", jobHandler.DownloadStem)
	app.Delete("/job/:jobId", jobHandler.Delete)

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, artifacts, modelLoader, sugar)

	// Start reaper
	reapCtx, stopReaper := context.WithCancel(context.Background())
	jobReaper := reaper.New(
		jobStore,
		artifacts,
		time.Duration(cfg.Retention.TTLMinutes)*time.Minute,
		time.Duration(cfg.Retention.SweepIntervalSeconds)*time.Second,
		sugar,
	)
	go jobReaper.Run(reapCtx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		sugar.Info("Shutting down server...")
		stopReaper()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			sugar.Errorw("Server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	sugar.Infow("Server starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		sugar.Fatalw("Server error", "error", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobStore *store.JobStore,
	artifacts *storage.Store,
	modelLoader *separation.Loader,
	sugar *zap.SugaredLogger,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"separate": 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	separationWorker := worker.NewSeparationWorker(
		jobStore,
		artifacts,
		modelLoader,
		cfg.Separation.SegmentSeconds,
		cfg.Separation.OverlapSeconds,
		sugar,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeSeparate, separationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		sugar.Errorw("Asynq worker error", "error", err)
	}
}

func newLogger(cfg *config.ServerConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(response.ErrorResponse{
		Error: response.ErrorDetail{
			Code:    response.CodeServiceError,
			Message: message,
		},
	})
}
