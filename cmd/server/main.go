package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/midirender/api/internal/client"
	"github.com/midirender/api/internal/config"
	"github.com/midirender/api/internal/handler"
	"github.com/midirender/api/internal/middleware"
	"github.com/midirender/api/internal/service"
	"github.com/midirender/api/internal/worker"
	"github.com/midirender/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Test Redis connection
	ctx := context.Background()
	redisUp := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
		redisUp = false
	}

	// Initialize validator
	validate := validator.New()

	// Initialize clients
	runner := client.NewExecRunner()
	fluidsynthClient := client.NewFluidsynthClient(runner, &cfg.Tools, &cfg.Render)
	ffmpegClient := client.NewFFmpegClient(runner, &cfg.Tools, &cfg.Render)
	ffprobeClient := client.NewFFprobeClient(runner, &cfg.Tools)

	if err := fluidsynthClient.CheckSoundfont(); err != nil {
		log.Printf("Warning: %v, renders will fail until it is installed", err)
	}

	// Initialize services
	workspace := service.NewWorkspace(cfg.Render.WorkDir)
	renderService := service.NewRenderService(
		workspace,
		fluidsynthClient,
		ffmpegClient,
		ffprobeClient,
		service.RenderOptions{
			Timeout:           time.Duration(cfg.Render.Timeout) * time.Second,
			CleanupOnComplete: cfg.Render.CleanupOnComplete,
		},
	)

	// Initialize handlers
	renderHandler := handler.NewRenderHandler(renderService, validate)
	systemHandler := handler.NewSystemHandler(cfg.Server.ServiceName, map[string]handler.HealthCheck{
		"soundfont":  func() bool { return fluidsynthClient.CheckSoundfont() == nil },
		"fluidsynth": fluidsynthClient.IsConfigured,
		"ffmpeg":     ffmpegClient.IsConfigured,
		"ffprobe":    ffprobeClient.IsConfigured,
		"redis": func() bool {
			return redisClient.Ping(context.Background()).Err() == nil
		},
	})

	// Initialize middleware
	var limiterClient *redis.Client
	if redisUp {
		limiterClient = redisClient
	}
	rateLimiter := middleware.NewRateLimiter(limiterClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: logFormat(cfg.Server.LogLevel),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept",
		ExposeHeaders: "Content-Disposition,X-Duration-Seconds,X-Program,X-Instrument-Name,X-Job-Id",
	}))

	// System routes
	app.Get("/", systemHandler.Root)
	app.Get("/health", systemHandler.Health)
	app.Get("/instruments", systemHandler.Instruments)

	// Render routes
	app.Post("/render", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Render)

	// Periodic work dir sweep
	if cfg.Cleanup.Enabled {
		go startWorkerServer(cfg, workspace)
		go startScheduler(cfg)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("%s starting on %s (work dir %s)", cfg.Server.ServiceName, addr, workspace.Root())
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func startWorkerServer(cfg *config.Config, workspace *service.Workspace) {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 1,
			LogLevel:    asynqLogLevel(cfg.Server.LogLevel),
			Queues: map[string]int{
				"maintenance": 1,
			},
		},
	)

	sweepWorker := worker.NewSweepWorker(workspace, time.Duration(cfg.Cleanup.MaxAge)*time.Minute)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeSweep, sweepWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func startScheduler(cfg *config.Config) {
	scheduler := asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		LogLevel: asynqLogLevel(cfg.Server.LogLevel),
	})

	entryID, err := scheduler.Register(cfg.Cleanup.Schedule, worker.NewSweepTask(), asynq.Queue("maintenance"))
	if err != nil {
		log.Printf("Failed to register sweep task: %v", err)
		return
	}
	log.Printf("Registered work dir sweep %s (%s)", entryID, cfg.Cleanup.Schedule)

	if err := scheduler.Run(); err != nil {
		log.Printf("Asynq scheduler error: %v", err)
	}
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch level {
	case "debug":
		return asynq.DebugLevel
	case "warn":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}

func logFormat(level string) string {
	if level == "debug" {
		return "[${time}] ${status} - ${latency} ${method} ${path} ${ip} ${error}\n"
	}
	return "[${time}] ${status} - ${latency} ${method} ${path}\n"
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	errCode := response.CodeServiceError
	if code >= 400 && code < 500 {
		errCode = response.CodeValidationError
	}

	return response.Error(c, code, errCode, message, nil)
}
