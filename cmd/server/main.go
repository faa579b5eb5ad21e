package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/news-shorts/internal/cleanup"
	"github.com/codebuildervaibhav/news-shorts/internal/config"
	"github.com/codebuildervaibhav/news-shorts/internal/handlers"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/news-shorts/internal/queue"
	"github.com/codebuildervaibhav/news-shorts/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := cleanup.EnsureDir(cfg.Storage.WorkDir); err != nil {
		log.Fatalf("Failed to create work directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewVideoDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Google Drive is optional
	var uploader pipeline.Uploader
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); cfg.GoogleDrive.CredentialsFile != "" && err == nil {
		driveClient, err := storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Videos will only be saved locally")
		} else {
			uploader = driveClient
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	orchestrator := pipeline.FromConfig(cfg, media.ExecRunner{}, db, uploader)
	localStorage := storage.NewLocalStorage(cfg.Storage.WorkDir)

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, orchestrator, localStorage)
	workerPool.Start(ctx)

	cleanupScheduler := cleanup.NewScheduler(
		localStorage.Root(),
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		orchestrator.InUse,
		pipeline.FinalFile,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	videoHandler := handlers.NewVideoHandler(workerPool, db)
	statusHandler := handlers.NewStatusHandler(workerPool)
	streamHandler := handlers.NewStreamHandler(workerPool)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/videos", videoHandler.Create)
	app.Get("/videos", videoHandler.List)
	app.Get("/videos/:id", videoHandler.Get)
	app.Get("/videos/:id/file", videoHandler.File)
	app.Get("/status/:id", statusHandler.Handle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status/:id", websocket.New(streamHandler.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /videos            - Generate a video from a prompt or article")
	log.Println("   GET  /status/:id        - Job status")
	log.Println("   GET  /ws/status/:id     - WebSocket job progress")
	log.Println("   GET  /videos            - List finished videos")
	log.Println("   GET  /videos/:id        - Video record")
	log.Println("   GET  /videos/:id/file   - Download the MP4")
	log.Println("   GET  /logs              - View server logs")
	log.Println("   GET  /health            - Health check")

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	workerPool.Stop()
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
