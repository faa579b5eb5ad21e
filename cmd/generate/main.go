// Command generate produces one video from the command line without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/news-shorts/internal/config"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/news-shorts/internal/storage"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

func main() {
	var (
		configPath  = flag.String("config", "config/config.yaml", "path to the YAML config")
		prompt      = flag.String("prompt", "", "topic to narrate (defaults to the article description)")
		articlePath = flag.String("article", "", "JSON file with the source article")
		workDir     = flag.String("workdir", "", "reuse this work directory instead of a new dated one")
		useCache    = flag.Bool("cache", false, "skip stages whose output already exists")
		driveAuth   = flag.Bool("drive-auth", false, "authorize Google Drive and store the token, then exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *driveAuth {
		if err := storage.AuthorizeDrive(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile); err != nil {
			log.Fatalf("Drive authorization failed: %v", err)
		}
		log.Printf("Drive token saved to %s", cfg.GoogleDrive.TokenFile)
		return
	}

	if *useCache {
		cfg.Pipeline.UseCache = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var article types.Article
	if *articlePath != "" {
		data, err := os.ReadFile(*articlePath)
		if err != nil {
			log.Fatalf("Failed to read article: %v", err)
		}
		if err := json.Unmarshal(data, &article); err != nil {
			log.Fatalf("Failed to parse article: %v", err)
		}
	}
	if *prompt == "" && article.Description == "" {
		fmt.Fprintln(os.Stderr, "either -prompt or -article with a description is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := storage.NewVideoDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	dir := *workDir
	if dir == "" {
		dir, err = storage.NewLocalStorage(cfg.Storage.WorkDir).RunDir(uuid.New().String())
		if err != nil {
			log.Fatalf("Failed to create run directory: %v", err)
		}
	}

	orchestrator := pipeline.FromConfig(cfg, media.ExecRunner{}, db, driveUploader(ctx, cfg))
	res, err := orchestrator.Run(ctx, pipeline.Request{
		Prompt:  *prompt,
		Article: article,
		WorkDir: dir,
		OnStage: func(s pipeline.Stage) { log.Printf("==> %s", s) },
	})
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	out.Encode(res)
}

// driveUploader returns a Drive client when credentials and a token from -drive-auth exist, nil otherwise
func driveUploader(ctx context.Context, cfg *config.Config) pipeline.Uploader {
	gd := cfg.GoogleDrive
	if gd.CredentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(gd.CredentialsFile); err != nil {
		log.Println("Google Drive credentials not found - saving locally only")
		return nil
	}
	client, err := storage.NewDriveClient(ctx, gd.CredentialsFile, gd.TokenFile, gd.FolderName)
	if err != nil {
		log.Printf("WARNING: Google Drive not available (run with -drive-auth first?): %v", err)
		return nil
	}
	log.Println("Google Drive upload enabled")
	return client
}
