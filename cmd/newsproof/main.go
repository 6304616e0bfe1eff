package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"newsproof/internal/config"
	"newsproof/internal/database"
	"newsproof/internal/feed"
	"newsproof/internal/newsapi"
	"newsproof/internal/server"
	"newsproof/internal/verify"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port       = flag.Int("port", 0, "Port to run the server on (default: 8080 or NEWSPROOF_PORT)")
	dbPath     = flag.String("db", "", "Path to database file (default: data/newsproof.db or NEWSPROOF_DB_PATH)")
	configPath = flag.String("config", "", "Path to YAML config file (optional)")
	version    = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Newsproof version %s\n", Version)
		return
	}

	logger := log.New(os.Stdout, "newsproof: ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Override with command line flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logger.Printf("Starting Newsproof v%s", Version)
	logger.Printf("Port: %d", cfg.Port)
	logger.Printf("Database: %s", cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	verifier, err := verify.NewClient(cfg.VerifyURL, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize verification client: %v", err)
	}

	newsClient := newsapi.NewClient(cfg.NewsAPIKey, logger)

	feedService := feed.NewService(db.DB, logger, cfg.RefreshInterval, cfg.MaxEntriesPerSrc)
	feedService.Start()
	defer feedService.Stop()

	// Do initial source fetch
	if err := feedService.UpdateSources(context.Background()); err != nil {
		logger.Printf("Initial source update failed: %v", err)
	}

	srv := server.NewServer(db, logger, verifier, newsClient, feedService)

	logger.Printf("Starting server on port %d", cfg.Port)
	if err := srv.Start(cfg.GetAddress()); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
