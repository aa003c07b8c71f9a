package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/cache"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/config"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/db"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/repository"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/router"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/services"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/storage"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/utils"
	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Run migrations
	if err := db.RunMigrations(cfg.DatabasePath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Initialize storage and cache
	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err, "backend", cfg.StorageBackend)
	}

	tableCache := &cache.TableCache{DBPath: cfg.CachePath}
	if err := tableCache.Init(); err != nil {
		logger.Fatal("Failed to open table cache", "error", err)
	}
	defer tableCache.Close()

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Fatal("Failed to load templates", "error", err)
	}

	// Initialize table service
	uploadRepo := repository.NewRepository(database)
	tableService := services.NewService(uploadRepo, store, tableCache, cfg, logger)

	// Setup HTTP router
	handler := router.NewRouter(tableService, renderer, cfg.MaxFileSize, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
