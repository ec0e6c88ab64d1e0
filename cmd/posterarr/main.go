package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/posterarr/posterarr/internal/api"
	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/scheduler"
	"github.com/posterarr/posterarr/internal/services/mediaserver"
	"github.com/posterarr/posterarr/internal/services/mediux"
	"github.com/posterarr/posterarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Posterarr")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load or create the token signing secret
	secret, err := utils.LoadOrCreateSecret(cfg.SecretFile)
	if err != nil {
		return fmt.Errorf("failed to load signing secret: %w", err)
	}

	// 5. Initialize services
	serverClient, err := mediaserver.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media server client: %w", err)
	}
	logger.WithField("type", cfg.MediaServerType).Info("Media server client initialized")

	catalogClient, err := mediux.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Mediux client: %w", err)
	}
	logger.Info("Mediux client initialized")

	// 6. Initialize controllers
	cacheTTL := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	libraryCtrl := controllers.NewLibraryController(db, serverClient, cacheTTL, logger)
	downloadCtrl := controllers.NewDownloadController(db, serverClient, catalogClient, logger)
	savedSetCtrl := controllers.NewSavedSetController(db, logger)
	logger.Info("Controllers initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(db, catalogClient, downloadCtrl, libraryCtrl, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, api.Deps{
		DB:           db,
		Catalog:      catalogClient,
		LibraryCtrl:  libraryCtrl,
		DownloadCtrl: downloadCtrl,
		SavedSetCtrl: savedSetCtrl,
		Secret:       secret,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Posterarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Posterarr stopped")
	return nil
}
