package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/posterarr/posterarr/internal/api/handlers"
	"github.com/posterarr/posterarr/internal/api/middleware"
	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/services/mediux"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// Deps bundles everything the route handlers need
type Deps struct {
	DB           *models.Database
	Catalog      *mediux.Client
	LibraryCtrl  *controllers.LibraryController
	DownloadCtrl *controllers.DownloadController
	SavedSetCtrl *controllers.SavedSetController
	Secret       []byte
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Deps, logger *logrus.Logger) *Server {
	s := &Server{logger: logger}

	mux := http.NewServeMux()

	// Unauthenticated surface
	healthHandler := handlers.NewHealthHandler(logger)
	mux.Handle("GET /health", healthHandler)

	loginHandler := handlers.NewLoginHandler(
		cfg.Password,
		deps.Secret,
		time.Duration(cfg.TokenExpiryDays)*24*time.Hour,
		logger,
	)
	mux.Handle("POST /login", loginHandler)

	// Everything below requires a valid bearer token
	authed := http.NewServeMux()

	statusHandler := handlers.NewStatusHandler(deps.DB, deps.DownloadCtrl, logger)
	authed.Handle("GET /status", statusHandler)

	msHandler := handlers.NewMediaServerHandler(deps.LibraryCtrl, deps.DownloadCtrl, logger)
	authed.HandleFunc("GET /mediaserver/sections/", msHandler.Sections)
	authed.HandleFunc("GET /mediaserver/sections/items", msHandler.SectionItems)
	authed.HandleFunc("GET /mediaserver/item/{ratingKey}", msHandler.Item)
	authed.HandleFunc("PATCH /mediaserver/download/file", msHandler.DownloadFile)

	mxHandler := handlers.NewMediuxHandler(deps.Catalog, deps.DB, logger)
	authed.HandleFunc("GET /mediux/sets/get/{itemType}/{librarySection}/{ratingKey}/{tmdbID}", mxHandler.SetsForItem)
	authed.HandleFunc("GET /mediux/sets/get_user/sets/{username}", mxHandler.UserSets)
	authed.HandleFunc("GET /mediux/sets/get_set/{setID}", mxHandler.Set)

	dbHandler := handlers.NewDBHandler(deps.SavedSetCtrl, logger)
	authed.HandleFunc("GET /db/get/all", dbHandler.GetAll)
	authed.HandleFunc("POST /db/add/item", dbHandler.Add)
	authed.HandleFunc("PATCH /db/update/", dbHandler.Update)
	authed.HandleFunc("GET /db/conflicts/{ratingKey}/{setID}", dbHandler.TypeConflicts)
	authed.HandleFunc("DELETE /db/delete/mediaitem/{id}", dbHandler.Delete)

	dlHandler := handlers.NewDownloadHandler(deps.DownloadCtrl, logger)
	authed.HandleFunc("POST /download/apply", dlHandler.Apply)
	authed.HandleFunc("GET /download/progress", dlHandler.Progress)

	mux.Handle("/", middleware.Auth(authed, deps.Secret, logger))

	s.server = &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     middleware.Logging(mux, logger),
		ReadTimeout: 15 * time.Second,
		// Download runs hold the connection until they finish
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
