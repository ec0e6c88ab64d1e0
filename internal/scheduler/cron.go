package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/posterarr/posterarr/internal/controllers"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/services/mediux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron         *cron.Cron
	db           *models.Database
	catalog      *mediux.Client
	downloadCtrl *controllers.DownloadController
	libraryCtrl  *controllers.LibraryController
	logger       *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(
	db *models.Database,
	catalog *mediux.Client,
	downloadCtrl *controllers.DownloadController,
	libraryCtrl *controllers.LibraryController,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		db:           db,
		catalog:      catalog,
		downloadCtrl: downloadCtrl,
		libraryCtrl:  libraryCtrl,
		logger:       logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 6 hours: re-apply saved sets whose catalog entry was updated
	_, err := s.cron.AddFunc("0 */6 * * *", func() {
		s.runAutoDownload()
	})
	if err != nil {
		return fmt.Errorf("failed to add auto-download job: %w", err)
	}

	// Every hour: refresh the library cache
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runCacheRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to add cache refresh job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Warm the library cache immediately
	go s.runCacheRefresh()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runAutoDownload re-runs the workflow for every saved set marked
// auto-download whose catalog entry is newer than the last download
func (s *Scheduler) runAutoDownload() {
	s.logger.Info("Running scheduled auto-download pass")
	ctx := context.Background()

	items, err := s.db.GetAutoDownloadItems()
	if err != nil {
		s.logger.WithError(err).Error("Failed to get auto-download items")
		return
	}
	if len(items) == 0 {
		s.logger.Debug("No auto-download items to check")
		return
	}

	updated := 0
	for _, item := range items {
		for _, saved := range item.Sets {
			if !saved.AutoDownload {
				continue
			}

			latest, err := s.catalog.GetSet(ctx, saved.Set.ID)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"set_id": saved.Set.ID,
					"title":  item.MediaItem.Title,
				}).Error("Failed to fetch latest set")
				continue
			}

			if !latest.DateUpdated.After(saved.LastDownloaded) {
				continue
			}

			s.logger.WithFields(logrus.Fields{
				"set_id":  latest.ID,
				"title":   item.MediaItem.Title,
				"updated": latest.DateUpdated,
			}).Info("Set updated, re-applying")

			req := controllers.ApplyRequest{
				Set:   *latest,
				Items: []models.MediaItem{item.MediaItem},
				Selections: map[string]controllers.TargetSelection{
					item.MediaItem.RatingKey: {
						SelectedTypes: saved.SelectedTypes,
						AutoDownload:  true,
					},
				},
			}

			if _, err := s.downloadCtrl.Run(ctx, req); err != nil {
				if errors.Is(err, controllers.ErrRunInProgress) {
					s.logger.Warn("Download run in progress, skipping auto-download pass")
					return
				}
				s.logger.WithError(err).WithField("set_id", latest.ID).Error("Auto-download run failed")
				continue
			}
			updated++
		}
	}

	if updated > 0 {
		s.logger.WithField("count", updated).Info("Auto-download pass applied updated sets")
	}
}

// runCacheRefresh re-fetches library sections into the cache
func (s *Scheduler) runCacheRefresh() {
	s.logger.Debug("Running library cache refresh")

	if err := s.libraryCtrl.RefreshAll(context.Background()); err != nil {
		s.logger.WithError(err).Error("Library cache refresh failed")
	}
}
