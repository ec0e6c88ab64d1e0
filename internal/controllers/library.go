package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/services/mediaserver"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

// LibraryController serves library sections and items out of the persistent
// cache, refreshing entries from the media server when they expire
type LibraryController struct {
	db     *models.Database
	server mediaserver.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewLibraryController creates a new library controller
func NewLibraryController(db *models.Database, server mediaserver.Client, ttl time.Duration, logger *logrus.Logger) *LibraryController {
	return &LibraryController{
		db:     db,
		server: server,
		ttl:    ttl,
		logger: logger,
	}
}

// GetSections lists the library sections, served from cache when fresh
func (c *LibraryController) GetSections(ctx context.Context) ([]models.LibrarySection, error) {
	caches, err := c.db.GetAllSections()
	if err != nil {
		return nil, err
	}

	fresh := len(caches) > 0
	for _, cache := range caches {
		if cache.Expired(c.ttl) {
			fresh = false
			break
		}
	}
	if fresh {
		sections := make([]models.LibrarySection, 0, len(caches))
		for _, cache := range caches {
			sections = append(sections, cache.Section)
		}
		return sections, nil
	}

	if err := c.RefreshAll(ctx); err != nil {
		// Serve stale data rather than nothing when the server is down
		if len(caches) > 0 {
			c.logger.WithError(err).Warn("Section refresh failed, serving cached data")
			sections := make([]models.LibrarySection, 0, len(caches))
			for _, cache := range caches {
				sections = append(sections, cache.Section)
			}
			return sections, nil
		}
		return nil, err
	}

	caches, err = c.db.GetAllSections()
	if err != nil {
		return nil, err
	}
	sections := make([]models.LibrarySection, 0, len(caches))
	for _, cache := range caches {
		sections = append(sections, cache.Section)
	}
	return sections, nil
}

// GetSectionItems lists the media items of one section by title
func (c *LibraryController) GetSectionItems(ctx context.Context, title string) ([]models.MediaItem, error) {
	cache, err := c.db.GetSection(title)
	if err == nil && !cache.Expired(c.ttl) {
		return cache.Items, nil
	}
	if err != nil && err != bolthold.ErrNotFound {
		return nil, err
	}

	sections, err := c.server.GetSections(ctx)
	if err != nil {
		if cache != nil {
			c.logger.WithError(err).Warn("Item refresh failed, serving cached data")
			return cache.Items, nil
		}
		return nil, err
	}

	for _, section := range sections {
		if section.Title != title {
			continue
		}
		refreshed, err := c.refreshSection(ctx, section)
		if err != nil {
			if cache != nil {
				c.logger.WithError(err).Warn("Item refresh failed, serving cached data")
				return cache.Items, nil
			}
			return nil, err
		}
		return refreshed.Items, nil
	}
	return nil, fmt.Errorf("library section %q not found", title)
}

// GetItem fetches the authoritative item from the media server and marks
// it with its saved-record status
func (c *LibraryController) GetItem(ctx context.Context, ratingKey string) (*models.MediaItem, error) {
	item, err := c.server.GetItem(ctx, ratingKey)
	if err != nil {
		return nil, err
	}

	if _, err := c.db.GetSavedItemByRatingKey(ratingKey); err == nil {
		item.ExistInDatabase = true
	}
	return item, nil
}

// RefreshAll re-fetches every section and its items into the cache
func (c *LibraryController) RefreshAll(ctx context.Context) error {
	sections, err := c.server.GetSections(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch sections: %w", err)
	}

	for _, section := range sections {
		if _, err := c.refreshSection(ctx, section); err != nil {
			return err
		}
	}

	c.logger.WithField("sections", len(sections)).Info("Library cache refreshed")
	return nil
}

func (c *LibraryController) refreshSection(ctx context.Context, section models.LibrarySection) (*models.SectionCache, error) {
	items, err := c.server.GetSectionItems(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items for %q: %w", section.Title, err)
	}

	saved, err := c.savedRatingKeys()
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ExistInDatabase = saved[items[i].RatingKey]
	}

	cache := &models.SectionCache{
		Title:   section.Title,
		Section: section,
		Items:   items,
	}
	if err := c.db.UpsertSection(cache); err != nil {
		return nil, fmt.Errorf("failed to cache section %q: %w", section.Title, err)
	}
	return cache, nil
}

func (c *LibraryController) savedRatingKeys() (map[string]bool, error) {
	records, err := c.db.GetAllSavedItems()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(records))
	for _, r := range records {
		keys[r.RatingKey] = true
	}
	return keys, nil
}
