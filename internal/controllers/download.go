package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/services/mediaserver"
	"github.com/posterarr/posterarr/internal/services/mediux"
	"github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when a download run is started while another
// one is still in flight
var ErrRunInProgress = errors.New("a download run is already in progress")

// Progress margins keep the bar from sitting at 0 or jumping to 100
// mid-operation: the work span maps onto [1, 95].
const (
	progressHead = 1
	progressSpan = 94
)

// TargetSelection holds the per-item choices of one download run
type TargetSelection struct {
	SelectedTypes []models.AssetType `json:"selectedTypes"`
	AutoDownload  bool               `json:"autoDownload"`

	// FutureUpdatesOnly records intent without downloading anything now
	FutureUpdatesOnly bool `json:"futureUpdatesOnly"`
	// AddToDBOnly persists the record without touching the media server
	AddToDBOnly bool `json:"addToDBOnly"`
}

// ApplyRequest asks for one poster set to be applied to one or more items
type ApplyRequest struct {
	Set   models.PosterSet   `json:"set"`
	Items []models.MediaItem `json:"items"`

	// Selections is keyed by rating key; items without an entry are ignored
	Selections map[string]TargetSelection `json:"selections"`

	// PrimaryRatingKey, when set, is processed before the other items
	PrimaryRatingKey string `json:"primaryRatingKey,omitempty"`
}

// Warning records one recoverable failure of a run, with enough context to
// retry the asset manually
type Warning struct {
	RatingKey string `json:"ratingKey"`
	ItemTitle string `json:"itemTitle"`
	Label     string `json:"label,omitempty"`
	Message   string `json:"message"`
}

// ApplyResult is the outcome of a completed run
type ApplyResult struct {
	Status   models.RunStatus `json:"status"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// Progress is a snapshot of the current run state
type Progress struct {
	Status   models.RunStatus `json:"status"`
	Value    int              `json:"value"`
	Text     string           `json:"text,omitempty"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// DownloadController runs the download-and-apply workflow
type DownloadController struct {
	db      *models.Database
	server  mediaserver.Client
	catalog *mediux.Client
	logger  *logrus.Logger

	runMu sync.Mutex // held for the duration of one run

	mu       sync.Mutex // guards the fields below
	status   models.RunStatus
	value    int
	text     string
	warnings []Warning
}

// NewDownloadController creates a new download controller
func NewDownloadController(db *models.Database, server mediaserver.Client, catalog *mediux.Client, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		db:      db,
		server:  server,
		catalog: catalog,
		logger:  logger,
		status:  models.RunIdle,
	}
}

// Progress returns a snapshot of the current run state
func (c *DownloadController) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	warnings := make([]Warning, len(c.warnings))
	copy(warnings, c.warnings)
	return Progress{
		Status:   c.status,
		Value:    c.value,
		Text:     c.text,
		Warnings: warnings,
	}
}

func (c *DownloadController) setProgress(value int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value > c.value {
		c.value = value
	}
	c.text = text
}

func (c *DownloadController) warn(item *models.MediaItem, label, message string) {
	c.logger.WithFields(logrus.Fields{
		"rating_key": item.RatingKey,
		"title":      item.Title,
		"label":      label,
	}).Warn(message)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, Warning{
		RatingKey: item.RatingKey,
		ItemTitle: item.Title,
		Label:     label,
		Message:   message,
	})
}

func (c *DownloadController) setStatus(status models.RunStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// Run applies the selected asset types of a poster set to the target items.
// Only one run may be in flight at a time; a second call returns
// ErrRunInProgress. Individual failures are collected as warnings and do
// not abort the run; cancelling ctx does.
func (c *DownloadController) Run(ctx context.Context, req ApplyRequest) (result *ApplyResult, err error) {
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMu.Unlock()

	targets := c.planTargets(req)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no items selected")
	}

	c.mu.Lock()
	c.status = models.RunRunning
	c.value = progressHead
	c.text = "Starting"
	c.warnings = nil
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.setStatus(models.RunFailed)
			c.logger.WithField("panic", r).Error("Download run aborted")
			result = nil
			err = fmt.Errorf("download run aborted: %v", r)
		}
	}()

	total := 0
	for _, t := range targets {
		total += len(t.units)
	}

	c.logger.WithFields(logrus.Fields{
		"set_id": req.Set.ID,
		"items":  len(targets),
		"units":  total,
	}).Info("Starting download run")

	done := 0
	advance := func(text string) {
		done++
		c.setProgress(progressHead+done*progressSpan/total, text)
	}

	for _, target := range targets {
		if err := c.processTarget(ctx, req.Set, target, advance); err != nil {
			c.setStatus(models.RunFailed)
			return nil, err
		}
	}

	final := models.RunCompleted
	c.mu.Lock()
	if len(c.warnings) > 0 {
		final = models.RunCompletedWithWarnings
	}
	c.status = final
	c.value = 100
	c.text = "Done"
	warnings := make([]Warning, len(c.warnings))
	copy(warnings, c.warnings)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"status":   final,
		"warnings": len(warnings),
	}).Info("Download run finished")

	return &ApplyResult{Status: final, Warnings: warnings}, nil
}

// runTarget is one item with its selection and planned download units
type runTarget struct {
	item      models.MediaItem
	selection TargetSelection
	units     []models.PosterFile // empty for record-only targets
}

// planTargets orders the items deterministically (primary item first, the
// rest alphabetical by title) and precomputes each item's download units
func (c *DownloadController) planTargets(req ApplyRequest) []runTarget {
	items := make([]models.MediaItem, 0, len(req.Items))
	for _, item := range req.Items {
		if _, ok := req.Selections[item.RatingKey]; ok {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if pi, pj := items[i].RatingKey == req.PrimaryRatingKey, items[j].RatingKey == req.PrimaryRatingKey; pi != pj {
			return pi
		}
		return items[i].Title < items[j].Title
	})

	targets := make([]runTarget, 0, len(items))
	for _, item := range items {
		sel := req.Selections[item.RatingKey]
		t := runTarget{item: item, selection: sel}
		if sel.FutureUpdatesOnly || sel.AddToDBOnly {
			// One unit for the record write, no downloads
			t.units = []models.PosterFile{{}}
		} else {
			t.units = assetsForSelection(&req.Set, &item, sel.SelectedTypes)
		}
		if len(t.units) > 0 {
			targets = append(targets, t)
		}
	}
	return targets
}

// processTarget handles one item of a run: refresh, per-asset download and
// apply, then the saved-set record write. Returns an error only for
// cancellation; everything recoverable becomes a warning.
func (c *DownloadController) processTarget(ctx context.Context, set models.PosterSet, target runTarget, advance func(string)) error {
	item := target.item
	sel := target.selection

	if sel.FutureUpdatesOnly || sel.AddToDBOnly {
		if err := c.persistRecord(item, set, sel, time.Time{}); err != nil {
			c.warn(&item, "", fmt.Sprintf("failed to save record: %v", err))
		} else if err := c.db.SetItemInDatabase(item.RatingKey, true); err != nil {
			c.logger.WithError(err).WithField("rating_key", item.RatingKey).Warn("Failed to update cached item flag")
		}
		advance(item.Title)
		return nil
	}

	// Season and episode existence can only be validated against current
	// server state, so re-fetch the item before touching assets
	refreshed, err := c.server.GetItem(ctx, item.RatingKey)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download run cancelled: %w", ctx.Err())
		}
		c.warn(&item, "", fmt.Sprintf("failed to refresh item: %v", err))
		for range target.units {
			advance(item.Title)
		}
		return nil
	}
	refreshed.LibraryTitle = item.LibraryTitle

	for i := range target.units {
		if ctx.Err() != nil {
			return fmt.Errorf("download run cancelled: %w", ctx.Err())
		}

		asset := target.units[i]
		label := asset.Label()

		targetKey, ok := resolveTarget(refreshed, &asset)
		if !ok {
			// The season or episode is not on the server; skip silently
			advance(refreshed.Title)
			continue
		}

		if err := c.applyAsset(ctx, refreshed, targetKey, &asset); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("download run cancelled: %w", ctx.Err())
			}
			c.warn(refreshed, label, err.Error())
		}
		advance(refreshed.Title + ": " + label)
	}

	if err := c.persistRecord(*refreshed, set, sel, time.Now()); err != nil {
		c.warn(refreshed, "", fmt.Sprintf("failed to save record: %v", err))
		return nil
	}
	if err := c.db.SetItemInDatabase(refreshed.RatingKey, true); err != nil {
		c.logger.WithError(err).WithField("rating_key", refreshed.RatingKey).Warn("Failed to update cached item flag")
	}
	return nil
}

// applyAsset downloads one poster file from the catalog and pushes it onto
// the media server
func (c *DownloadController) applyAsset(ctx context.Context, item *models.MediaItem, targetKey string, asset *models.PosterFile) error {
	data, err := c.catalog.DownloadAsset(ctx, asset.ID)
	if err != nil {
		return fmt.Errorf("download failed: %v", err)
	}
	if err := c.server.UploadAsset(ctx, targetKey, asset.Type, data); err != nil {
		return fmt.Errorf("upload failed: %v", err)
	}
	return nil
}

// DownloadAndApplyAsset applies a single asset to an item. This is the
// manual retry path behind PATCH /mediaserver/download/file.
func (c *DownloadController) DownloadAndApplyAsset(ctx context.Context, item models.MediaItem, asset models.PosterFile) error {
	refreshed, err := c.server.GetItem(ctx, item.RatingKey)
	if err != nil {
		return fmt.Errorf("failed to refresh item: %w", err)
	}

	targetKey, ok := resolveTarget(refreshed, &asset)
	if !ok {
		return fmt.Errorf("%s: season or episode not present on the server", asset.Label())
	}
	return c.applyAsset(ctx, refreshed, targetKey, &asset)
}

func (c *DownloadController) persistRecord(item models.MediaItem, set models.PosterSet, sel TargetSelection, downloadedAt time.Time) error {
	item.ExistInDatabase = true
	return c.db.UpsertSavedSet(item, models.SavedSet{
		Set:            set,
		SelectedTypes:  sel.SelectedTypes,
		AutoDownload:   sel.AutoDownload,
		LastDownloaded: downloadedAt,
	})
}

// resolveTarget maps an asset onto the rating key it should be uploaded to.
// Returns false when the asset's season or episode does not exist on the
// refreshed item.
func resolveTarget(item *models.MediaItem, asset *models.PosterFile) (string, bool) {
	switch asset.Type {
	case models.AssetSeasonPoster, models.AssetSpecialSeason:
		if asset.Season == nil {
			return "", false
		}
		season := item.FindSeason(asset.Season.Number)
		if season == nil {
			return "", false
		}
		return season.RatingKey, true
	case models.AssetTitleCard:
		if asset.Episode == nil {
			return "", false
		}
		episode := item.FindEpisode(asset.Episode.SeasonNumber, asset.Episode.EpisodeNumber)
		if episode == nil {
			return "", false
		}
		return episode.RatingKey, true
	default:
		return item.RatingKey, true
	}
}

// assetsForSelection collects the download units for one item in the fixed
// type order poster, backdrop, season posters (ascending), specials poster,
// titlecards (season then episode ascending)
func assetsForSelection(set *models.PosterSet, item *models.MediaItem, types []models.AssetType) []models.PosterFile {
	selected := make(map[models.AssetType]bool, len(types))
	for _, t := range types {
		selected[t] = true
	}

	var units []models.PosterFile
	for _, t := range models.AssetTypeOrder {
		if !selected[t] {
			continue
		}
		switch t {
		case models.AssetPoster:
			if f := collectionFile(set.OtherPosters, item); f != nil {
				units = append(units, *f)
			} else if set.Type != models.SetTypeCollection && set.Poster != nil {
				units = append(units, *set.Poster)
			}
		case models.AssetBackdrop:
			if f := collectionFile(set.OtherBackdrops, item); f != nil {
				units = append(units, *f)
			} else if set.Type != models.SetTypeCollection && set.Backdrop != nil {
				units = append(units, *set.Backdrop)
			}
		case models.AssetSeasonPoster:
			units = append(units, seasonPosters(set, false)...)
		case models.AssetSpecialSeason:
			units = append(units, seasonPosters(set, true)...)
		case models.AssetTitleCard:
			cards := make([]models.PosterFile, len(set.TitleCards))
			copy(cards, set.TitleCards)
			sort.SliceStable(cards, func(i, j int) bool {
				a, b := cards[i].Episode, cards[j].Episode
				if a == nil || b == nil {
					return b == nil && a != nil
				}
				if a.SeasonNumber != b.SeasonNumber {
					return a.SeasonNumber < b.SeasonNumber
				}
				return a.EpisodeNumber < b.EpisodeNumber
			})
			units = append(units, cards...)
		}
	}
	return units
}

// collectionFile picks the per-movie file for an item out of a collection
// set's asset list
func collectionFile(files []models.PosterFile, item *models.MediaItem) *models.PosterFile {
	tmdbID := item.GuidID("tmdb")
	for i := range files {
		m := files[i].Movie
		if m == nil {
			continue
		}
		if m.RatingKey == item.RatingKey || (tmdbID != "" && m.ID == tmdbID) {
			return &files[i]
		}
	}
	return nil
}

// seasonPosters returns season posters ordered ascending by season number,
// either the specials poster (season 0) or the regular ones
func seasonPosters(set *models.PosterSet, specials bool) []models.PosterFile {
	var out []models.PosterFile
	for _, f := range set.SeasonPosters {
		if f.Season == nil {
			continue
		}
		if (f.Season.Number == 0) == specials {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Season.Number < out[j].Season.Number
	})
	return out
}
