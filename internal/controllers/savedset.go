package controllers

import (
	"fmt"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

// SetEdit describes the new state of one set within a saved record
type SetEdit struct {
	SetID         string             `json:"setId"`
	SelectedTypes []models.AssetType `json:"selectedTypes"`
	AutoDownload  bool               `json:"autoDownload"`

	// MarkedForDeletion drops the set from the record. When every set of
	// the record is marked, the whole record is deleted.
	MarkedForDeletion bool `json:"markedForDeletion"`
}

// EditRequest updates the sets associated with one media item
type EditRequest struct {
	RatingKey string    `json:"ratingKey"`
	Sets      []SetEdit `json:"sets"`
}

// SavedSetController manages saved-set records
type SavedSetController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewSavedSetController creates a new saved-set controller
func NewSavedSetController(db *models.Database, logger *logrus.Logger) *SavedSetController {
	return &SavedSetController{db: db, logger: logger}
}

// GetAll returns every saved-set record
func (c *SavedSetController) GetAll() ([]*models.SavedItem, error) {
	return c.db.GetAllSavedItems()
}

// Add persists a set as applied to an item and marks the cached item as
// existing in the database
func (c *SavedSetController) Add(item models.MediaItem, set models.SavedSet) error {
	item.ExistInDatabase = true
	if err := c.db.UpsertSavedSet(item, set); err != nil {
		return err
	}
	if err := c.db.SetItemInDatabase(item.RatingKey, true); err != nil {
		c.logger.WithError(err).WithField("rating_key", item.RatingKey).Warn("Failed to update cached item flag")
	}
	return nil
}

// Edit applies a set of per-set changes to a record. An asset type may be
// associated with only one set per item; conflicting selections are
// rejected. Marking every set for deletion deletes the record.
func (c *SavedSetController) Edit(req EditRequest) error {
	item, err := c.db.GetSavedItemByRatingKey(req.RatingKey)
	if err == bolthold.ErrNotFound {
		return fmt.Errorf("no saved record for item %s", req.RatingKey)
	}
	if err != nil {
		return err
	}

	edits := make(map[string]SetEdit, len(req.Sets))
	for _, e := range req.Sets {
		edits[e.SetID] = e
	}

	// A record where every remaining set is marked for deletion is a full
	// delete, not a no-op update
	remaining := 0
	for _, set := range item.Sets {
		if e, ok := edits[set.Set.ID]; !ok || !e.MarkedForDeletion {
			remaining++
		}
	}
	if remaining == 0 {
		return c.Delete(req.RatingKey)
	}

	var newSets []models.SavedSet
	for _, set := range item.Sets {
		e, ok := edits[set.Set.ID]
		if !ok {
			newSets = append(newSets, set)
			continue
		}
		if e.MarkedForDeletion {
			continue
		}
		set.SelectedTypes = e.SelectedTypes
		set.AutoDownload = e.AutoDownload
		newSets = append(newSets, set)
	}

	if err := validateTypeOwnership(newSets); err != nil {
		return err
	}

	item.Sets = newSets
	c.logger.WithFields(logrus.Fields{
		"rating_key": req.RatingKey,
		"sets":       len(newSets),
	}).Info("Saved record updated")
	return c.db.UpdateSavedItem(item)
}

// Delete removes the record for an item and flips the cached item's
// ExistInDatabase flag back to false
func (c *SavedSetController) Delete(ratingKey string) error {
	item, err := c.db.GetSavedItemByRatingKey(ratingKey)
	if err == bolthold.ErrNotFound {
		return fmt.Errorf("no saved record for item %s", ratingKey)
	}
	if err != nil {
		return err
	}

	if err := c.db.DeleteSavedItem(item.ID); err != nil {
		return err
	}
	if err := c.db.SetItemInDatabase(ratingKey, false); err != nil {
		c.logger.WithError(err).WithField("rating_key", ratingKey).Warn("Failed to update cached item flag")
	}

	c.logger.WithField("rating_key", ratingKey).Info("Saved record deleted")
	return nil
}

// TypeConflicts reports, for one set of a record, which asset types are
// already claimed by a sibling set. Callers use it to disable conflicting
// selections before an edit.
func (c *SavedSetController) TypeConflicts(ratingKey, setID string) (map[models.AssetType]string, error) {
	item, err := c.db.GetSavedItemByRatingKey(ratingKey)
	if err != nil {
		return nil, err
	}

	conflicts := make(map[models.AssetType]string)
	for _, set := range item.Sets {
		if set.Set.ID == setID {
			continue
		}
		for _, t := range set.SelectedTypes {
			if _, taken := conflicts[t]; !taken {
				conflicts[t] = set.Set.ID
			}
		}
	}
	return conflicts, nil
}

func validateTypeOwnership(sets []models.SavedSet) error {
	owners := make(map[models.AssetType]string)
	for _, set := range sets {
		for _, t := range set.SelectedTypes {
			if owner, taken := owners[t]; taken && owner != set.Set.ID {
				return fmt.Errorf("asset type %q is already associated with set %s", t, owner)
			}
			owners[t] = set.Set.ID
		}
	}
	return nil
}
