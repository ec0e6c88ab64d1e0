package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Saved item operations

// CreateSavedItem creates a new saved-set record
func (db *Database) CreateSavedItem(item *SavedItem) error {
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), item)
}

// UpdateSavedItem updates an existing saved-set record
func (db *Database) UpdateSavedItem(item *SavedItem) error {
	item.UpdatedAt = time.Now()
	return db.store.Update(item.ID, item)
}

// GetSavedItemByID retrieves a saved-set record by ID
func (db *Database) GetSavedItemByID(id uint64) (*SavedItem, error) {
	var item SavedItem
	if err := db.store.Get(id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetSavedItemByRatingKey retrieves the saved-set record for a media item
func (db *Database) GetSavedItemByRatingKey(ratingKey string) (*SavedItem, error) {
	var item SavedItem
	err := db.store.FindOne(&item, bolthold.Where("RatingKey").Eq(ratingKey))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetAllSavedItems retrieves all saved-set records
func (db *Database) GetAllSavedItems() ([]*SavedItem, error) {
	var items []*SavedItem
	err := db.store.Find(&items, nil)
	return items, err
}

// DeleteSavedItem deletes a saved-set record by ID
func (db *Database) DeleteSavedItem(id uint64) error {
	return db.store.Delete(id, &SavedItem{})
}

// UpsertSavedSet records a set as applied to an item, replacing any prior
// entry for the same catalog set ID
func (db *Database) UpsertSavedSet(media MediaItem, set SavedSet) error {
	item, err := db.GetSavedItemByRatingKey(media.RatingKey)
	if err == bolthold.ErrNotFound {
		record := &SavedItem{
			RatingKey: media.RatingKey,
			MediaItem: media,
			Sets:      []SavedSet{set},
		}
		return db.CreateSavedItem(record)
	}
	if err != nil {
		return err
	}

	replaced := false
	for i := range item.Sets {
		if item.Sets[i].Set.ID == set.Set.ID {
			item.Sets[i] = set
			replaced = true
			break
		}
	}
	if !replaced {
		item.Sets = append(item.Sets, set)
	}
	item.MediaItem = media
	return db.UpdateSavedItem(item)
}

// GetAutoDownloadItems retrieves saved items with at least one set marked
// for auto-download
func (db *Database) GetAutoDownloadItems() ([]*SavedItem, error) {
	items, err := db.GetAllSavedItems()
	if err != nil {
		return nil, err
	}

	var out []*SavedItem
	for _, item := range items {
		for _, set := range item.Sets {
			if set.AutoDownload {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

// Section cache operations

// UpsertSection stores a library section cache entry keyed by title
func (db *Database) UpsertSection(cache *SectionCache) error {
	cache.CachedAt = time.Now()
	return db.store.Upsert(cache.Title, cache)
}

// GetSection retrieves a cached section by title
func (db *Database) GetSection(title string) (*SectionCache, error) {
	var cache SectionCache
	if err := db.store.Get(title, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// GetAllSections retrieves all cached sections
func (db *Database) GetAllSections() ([]*SectionCache, error) {
	var caches []*SectionCache
	err := db.store.Find(&caches, nil)
	return caches, err
}

// DeleteSection removes a cached section by title
func (db *Database) DeleteSection(title string) error {
	return db.store.Delete(title, &SectionCache{})
}

// SetItemInDatabase flips the ExistInDatabase flag on every cached copy of
// the item. Each section entry is rewritten whole; callers tolerate the
// last writer winning.
func (db *Database) SetItemInDatabase(ratingKey string, exists bool) error {
	caches, err := db.GetAllSections()
	if err != nil {
		return err
	}

	for _, cache := range caches {
		changed := false
		for i := range cache.Items {
			if cache.Items[i].RatingKey == ratingKey && cache.Items[i].ExistInDatabase != exists {
				cache.Items[i].ExistInDatabase = exists
				changed = true
			}
		}
		if changed {
			if err := db.store.Upsert(cache.Title, cache); err != nil {
				return err
			}
		}
	}
	return nil
}
