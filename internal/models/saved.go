package models

import "time"

// SavedItem is the persisted association between a media item and the
// poster set(s) applied to it
type SavedItem struct {
	ID        uint64 `boltholdKey:"ID"`
	RatingKey string `boltholdIndex:"RatingKey"`

	MediaItem MediaItem
	Sets      []SavedSet

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SavedSet records one applied poster set and the asset types it claims
type SavedSet struct {
	// Set is a snapshot of the poster set at apply time, kept so the
	// auto-download pass can compare catalog updates against it
	Set PosterSet

	SelectedTypes []AssetType
	AutoDownload  bool

	LastDownloaded time.Time
}

// SetByID returns the saved set with the given catalog ID, or nil
func (s *SavedItem) SetByID(setID string) *SavedSet {
	for i := range s.Sets {
		if s.Sets[i].Set.ID == setID {
			return &s.Sets[i]
		}
	}
	return nil
}

// TypeOwners maps each claimed asset type to the ID of the set claiming it.
// A type may be associated with only one set per item at a time.
func (s *SavedItem) TypeOwners() map[AssetType]string {
	owners := make(map[AssetType]string)
	for _, set := range s.Sets {
		for _, t := range set.SelectedTypes {
			if _, taken := owners[t]; !taken {
				owners[t] = set.Set.ID
			}
		}
	}
	return owners
}

// SectionCache is a cached library section with the items it contains
type SectionCache struct {
	Title string `boltholdKey:"Title"`

	Section LibrarySection
	Items   []MediaItem

	CachedAt time.Time
}

// Expired reports whether the cache entry is older than ttl
func (c *SectionCache) Expired(ttl time.Duration) bool {
	return time.Since(c.CachedAt) > ttl
}
