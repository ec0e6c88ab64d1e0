package models

import (
	"fmt"
	"time"
)

// SetUser identifies the author of a poster set
type SetUser struct {
	Name string `json:"name"`
}

// PosterSet is an author-curated collection of artwork for one media item
// or movie collection
type PosterSet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        SetType   `json:"type"`
	User        SetUser   `json:"user"`
	DateCreated time.Time `json:"dateCreated"`
	DateUpdated time.Time `json:"dateUpdated"`
	Status      string    `json:"status,omitempty"`

	Poster   *PosterFile `json:"poster,omitempty"`
	Backdrop *PosterFile `json:"backdrop,omitempty"`

	SeasonPosters []PosterFile `json:"seasonPosters,omitempty"`
	TitleCards    []PosterFile `json:"titleCards,omitempty"`

	// OtherPosters/OtherBackdrops carry per-movie artwork for collection sets
	OtherPosters   []PosterFile `json:"otherPosters,omitempty"`
	OtherBackdrops []PosterFile `json:"otherBackdrops,omitempty"`
}

// PosterFile is one downloadable image belonging to a poster set
type PosterFile struct {
	ID       string    `json:"id"`
	Type     AssetType `json:"type"`
	Modified time.Time `json:"modified"`
	FileSize int64     `json:"fileSize"`

	// Season is set for season-scoped assets. Number 0 denotes specials.
	Season *FileSeason `json:"season,omitempty"`
	// Episode is set for titlecards
	Episode *FileEpisode `json:"episode,omitempty"`
	// Movie is set for per-movie assets in collection sets
	Movie *FileMovie `json:"movie,omitempty"`
}

// FileSeason back-references the season a file targets
type FileSeason struct {
	Number int `json:"number"`
}

// FileEpisode back-references the episode a titlecard targets
type FileEpisode struct {
	Title         string `json:"title,omitempty"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
}

// FileMovie back-references the movie a collection asset belongs to
type FileMovie struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	RatingKey string `json:"ratingKey,omitempty"`
}

// HasTitleCards reports whether the set carries at least one titlecard
func (s *PosterSet) HasTitleCards() bool {
	return len(s.TitleCards) > 0
}

// SeasonPosterCount returns the number of regular (non-specials) season posters
func (s *PosterSet) SeasonPosterCount() int {
	n := 0
	for _, f := range s.SeasonPosters {
		if f.Season == nil || f.Season.Number != 0 {
			n++
		}
	}
	return n
}

// HasSpecialSeasonPoster reports whether the set has a poster for season 0
func (s *PosterSet) HasSpecialSeasonPoster() bool {
	for _, f := range s.SeasonPosters {
		if f.Season != nil && f.Season.Number == 0 {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for an asset, used in warnings and
// progress text
func (f *PosterFile) Label() string {
	switch f.Type {
	case AssetSeasonPoster, AssetSpecialSeason:
		if f.Season != nil {
			if f.Season.Number == 0 {
				return "Specials Poster"
			}
			return fmt.Sprintf("Season %d Poster", f.Season.Number)
		}
		return "Season Poster"
	case AssetTitleCard:
		if f.Episode != nil {
			return fmt.Sprintf("S%02dE%02d Titlecard", f.Episode.SeasonNumber, f.Episode.EpisodeNumber)
		}
		return "Titlecard"
	case AssetBackdrop:
		return "Backdrop"
	default:
		if f.Movie != nil && f.Movie.Title != "" {
			return f.Movie.Title + " Poster"
		}
		return "Poster"
	}
}
