package models

// Guid is one external identifier for a media item (tmdb, imdb, tvdb)
type Guid struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

// MediaItem represents a movie or show as known to the media server
type MediaItem struct {
	RatingKey       string   `json:"ratingKey"`
	Type            ItemType `json:"type"`
	Title           string   `json:"title"`
	Year            int      `json:"year,omitempty"`
	LibraryTitle    string   `json:"libraryTitle,omitempty"`
	Guids           []Guid   `json:"guids,omitempty"`
	ExistInDatabase bool     `json:"existInDatabase"`

	// Series is populated for shows only
	Series *Series `json:"series,omitempty"`
}

// Series holds the season/episode structure of a show
type Series struct {
	SeasonCount  int      `json:"seasonCount"`
	EpisodeCount int      `json:"episodeCount"`
	Seasons      []Season `json:"seasons,omitempty"`
}

// Season is one season of a show. Number 0 denotes specials.
type Season struct {
	RatingKey string    `json:"ratingKey,omitempty"`
	Number    int       `json:"number"`
	Title     string    `json:"title,omitempty"`
	Episodes  []Episode `json:"episodes,omitempty"`
}

// Episode is one episode of a season
type Episode struct {
	RatingKey     string `json:"ratingKey"`
	Title         string `json:"title,omitempty"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
}

// GuidID returns the identifier for a provider, or "" when absent
func (m *MediaItem) GuidID(provider string) string {
	for _, g := range m.Guids {
		if g.Provider == provider {
			return g.ID
		}
	}
	return ""
}

// FindSeason returns the season with the given number, or nil
func (m *MediaItem) FindSeason(number int) *Season {
	if m.Series == nil {
		return nil
	}
	for i := range m.Series.Seasons {
		if m.Series.Seasons[i].Number == number {
			return &m.Series.Seasons[i]
		}
	}
	return nil
}

// HasSeason reports whether the item has the given season number
func (m *MediaItem) HasSeason(number int) bool {
	return m.FindSeason(number) != nil
}

// FindEpisode returns the episode for a season/episode pair, or nil
func (m *MediaItem) FindEpisode(season, episode int) *Episode {
	if m.Series == nil {
		return nil
	}
	for i := range m.Series.Seasons {
		if m.Series.Seasons[i].Number != season {
			continue
		}
		for j := range m.Series.Seasons[i].Episodes {
			if m.Series.Seasons[i].Episodes[j].EpisodeNumber == episode {
				return &m.Series.Seasons[i].Episodes[j]
			}
		}
	}
	return nil
}

// LibrarySection is a named library grouping cached from the media server
type LibrarySection struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Type  ItemType `json:"type"`
}
