package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// plexClient talks to the Plex Media Server HTTP API
type plexClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Plex wire types. Every response is wrapped in a MediaContainer.

type plexContainer struct {
	MediaContainer struct {
		Directory []plexDirectory `json:"Directory"`
		Metadata  []plexMetadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexDirectory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type plexMetadata struct {
	RatingKey   string     `json:"ratingKey"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Year        int        `json:"year"`
	LibraryName string     `json:"librarySectionTitle"`
	Index       int        `json:"index"`
	ParentIndex int        `json:"parentIndex"`
	LeafCount   int        `json:"leafCount"`
	ChildCount  int        `json:"childCount"`
	Guids       []plexGuid `json:"Guid"`
}

type plexGuid struct {
	ID string `json:"id"` // e.g. "tmdb://603"
}

func (c *plexClient) doRequest(ctx context.Context, path string, query url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid media server URL: %w", err)
	}
	u.RawQuery = query.Encode()

	c.logger.WithFields(logrus.Fields{
		"url": u.Redacted(),
	}).Debug("Making Plex API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("plex API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *plexClient) GetSections(ctx context.Context) ([]models.LibrarySection, error) {
	var container plexContainer
	if err := c.doRequest(ctx, "/library/sections", nil, &container); err != nil {
		return nil, err
	}

	var sections []models.LibrarySection
	for _, dir := range container.MediaContainer.Directory {
		itemType, ok := plexItemType(dir.Type)
		if !ok {
			continue
		}
		sections = append(sections, models.LibrarySection{
			ID:    dir.Key,
			Title: dir.Title,
			Type:  itemType,
		})
	}

	c.logger.WithField("count", len(sections)).Debug("Fetched library sections")
	return sections, nil
}

func (c *plexClient) GetSectionItems(ctx context.Context, section models.LibrarySection) ([]models.MediaItem, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")

	var container plexContainer
	path := fmt.Sprintf("/library/sections/%s/all", section.ID)
	if err := c.doRequest(ctx, path, query, &container); err != nil {
		return nil, err
	}

	items := make([]models.MediaItem, 0, len(container.MediaContainer.Metadata))
	for _, md := range container.MediaContainer.Metadata {
		item := c.convertItem(md)
		if item == nil {
			continue
		}
		item.LibraryTitle = section.Title
		items = append(items, *item)
	}

	c.logger.WithFields(logrus.Fields{
		"section": section.Title,
		"count":   len(items),
	}).Debug("Fetched section items")
	return items, nil
}

func (c *plexClient) GetItem(ctx context.Context, ratingKey string) (*models.MediaItem, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")

	var container plexContainer
	path := fmt.Sprintf("/library/metadata/%s", ratingKey)
	if err := c.doRequest(ctx, path, query, &container); err != nil {
		return nil, err
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("item %s not found", ratingKey)
	}

	item := c.convertItem(container.MediaContainer.Metadata[0])
	if item == nil {
		return nil, fmt.Errorf("item %s has unsupported type %q", ratingKey, container.MediaContainer.Metadata[0].Type)
	}

	if item.Type == models.ItemTypeShow {
		series, err := c.fetchSeries(ctx, ratingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch seasons for %s: %w", ratingKey, err)
		}
		item.Series = series
	}
	return item, nil
}

// fetchSeries builds the season/episode structure from the children and
// allLeaves endpoints
func (c *plexClient) fetchSeries(ctx context.Context, ratingKey string) (*models.Series, error) {
	var children plexContainer
	if err := c.doRequest(ctx, fmt.Sprintf("/library/metadata/%s/children", ratingKey), nil, &children); err != nil {
		return nil, err
	}

	series := &models.Series{}
	seasonIdx := make(map[int]int)
	for _, md := range children.MediaContainer.Metadata {
		if md.Type != "season" {
			continue
		}
		seasonIdx[md.Index] = len(series.Seasons)
		series.Seasons = append(series.Seasons, models.Season{
			Number:    md.Index,
			Title:     md.Title,
			RatingKey: md.RatingKey,
		})
	}

	var leaves plexContainer
	if err := c.doRequest(ctx, fmt.Sprintf("/library/metadata/%s/allLeaves", ratingKey), nil, &leaves); err != nil {
		return nil, err
	}
	for _, md := range leaves.MediaContainer.Metadata {
		if md.Type != "episode" {
			continue
		}
		idx, ok := seasonIdx[md.ParentIndex]
		if !ok {
			continue
		}
		series.Seasons[idx].Episodes = append(series.Seasons[idx].Episodes, models.Episode{
			RatingKey:     md.RatingKey,
			Title:         md.Title,
			SeasonNumber:  md.ParentIndex,
			EpisodeNumber: md.Index,
		})
		series.EpisodeCount++
	}
	series.SeasonCount = len(series.Seasons)

	return series, nil
}

func (c *plexClient) UploadAsset(ctx context.Context, ratingKey string, kind models.AssetType, data []byte) error {
	endpoint := "posters"
	if kind == models.AssetBackdrop {
		endpoint = "arts"
	}

	u := fmt.Sprintf("%s/library/metadata/%s/%s", c.baseURL, ratingKey, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("plex upload returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	c.logger.WithFields(logrus.Fields{
		"rating_key": ratingKey,
		"kind":       kind,
		"size_kb":    len(data) / 1024,
	}).Debug("Asset uploaded")
	return nil
}

// convertItem maps Plex metadata onto a MediaItem, returning nil for
// unsupported types
func (c *plexClient) convertItem(md plexMetadata) *models.MediaItem {
	itemType, ok := plexItemType(md.Type)
	if !ok {
		return nil
	}

	item := &models.MediaItem{
		RatingKey:    md.RatingKey,
		Type:         itemType,
		Title:        md.Title,
		Year:         md.Year,
		LibraryTitle: md.LibraryName,
	}
	for _, g := range md.Guids {
		provider, id, found := strings.Cut(g.ID, "://")
		if !found {
			continue
		}
		item.Guids = append(item.Guids, models.Guid{Provider: provider, ID: id})
	}
	return item
}

func plexItemType(plexType string) (models.ItemType, bool) {
	switch plexType {
	case "movie":
		return models.ItemTypeMovie, true
	case "show":
		return models.ItemTypeShow, true
	default:
		return "", false
	}
}
