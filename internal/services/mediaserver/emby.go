package mediaserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// embyClient talks to the Emby/Jellyfin HTTP API. The two servers share
// the surface this client uses.
type embyClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

type embyItemsResponse struct {
	Items []embyItem `json:"Items"`
}

type embyItem struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	CollectionType    string            `json:"CollectionType"`
	ProductionYear    int               `json:"ProductionYear"`
	IndexNumber       *int              `json:"IndexNumber"`
	ParentIndexNumber *int              `json:"ParentIndexNumber"`
	ProviderIds       map[string]string `json:"ProviderIds"`
}

func (c *embyClient) doRequest(ctx context.Context, path string, query url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid media server URL: %w", err)
	}
	u.RawQuery = query.Encode()

	c.logger.WithField("url", u.Redacted()).Debug("Making Emby API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("emby API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *embyClient) GetSections(ctx context.Context) ([]models.LibrarySection, error) {
	var resp embyItemsResponse
	if err := c.doRequest(ctx, "/Library/MediaFolders", nil, &resp); err != nil {
		return nil, err
	}

	var sections []models.LibrarySection
	for _, it := range resp.Items {
		var itemType models.ItemType
		switch it.CollectionType {
		case "movies":
			itemType = models.ItemTypeMovie
		case "tvshows":
			itemType = models.ItemTypeShow
		default:
			continue
		}
		sections = append(sections, models.LibrarySection{
			ID:    it.ID,
			Title: it.Name,
			Type:  itemType,
		})
	}

	c.logger.WithField("count", len(sections)).Debug("Fetched library sections")
	return sections, nil
}

func (c *embyClient) GetSectionItems(ctx context.Context, section models.LibrarySection) ([]models.MediaItem, error) {
	query := url.Values{}
	query.Set("ParentId", section.ID)
	query.Set("IncludeItemTypes", "Movie,Series")
	query.Set("Recursive", "true")
	query.Set("Fields", "ProviderIds,ProductionYear")

	var resp embyItemsResponse
	if err := c.doRequest(ctx, "/Items", query, &resp); err != nil {
		return nil, err
	}

	items := make([]models.MediaItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		item := c.convertItem(it)
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

func (c *embyClient) GetItem(ctx context.Context, ratingKey string) (*models.MediaItem, error) {
	query := url.Values{}
	query.Set("Ids", ratingKey)
	query.Set("Fields", "ProviderIds,ProductionYear")
	query.Set("Recursive", "true")

	var resp embyItemsResponse
	if err := c.doRequest(ctx, "/Items", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("item %s not found", ratingKey)
	}

	item := c.convertItem(resp.Items[0])
	if item == nil {
		return nil, fmt.Errorf("item %s has unsupported type %q", ratingKey, resp.Items[0].Type)
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

func (c *embyClient) fetchSeries(ctx context.Context, seriesID string) (*models.Series, error) {
	var seasons embyItemsResponse
	if err := c.doRequest(ctx, fmt.Sprintf("/Shows/%s/Seasons", seriesID), nil, &seasons); err != nil {
		return nil, err
	}

	series := &models.Series{}
	seasonIdx := make(map[int]int)
	for _, it := range seasons.Items {
		if it.IndexNumber == nil {
			continue
		}
		seasonIdx[*it.IndexNumber] = len(series.Seasons)
		series.Seasons = append(series.Seasons, models.Season{
			RatingKey: it.ID,
			Number:    *it.IndexNumber,
			Title:     it.Name,
		})
	}

	var episodes embyItemsResponse
	if err := c.doRequest(ctx, fmt.Sprintf("/Shows/%s/Episodes", seriesID), nil, &episodes); err != nil {
		return nil, err
	}
	for _, it := range episodes.Items {
		if it.IndexNumber == nil || it.ParentIndexNumber == nil {
			continue
		}
		idx, ok := seasonIdx[*it.ParentIndexNumber]
		if !ok {
			continue
		}
		series.Seasons[idx].Episodes = append(series.Seasons[idx].Episodes, models.Episode{
			RatingKey:     it.ID,
			Title:         it.Name,
			SeasonNumber:  *it.ParentIndexNumber,
			EpisodeNumber: *it.IndexNumber,
		})
		series.EpisodeCount++
	}
	series.SeasonCount = len(series.Seasons)

	return series, nil
}

// UploadAsset pushes image bytes as the item's primary image (or backdrop).
// Emby expects the body base64-encoded.
func (c *embyClient) UploadAsset(ctx context.Context, ratingKey string, kind models.AssetType, data []byte) error {
	imageType := "Primary"
	if kind == models.AssetBackdrop {
		imageType = "Backdrop"
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	u := fmt.Sprintf("%s/Items/%s/Images/%s", c.baseURL, ratingKey, imageType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader([]byte(encoded)))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("emby upload returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	c.logger.WithFields(logrus.Fields{
		"rating_key": ratingKey,
		"kind":       kind,
		"size_kb":    len(data) / 1024,
	}).Debug("Asset uploaded")
	return nil
}

func (c *embyClient) convertItem(it embyItem) *models.MediaItem {
	var itemType models.ItemType
	switch it.Type {
	case "Movie":
		itemType = models.ItemTypeMovie
	case "Series":
		itemType = models.ItemTypeShow
	default:
		return nil
	}

	item := &models.MediaItem{
		RatingKey: it.ID,
		Type:      itemType,
		Title:     it.Name,
		Year:      it.ProductionYear,
	}
	for provider, id := range it.ProviderIds {
		if id == "" {
			continue
		}
		item.Guids = append(item.Guids, models.Guid{
			Provider: strings.ToLower(provider),
			ID:       id,
		})
	}
	return item
}
