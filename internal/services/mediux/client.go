package mediux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Asset downloads can be large but never this large
const maxAssetSize = 25 * 1024 * 1024 // 25MB

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Client wraps the Mediux catalog API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *logrus.Logger
}

// UserSets is the catalog's answer for one author: their sets plus any
// box-sets grouping several of them
type UserSets struct {
	Sets    []models.PosterSet `json:"sets"`
	Boxsets []Boxset           `json:"boxsets,omitempty"`
}

// Boxset is a catalog grouping of sets authored together
type Boxset struct {
	ID    string             `json:"id"`
	Title string             `json:"title"`
	Sets  []models.PosterSet `json:"sets"`
}

type setsResponse struct {
	Sets []models.PosterSet `json:"sets"`
}

type setResponse struct {
	Set models.PosterSet `json:"set"`
}

// NewClient creates a new Mediux catalog client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.MediuxToken == "" {
		return nil, fmt.Errorf("mediux API token is required")
	}

	return &Client{
		baseURL:    cfg.MediuxURL,
		token:      cfg.MediuxToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      gocache.New(cacheTTL, cacheCleanup),
		logger:     logger,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path
	c.logger.WithField("url", fullURL).Debug("Making Mediux API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mediux API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetSetsForItem retrieves candidate poster sets for a media item, matched
// by TMDB ID. Responses are cached briefly.
func (c *Client) GetSetsForItem(ctx context.Context, itemType models.ItemType, tmdbID string) ([]models.PosterSet, error) {
	if tmdbID == "" {
		return nil, fmt.Errorf("tmdb ID is required")
	}

	cacheKey := "item:" + string(itemType) + ":" + tmdbID
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.([]models.PosterSet), nil
	}

	var resp setsResponse
	path := fmt.Sprintf("/sets/item/%s/%s", itemType, url.PathEscape(tmdbID))
	if err := c.doRequest(ctx, path, &resp); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, resp.Sets, gocache.DefaultExpiration)
	c.logger.WithFields(logrus.Fields{
		"tmdb_id": tmdbID,
		"count":   len(resp.Sets),
	}).Debug("Fetched poster sets for item")
	return resp.Sets, nil
}

// GetUserSets retrieves all sets and box-sets authored by a user
func (c *Client) GetUserSets(ctx context.Context, username string) (*UserSets, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	cacheKey := "user:" + username
	if cached, found := c.cache.Get(cacheKey); found {
		sets := cached.(UserSets)
		return &sets, nil
	}

	var resp UserSets
	path := "/sets/user/" + url.PathEscape(username)
	if err := c.doRequest(ctx, path, &resp); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, resp, gocache.DefaultExpiration)
	return &resp, nil
}

// GetSet retrieves one poster set by ID
func (c *Client) GetSet(ctx context.Context, setID string) (*models.PosterSet, error) {
	if setID == "" {
		return nil, fmt.Errorf("set ID is required")
	}

	cacheKey := "set:" + setID
	if cached, found := c.cache.Get(cacheKey); found {
		set := cached.(models.PosterSet)
		return &set, nil
	}

	var resp setResponse
	path := "/sets/" + url.PathEscape(setID)
	if err := c.doRequest(ctx, path, &resp); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, resp.Set, gocache.DefaultExpiration)
	return &resp.Set, nil
}

// DownloadAsset fetches the raw image bytes for one poster file
func (c *Client) DownloadAsset(ctx context.Context, fileID string) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/assets/%s", c.baseURL, url.PathEscape(fileID))
	c.logger.WithField("url", fullURL).Debug("Downloading asset")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset content: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"file_id": fileID,
		"size_kb": len(data) / 1024,
	}).Debug("Asset downloaded")
	return data, nil
}
