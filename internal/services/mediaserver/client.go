package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Client is the surface the rest of the application uses to talk to the
// media server
type Client interface {
	// GetSections lists the library sections holding movies or shows
	GetSections(ctx context.Context) ([]models.LibrarySection, error)
	// GetSectionItems lists the media items of one section
	GetSectionItems(ctx context.Context, section models.LibrarySection) ([]models.MediaItem, error)
	// GetItem fetches one item by rating key, including the full
	// season/episode structure for shows
	GetItem(ctx context.Context, ratingKey string) (*models.MediaItem, error)
	// UploadAsset pushes image bytes onto the item (or season/episode)
	// identified by ratingKey
	UploadAsset(ctx context.Context, ratingKey string, kind models.AssetType, data []byte) error
}

// NewClient creates a media server client for the configured server type
func NewClient(cfg *config.Config, logger *logrus.Logger) (Client, error) {
	if cfg.MediaServerURL == "" {
		return nil, fmt.Errorf("media server URL is required")
	}
	if cfg.MediaServerToken == "" {
		return nil, fmt.Errorf("media server token is required")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	switch cfg.MediaServerType {
	case "plex":
		return &plexClient{
			baseURL:    cfg.MediaServerURL,
			token:      cfg.MediaServerToken,
			httpClient: httpClient,
			logger:     logger,
		}, nil
	case "emby", "jellyfin":
		return &embyClient{
			baseURL:    cfg.MediaServerURL,
			token:      cfg.MediaServerToken,
			httpClient: httpClient,
			logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported media server type %q", cfg.MediaServerType)
	}
}
