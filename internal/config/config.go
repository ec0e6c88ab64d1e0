package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Media server
	MediaServerURL   string
	MediaServerToken string
	MediaServerType  string // "plex", "emby" or "jellyfin"

	// Mediux catalog
	MediuxURL   string
	MediuxToken string

	// Auth
	Password        string
	TokenExpiryDays int

	// Cache
	CacheTTLMinutes int

	// Server
	ServerPort string

	// Paths
	SecretFile   string // $CONFIG_DIR/secret.key
	DatabaseFile string // $CONFIG_DIR/posterarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("MEDIA_SERVER_TYPE", "plex")
	viper.SetDefault("MEDIUX_URL", "https://api.mediux.pro")
	viper.SetDefault("TOKEN_EXPIRY_DAYS", 7)
	viper.SetDefault("CACHE_TTL_MINUTES", 60)
	viper.SetDefault("SERVER_PORT", "8888")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "posterarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		MediaServerURL:   viper.GetString("MEDIA_SERVER_URL"),
		MediaServerToken: viper.GetString("MEDIA_SERVER_TOKEN"),
		MediaServerType:  viper.GetString("MEDIA_SERVER_TYPE"),

		MediuxURL:   viper.GetString("MEDIUX_URL"),
		MediuxToken: viper.GetString("MEDIUX_TOKEN"),

		Password:        viper.GetString("PASSWORD"),
		TokenExpiryDays: viper.GetInt("TOKEN_EXPIRY_DAYS"),

		CacheTTLMinutes: viper.GetInt("CACHE_TTL_MINUTES"),

		ServerPort: viper.GetString("SERVER_PORT"),

		SecretFile:   filepath.Join(configDir, "secret.key"),
		DatabaseFile: filepath.Join(configDir, "posterarr.db"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.MediaServerURL == "" {
		return nil, fmt.Errorf("MEDIA_SERVER_URL is required")
	}
	if config.MediaServerToken == "" {
		return nil, fmt.Errorf("MEDIA_SERVER_TOKEN is required")
	}
	if config.MediuxToken == "" {
		return nil, fmt.Errorf("MEDIUX_TOKEN is required")
	}
	if config.Password == "" {
		return nil, fmt.Errorf("PASSWORD is required")
	}

	switch config.MediaServerType {
	case "plex", "emby", "jellyfin":
	default:
		return nil, fmt.Errorf("MEDIA_SERVER_TYPE must be plex, emby or jellyfin, got %q", config.MediaServerType)
	}

	return config, nil
}
