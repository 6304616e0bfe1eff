// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime settings. Values come from an optional YAML file,
// overridden by environment variables; the verification endpoint and the
// NewsAPI key have no defaults and must be provided.
type Config struct {
	Port     int    `yaml:"port" env:"NEWSPROOF_PORT" env-default:"8080"`
	DBPath   string `yaml:"db_path" env:"NEWSPROOF_DB_PATH" env-default:"data/newsproof.db"`
	DataPath string `yaml:"data_path" env:"NEWSPROOF_DATA_PATH" env-default:"data"`

	// External services. Both are required; startup fails without them.
	VerifyURL  string `yaml:"verify_url" env:"NEWSPROOF_VERIFY_URL"`
	NewsAPIKey string `yaml:"news_api_key" env:"NEWSPROOF_NEWS_API_KEY"`

	// Curated source feeds.
	RefreshInterval  time.Duration `yaml:"refresh_interval" env:"NEWSPROOF_REFRESH_INTERVAL" env-default:"15m"`
	MaxEntriesPerSrc int           `yaml:"max_entries_per_source" env:"NEWSPROOF_MAX_ENTRIES_PER_SOURCE" env-default:"100"`
}

var (
	ErrMissingVerifyURL  = errors.New("verification endpoint URL is not configured")
	ErrMissingNewsAPIKey = errors.New("news API key is not configured")
)

// Load reads configuration from path (if non-empty and present) and the
// environment. It does not validate; call Validate before use.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
			}
			return cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("error reading environment: %w", err)
	}
	return cfg, nil
}

// Validate checks required settings. A missing oracle URL or API key is a
// configuration error and fatal at startup, never a runtime failure.
func (c Config) Validate() error {
	if c.VerifyURL == "" {
		return ErrMissingVerifyURL
	}
	if c.NewsAPIKey == "" {
		return ErrMissingNewsAPIKey
	}
	return nil
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}
