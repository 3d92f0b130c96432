package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the remote recipe service.
type APIConfig struct {
	// BaseURL is the root URL of the recipe service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec is the per-request HTTP timeout in seconds.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// NotifyConfig holds background polling settings.
type NotifyConfig struct {
	// PollIntervalSec is how often (in seconds) to check for new
	// notifications while logged in.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// CacheConfig holds local cache settings.
type CacheConfig struct {
	// Path is the location of the cache database file.
	Path string `mapstructure:"path" yaml:"path"`

	// RecipeTTLHours is how long a cached recipe listing stays fresh.
	RecipeTTLHours int `mapstructure:"recipe_ttl_hours" yaml:"recipe_ttl_hours"`
}

// ChatConfig holds settings for the recommendation chat.
type ChatConfig struct {
	// Greeting is the bot message shown in a fresh or cleared chat.
	Greeting string `mapstructure:"greeting" yaml:"greeting"`

	// MaxResults caps how many search matches are hydrated into a
	// single carousel reply.
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API    APIConfig    `mapstructure:"api" yaml:"api"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Chat   ChatConfig   `mapstructure:"chat" yaml:"chat"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/recipecompanion/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "recipecompanion", "config.yaml")
}

// DefaultCachePath returns the default location of the cache database.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cache.db")
	}
	return filepath.Join(home, ".config", "recipecompanion", "cache.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			TimeoutSec: 30,
		},
		Notify: NotifyConfig{
			PollIntervalSec: 30,
		},
		Cache: CacheConfig{
			Path:           DefaultCachePath(),
			RecipeTTLHours: 24,
		},
		Chat: ChatConfig{
			MaxResults: 5,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("notify.poll_interval_sec", 30)
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("cache.recipe_ttl_hours", 24)
	v.SetDefault("chat.max_results", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("notify", cfg.Notify)
	v.Set("cache", cfg.Cache)
	v.Set("chat", cfg.Chat)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
