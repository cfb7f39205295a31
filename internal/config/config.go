// Package config loads the TOML configuration, layering files so a local
// config.toml overrides the one in the user's config directory.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Last.fm powers track search and optional scrobbling.
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Spotify powers cross-validation, recommendations and features.
	Spotify SpotifyConfig `koanf:"spotify"`

	// Piped powers stream extraction.
	Piped PipedConfig `koanf:"piped"`

	Engine EngineConfig `koanf:"engine"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
}

// LastfmConfig holds Last.fm credentials. APIKey alone enables search;
// APISecret additionally enables scrobbling.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// SpotifyConfig holds the client-credentials pair.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// PipedConfig selects the Piped API instance.
type PipedConfig struct {
	Instance string `koanf:"instance"` // e.g. "https://pipedapi.kavin.rocks"
}

// EngineConfig holds playback session policies.
type EngineConfig struct {
	MaxConsecutiveFailures int `koanf:"max_consecutive_failures"` // auto-advance budget (default: 5)
	ResolveTimeoutSeconds  int `koanf:"resolve_timeout_seconds"`  // per-track resolution bound (default: 30)
}

// CacheConfig holds recommendation cache settings.
type CacheConfig struct {
	TTLHours int `koanf:"ttl_hours"` // recommendation cache TTL (default: 24)
}

// LogConfig holds file logging settings.
type LogConfig struct {
	Level      string `koanf:"level"`       // "debug", "info", "warn", "error" (default: "info")
	MaxSizeMB  int    `koanf:"max_size_mb"` // rotate threshold (default: 10)
	MaxBackups int    `koanf:"max_backups"` // rotated files kept (default: 3)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Piped.Instance = strings.TrimSuffix(cfg.Piped.Instance, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/ossia/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ossia", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// HasLastfmConfig returns true if Last.fm search is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != ""
}

// HasScrobbleConfig returns true if scrobbling is configured.
func (c *Config) HasScrobbleConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasSpotifyConfig returns true if the metadata provider is configured.
func (c *Config) HasSpotifyConfig() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// GetEngineConfig returns engine settings with defaults applied.
func (c *Config) GetEngineConfig() EngineConfig {
	cfg := c.Engine
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.ResolveTimeoutSeconds <= 0 {
		cfg.ResolveTimeoutSeconds = 30
	}
	return cfg
}

// ResolveTimeout returns the resolution bound as a duration.
func (c EngineConfig) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutSeconds) * time.Second
}

// GetCacheConfig returns cache settings with defaults applied.
func (c *Config) GetCacheConfig() CacheConfig {
	cfg := c.Cache
	if cfg.TTLHours <= 0 {
		cfg.TTLHours = 24
	}
	return cfg
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// GetLogConfig returns log settings with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	return cfg
}
