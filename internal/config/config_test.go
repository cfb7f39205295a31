//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "ossia", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func TestHasLastfmConfig(t *testing.T) {
	cfg := Config{}
	if cfg.HasLastfmConfig() {
		t.Error("HasLastfmConfig() = true for empty config")
	}

	cfg.Lastfm.APIKey = "my-api-key"
	if !cfg.HasLastfmConfig() {
		t.Error("HasLastfmConfig() = false with api key set")
	}
	if cfg.HasScrobbleConfig() {
		t.Error("HasScrobbleConfig() = true without secret")
	}

	cfg.Lastfm.APISecret = "my-api-secret"
	if !cfg.HasScrobbleConfig() {
		t.Error("HasScrobbleConfig() = false with key and secret set")
	}
}

func TestHasSpotifyConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "both id and secret set",
			config: Config{
				Spotify: SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
			},
			expected: true,
		},
		{
			name: "only id set",
			config: Config{
				Spotify: SpotifyConfig{ClientID: "id"},
			},
			expected: false,
		},
		{
			name:     "neither set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.HasSpotifyConfig(); got != tt.expected {
				t.Errorf("HasSpotifyConfig() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetEngineConfig_Defaults(t *testing.T) {
	cfg := Config{}
	engine := cfg.GetEngineConfig()

	if engine.MaxConsecutiveFailures != 5 {
		t.Errorf("MaxConsecutiveFailures = %d, want 5", engine.MaxConsecutiveFailures)
	}
	if engine.ResolveTimeout() != 30*time.Second {
		t.Errorf("ResolveTimeout() = %v, want 30s", engine.ResolveTimeout())
	}
}

func TestGetEngineConfig_CustomValues(t *testing.T) {
	cfg := Config{
		Engine: EngineConfig{
			MaxConsecutiveFailures: 10,
			ResolveTimeoutSeconds:  60,
		},
	}
	engine := cfg.GetEngineConfig()

	if engine.MaxConsecutiveFailures != 10 {
		t.Errorf("MaxConsecutiveFailures = %d, want 10", engine.MaxConsecutiveFailures)
	}
	if engine.ResolveTimeout() != time.Minute {
		t.Errorf("ResolveTimeout() = %v, want 1m", engine.ResolveTimeout())
	}
}

func TestGetCacheConfig_Defaults(t *testing.T) {
	cfg := Config{}
	if cfg.GetCacheConfig().TTL() != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h", cfg.GetCacheConfig().TTL())
	}

	cfg.Cache.TTLHours = 48
	if cfg.GetCacheConfig().TTL() != 48*time.Hour {
		t.Errorf("TTL() = %v, want 48h", cfg.GetCacheConfig().TTL())
	}
}

func TestGetLogConfig_Defaults(t *testing.T) {
	cfg := Config{}
	log := cfg.GetLogConfig()

	if log.Level != "info" {
		t.Errorf("Level = %q, want %q", log.Level, "info")
	}
	if log.MaxSizeMB != 10 {
		t.Errorf("MaxSizeMB = %d, want 10", log.MaxSizeMB)
	}
	if log.MaxBackups != 3 {
		t.Errorf("MaxBackups = %d, want 3", log.MaxBackups)
	}
}

func TestLoad_BasicConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	configContent := `
[lastfm]
api_key = "lf-key"

[spotify]
client_id = "sp-id"
client_secret = "sp-secret"

[piped]
instance = "https://piped.example.org/"
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lastfm.APIKey != "lf-key" {
		t.Errorf("Lastfm.APIKey = %q, want %q", cfg.Lastfm.APIKey, "lf-key")
	}
	if !cfg.HasSpotifyConfig() {
		t.Error("HasSpotifyConfig() = false")
	}

	// Check that instance trailing slash is removed
	if cfg.Piped.Instance != "https://piped.example.org" {
		t.Errorf("Piped.Instance = %q, want %q", cfg.Piped.Instance, "https://piped.example.org")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte("invalid = [[["), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	if _, err = Load(); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}
