// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/nexus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete nexus-tui configuration.
type Config struct {
	// Backend holds connection settings for the Nexus RAG backend.
	Backend BackendConfig `toml:"backend"`

	// Watch holds auto-ingest settings.
	Watch WatchConfig `toml:"watch"`

	// UI holds presentation settings.
	UI UIConfig `toml:"ui"`
}

// BackendConfig contains backend connection settings.
type BackendConfig struct {
	// URL is the backend API base, including the version prefix.
	URL string `toml:"url"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for idempotent reads.
	MaxRetries int `toml:"max_retries"`
}

// WatchConfig contains auto-ingest settings.
type WatchConfig struct {
	// Enabled turns the drop-folder watcher on.
	Enabled bool `toml:"enabled"`
	// Dir is the watched directory. Empty means ~/.nexus/inbox.
	Dir string `toml:"dir"`
	// DebounceMillis is how long a file must sit unchanged before upload.
	DebounceMillis int `toml:"debounce_millis"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// TypewriterMillis is the per-character reveal delay when catching up to
	// the stream. Zero disables the effect.
	TypewriterMillis int `toml:"typewriter_millis"`
	// Markdown enables glamour rendering of assistant messages.
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://localhost:8000/api/v1",
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Watch: WatchConfig{
			Enabled:        false,
			DebounceMillis: 750,
		},
		UI: UIConfig{
			TypewriterMillis: 8,
			Markdown:         true,
		},
	}
}

// Dir returns the nexus state directory (~/.nexus), creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".nexus")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// Path returns the config file path under dir.
func Path(dir string) string {
	return filepath.Join(dir, "config.toml")
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads the config file under dir, layering it over the defaults and
// applying environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config atomically under dir.
func Save(cfg *Config, dir string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	// SECURITY: config never holds secrets today, but 0600 keeps that a
	// non-decision if it ever does.
	return util.AtomicWriteFile(Path(dir), buf.Bytes(), 0o600)
}

// ApplyEnvOverrides applies NEXUS_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEXUS_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("NEXUS_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
		c.Watch.Enabled = true
	}
	if v := os.Getenv("NEXUS_NO_MARKDOWN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.UI.Markdown = false
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL)
	}
	if c.Backend.TimeoutSecs <= 0 {
		return fmt.Errorf("backend.timeout_secs must be positive, got %d", c.Backend.TimeoutSecs)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries must not be negative, got %d", c.Backend.MaxRetries)
	}
	if c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("watch.debounce_millis must not be negative, got %d", c.Watch.DebounceMillis)
	}
	if c.UI.TypewriterMillis < 0 {
		return fmt.Errorf("ui.typewriter_millis must not be negative, got %d", c.UI.TypewriterMillis)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// WatchDebounce returns the watcher debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// TypewriterDelay returns the per-character reveal delay.
func (c *Config) TypewriterDelay() time.Duration {
	return time.Duration(c.UI.TypewriterMillis) * time.Millisecond
}
