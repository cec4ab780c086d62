package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store drivers selectable via Config.StoreDriver.
const (
	DriverHTTP   = "http"
	DriverSQLite = "sqlite"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"BLOCKCAL_AUTH_USERNAME"`
	Password string `yaml:"password" json:"password" env:"BLOCKCAL_AUTH_PASSWORD"`
}

// SeedConfig describes optional recurring seed blocks for the local SQLite
// store. Rule is an RFC 5545 RRULE string (e.g. "FREQ=WEEKLY;BYDAY=MO,WE,FR").
type SeedConfig struct {
	Rule  string  `yaml:"rule" json:"rule"`
	Title string  `yaml:"title" json:"title"`
	Hours float64 `yaml:"hours" json:"hours"`
	Count int     `yaml:"count" json:"count"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" env:"BLOCKCAL_LISTEN"`

	// Timezone is the IANA zone whose offset the normalizer captures at
	// startup (e.g. "Europe/Berlin"). Empty means the system local zone.
	Timezone string `yaml:"timezone" json:"timezone" env:"BLOCKCAL_TIMEZONE"`

	// StoreDriver selects the event store backend: "http" or "sqlite".
	StoreDriver string `yaml:"store_driver" json:"store_driver" env:"BLOCKCAL_STORE_DRIVER"`

	// StoreURL is the base URL of the remote event store (http driver).
	StoreURL string `yaml:"store_url" json:"store_url" env:"BLOCKCAL_STORE_URL"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path" env:"BLOCKCAL_SQLITE_PATH"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for the
	// periodic cache refresh. Empty disables scheduled refresh.
	RefreshCron string `yaml:"refresh" json:"refresh" env:"BLOCKCAL_REFRESH"`

	// SnapshotPath is where --snapshot writes the rendered calendar PNG.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path" env:"BLOCKCAL_SNAPSHOT_PATH"`

	// Seed, if non-nil, seeds an empty sqlite store with recurring blocks.
	Seed *SeedConfig `yaml:"seed,omitempty" json:"seed,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "",
		StoreDriver:  DriverSQLite,
		SQLitePath:   "./var/blockcal.db",
		RefreshCron:  "*/15 * * * *",
		SnapshotPath: "./var/calendar.png",
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.StoreDriver {
	case DriverHTTP, DriverSQLite:
	case "":
		c.StoreDriver = DriverSQLite
	default:
		// Unknown driver; fall back to the local store.
		c.StoreDriver = DriverSQLite
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "./var/blockcal.db"
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = "./var/calendar.png"
	}
}

// Validate checks cross-field requirements after normalization.
func (c *Config) Validate() error {
	if c.StoreDriver == DriverHTTP && c.StoreURL == "" {
		return errors.New("store_url is required for the http store driver")
	}
	return nil
}

// Load loads configuration from the given YAML path, then overlays
// BLOCKCAL_* environment variables.
//
// If the file does not exist a default config is written there first (0600,
// parent directory created as needed) so a first run leaves an editable file
// behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Still return the defaults; the caller decides whether a
			// missing-on-disk config is fatal.
			return cfg, err
		}
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".blockcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
