// Package config loads report studio settings from a TOML file, a .env file
// and STUDIO_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
	DriverFile     = "file"
)

// Config holds application configuration.
type Config struct {
	DataDir string        `toml:"data_dir"`
	Storage StorageConfig `toml:"storage"`
	Editor  EditorConfig  `toml:"editor"`
	Log     LogConfig     `toml:"log"`
	// MetricsAddr enables a Prometheus /metrics listener when set.
	MetricsAddr string `toml:"metrics_addr"`
}

// StorageConfig selects and configures the document backend.
type StorageConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"` // sqlite file or file-store directory
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	URI      string `toml:"uri"` // full connection string, wins over the fields above
}

// EditorConfig tunes the in-memory engine.
type EditorConfig struct {
	HistoryDepth int `toml:"history_depth"`
	DefaultZoom  int `toml:"default_zoom"`
	// AutosaveSchedule is a cron spec for history checkpoints; empty disables it.
	AutosaveSchedule string `toml:"autosave_schedule"`
	// WatchExternal reloads the open document when its file changes on disk.
	// Only the file driver supports it.
	WatchExternal bool `toml:"watch_external"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the built-in configuration. Storage.Path is derived from
// DataDir by Load when left empty.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir: dataDir,
		Storage: StorageConfig{Driver: DriverSQLite},
		Editor: EditorConfig{
			HistoryDepth:     50,
			DefaultZoom:      100,
			AutosaveSchedule: "@every 5m",
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultDataDir returns ~/.local/share/reportstudio, or a relative directory
// when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reportstudio"
	}
	return filepath.Join(home, ".local", "share", "reportstudio")
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reportstudio.toml"
	}
	return filepath.Join(home, ".config", "reportstudio", "config.toml")
}

// Load reads .env (if present), then the TOML file at path, then STUDIO_*
// overrides. A missing config file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("STUDIO_DATA_DIR", &c.DataDir)
	str("STUDIO_STORAGE_DRIVER", &c.Storage.Driver)
	str("STUDIO_STORAGE_PATH", &c.Storage.Path)
	str("STUDIO_STORAGE_URI", &c.Storage.URI)
	str("STUDIO_STORAGE_HOST", &c.Storage.Host)
	str("STUDIO_STORAGE_DATABASE", &c.Storage.Database)
	str("STUDIO_STORAGE_USER", &c.Storage.User)
	str("STUDIO_STORAGE_PASSWORD", &c.Storage.Password)
	str("STUDIO_AUTOSAVE_SCHEDULE", &c.Editor.AutosaveSchedule)
	str("STUDIO_LOG_LEVEL", &c.Log.Level)
	str("STUDIO_METRICS_ADDR", &c.MetricsAddr)

	for key, dst := range map[string]*int{
		"STUDIO_STORAGE_PORT":  &c.Storage.Port,
		"STUDIO_HISTORY_DEPTH": &c.Editor.HistoryDepth,
		"STUDIO_DEFAULT_ZOOM":  &c.Editor.DefaultZoom,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"STUDIO_WATCH_EXTERNAL": &c.Editor.WatchExternal,
		"STUDIO_LOG_PRETTY":     &c.Log.Pretty,
	} {
		if err := flag(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// fillDefaults derives values left empty by the file and environment.
func (c *Config) fillDefaults() {
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case DriverSQLite:
			c.Storage.Path = filepath.Join(c.DataDir, "reports.db")
		case DriverFile:
			c.Storage.Path = filepath.Join(c.DataDir, "reports")
		}
	}
	if c.Editor.HistoryDepth <= 0 {
		c.Editor.HistoryDepth = 50
	}
	if c.Editor.DefaultZoom == 0 {
		c.Editor.DefaultZoom = 100
	}
}

// Validate rejects unknown drivers and unsupported combinations.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongo, DriverFile:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Editor.WatchExternal && c.Storage.Driver != DriverFile {
		return fmt.Errorf("watch_external requires the %q storage driver", DriverFile)
	}
	return nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
