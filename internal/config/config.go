package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // paths scanned for audio files
	DataDir        string   `koanf:"data_dir"`        // library database location
	CacheDir       string   `koanf:"cache_dir"`       // extracted cover art cache

	DefaultVolume float64 `koanf:"default_volume"` // 0.0 to 1.0

	Log   LogConfig   `koanf:"log"`
	Watch WatchConfig `koanf:"watch"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `koanf:"file"`
	Level      string `koanf:"level"`       // "debug", "info", "warn", "error"
	MaxSizeMB  int    `koanf:"max_size_mb"` // rotate threshold
	MaxBackups int    `koanf:"max_backups"`
}

// WatchConfig controls the library filesystem watcher.
type WatchConfig struct {
	Enabled    bool          `koanf:"enabled"`
	DebounceMS int           `koanf:"debounce_ms"` // quiet period before rescanning a changed file
	Debounce   time.Duration `koanf:"-"`
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

	applyDefaults(cfg)

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.CacheDir = expandPath(cfg.CacheDir)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, "aria")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(xdg.CacheHome, "aria")
	}
	if cfg.DefaultVolume <= 0 || cfg.DefaultVolume > 1 {
		cfg.DefaultVolume = 1.0
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(xdg.StateHome, "aria", "aria.log")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = 500
	}
	cfg.Watch.Debounce = time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
}

// DevMode reports whether development conveniences are enabled. It is
// an environment switch rather than a config key so a config file can
// never ship with it left on.
func DevMode() bool {
	return os.Getenv("ARIA_DEV") != ""
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/aria/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aria", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
