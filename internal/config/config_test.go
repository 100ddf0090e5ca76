package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/music/library/albums",
			expected: filepath.Join(home, "music", "library", "albums"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.DataDir == "" {
		t.Error("expected default data dir")
	}
	if cfg.CacheDir == "" {
		t.Error("expected default cache dir")
	}
	if cfg.DefaultVolume != 1.0 {
		t.Errorf("default volume = %v, want 1.0", cfg.DefaultVolume)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("default debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		DataDir:       "/srv/aria",
		DefaultVolume: 0.5,
		Log:           LogConfig{Level: "debug"},
		Watch:         WatchConfig{DebounceMS: 2000},
	}
	applyDefaults(cfg)

	if cfg.DataDir != "/srv/aria" {
		t.Errorf("data dir = %q, want /srv/aria", cfg.DataDir)
	}
	if cfg.DefaultVolume != 0.5 {
		t.Errorf("volume = %v, want 0.5", cfg.DefaultVolume)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Watch.Debounce)
	}
}

func TestVolumeOutOfRangeFallsBack(t *testing.T) {
	for _, v := range []float64{-0.1, 0, 1.5} {
		cfg := &Config{DefaultVolume: v}
		applyDefaults(cfg)
		if cfg.DefaultVolume != 1.0 {
			t.Errorf("volume %v: got %v, want 1.0", v, cfg.DefaultVolume)
		}
	}
}
