package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BoardPath != "maps/goblin_cave.yaml" {
		t.Fatalf("board = %q, want %q", cfg.BoardPath, "maps/goblin_cave.yaml")
	}
	if cfg.ImageTimeout != 10*time.Second {
		t.Fatalf("image timeout = %v, want 10s", cfg.ImageTimeout)
	}
	if !cfg.Audio || cfg.Volume != -1 {
		t.Fatalf("audio = %v volume = %v, want true -1", cfg.Audio, cfg.Volume)
	}
	if cfg.MinCellSizePx != 16 || cfg.MaxCellSizePx != 96 || cfg.ZoomStepPx != 8 {
		t.Fatalf("zoom = %v..%v step %v, want 16..96 step 8", cfg.MinCellSizePx, cfg.MaxCellSizePx, cfg.ZoomStepPx)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TABLEMAP_BOARD", "maps/crypt.yaml")
	t.Setenv("TABLEMAP_AUDIO", "false")
	t.Setenv("TABLEMAP_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BoardPath != "maps/crypt.yaml" || cfg.Audio || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v, want overrides applied", cfg)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("TABLEMAP_WINDOW_WIDTH", "wide")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("err = %v, want parse env prefix", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty board", mutate: func(c *Config) { c.BoardPath = "" }},
		{name: "inverted zoom", mutate: func(c *Config) { c.MinCellSizePx, c.MaxCellSizePx = 50, 20 }},
		{name: "zero step", mutate: func(c *Config) { c.ZoomStepPx = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.WindowWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
