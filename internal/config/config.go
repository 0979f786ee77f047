// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the window and terminal hosts.
type Config struct {
	BoardPath string `env:"TABLEMAP_BOARD" envDefault:"maps/goblin_cave.yaml"`
	BoardsDir string `env:"TABLEMAP_BOARDS_DIR" envDefault:"maps"`
	DBPath    string `env:"TABLEMAP_DB_PATH" envDefault:"tablemap.db"`
	AppName   string `env:"TABLEMAP_APP_NAME" envDefault:"tablemap"`

	LogLevel  string `env:"TABLEMAP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TABLEMAP_LOG_FORMAT" envDefault:"text"`

	Audio  bool    `env:"TABLEMAP_AUDIO" envDefault:"true"`
	Volume float64 `env:"TABLEMAP_VOLUME" envDefault:"-1"` // log2 gain

	ImageTimeout time.Duration `env:"TABLEMAP_IMAGE_TIMEOUT" envDefault:"10s"`

	WindowWidth  int `env:"TABLEMAP_WINDOW_WIDTH" envDefault:"1024"`
	WindowHeight int `env:"TABLEMAP_WINDOW_HEIGHT" envDefault:"768"`

	// Zoom limits for the host's +/- keys
	MinCellSizePx float64 `env:"TABLEMAP_MIN_CELL_PX" envDefault:"16"`
	MaxCellSizePx float64 `env:"TABLEMAP_MAX_CELL_PX" envDefault:"96"`
	ZoomStepPx    float64 `env:"TABLEMAP_ZOOM_STEP_PX" envDefault:"8"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	if c.BoardPath == "" {
		return fmt.Errorf("board path is required")
	}
	if c.MinCellSizePx <= 0 || c.MaxCellSizePx < c.MinCellSizePx {
		return fmt.Errorf("invalid zoom limits: min %v, max %v", c.MinCellSizePx, c.MaxCellSizePx)
	}
	if c.ZoomStepPx <= 0 {
		return fmt.Errorf("zoom step must be positive, got %v", c.ZoomStepPx)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.WindowWidth, c.WindowHeight)
	}
	return nil
}
