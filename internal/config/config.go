// Package config loads the application configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Scan struct {
	WindowSeconds int `yaml:"window_seconds"`
}

// Window is the discovery scan duration.
func (s Scan) Window() time.Duration {
	return time.Duration(s.WindowSeconds) * time.Second
}

type Store struct {
	Path string `yaml:"path"`
}

type Printer struct {
	// DriverEnabled turns the structured print driver on; without it every
	// print goes through the raw command fallback.
	DriverEnabled bool `yaml:"driver_enabled"`
	// LabelWidthDots is the printhead width for rendered labels.
	LabelWidthDots int `yaml:"label_width_dots"`
}

type Permissions struct {
	// Model overrides the resolved platform permission model
	// (none|legacy|granular).
	Model string `yaml:"model"`
}

type Config struct {
	AppName     string      `yaml:"app_name"`
	Log         Log         `yaml:"log"`
	Scan        Scan        `yaml:"scan"`
	Store       Store       `yaml:"store"`
	Printer     Printer     `yaml:"printer"`
	Permissions Permissions `yaml:"permissions"`
}

func Default() Config {
	return Config{
		AppName: "fieldlink",
		Log:     Log{Level: "info", Format: "console"},
		Scan:    Scan{WindowSeconds: 10},
		Store:   Store{Path: "fieldlink.db"},
		Printer: Printer{DriverEnabled: true, LabelWidthDots: 384},
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Scan.WindowSeconds <= 0 {
		return Config{}, fmt.Errorf("config: scan window must be positive, got %d", cfg.Scan.WindowSeconds)
	}
	if cfg.Printer.LabelWidthDots <= 0 {
		return Config{}, fmt.Errorf("config: label width must be positive, got %d", cfg.Printer.LabelWidthDots)
	}
	return cfg, nil
}
