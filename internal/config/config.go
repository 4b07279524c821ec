package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rrtimeline/internal/models"
)

// Config represents configuration data for the timeline service.
type Config struct {
	Addr          string                `yaml:"addr"`
	DataDirectory string                `yaml:"data_directory"`
	LogLevel      string                `yaml:"log_level"`
	LogFormat     string                `yaml:"log_format"`
	Chart         Chart                 `yaml:"chart"`
	Upstream      Upstream              `yaml:"upstream"`
	Processes     []models.ProcessEntry `yaml:"processes"`
}

// Chart configures the drawing surface.
type Chart struct {
	HostID       string  `yaml:"host_id"`
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Margin       float64 `yaml:"margin"`
	BarHeight    float64 `yaml:"bar_height"`
	TransitionMs int     `yaml:"transition_ms"`
	FrameMs      int     `yaml:"frame_ms"`
	Fill         string  `yaml:"fill"`
	Stroke       string  `yaml:"stroke"`
	StrokeWidth  string  `yaml:"stroke_width"`
}

// Upstream defines a remote rrtimeline node to mirror process entries from.
type Upstream struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	RefreshSec int    `yaml:"refresh_seconds"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		DataDirectory: filepath.Join(".dist", "data"),
		LogLevel:      "info",
		LogFormat:     "console",
		Chart: Chart{
			HostID:       "chart",
			Width:        960,
			Height:       480,
			Margin:       30,
			BarHeight:    10,
			TransitionMs: 500,
			FrameMs:      16,
			Fill:         "red",
			Stroke:       "black",
			StrokeWidth:  "1px",
		},
		Upstream: Upstream{
			RefreshSec: 5,
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()

	if cfg.Upstream.Enabled && strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return Config{}, errors.New("upstream base_url is required when upstream is enabled")
	}
	for i, p := range cfg.Processes {
		if strings.TrimSpace(p.Process) == "" {
			return Config{}, fmt.Errorf("process %d is missing a name", i)
		}
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = def.DataDirectory
	}
	if cfg.Chart.HostID == "" {
		cfg.Chart.HostID = def.Chart.HostID
	}
	if cfg.Chart.Width <= 0 {
		cfg.Chart.Width = def.Chart.Width
	}
	if cfg.Chart.Height <= 0 {
		cfg.Chart.Height = def.Chart.Height
	}
	if cfg.Chart.Margin < 0 {
		cfg.Chart.Margin = def.Chart.Margin
	}
	if cfg.Chart.BarHeight <= 0 {
		cfg.Chart.BarHeight = def.Chart.BarHeight
	}
	if cfg.Chart.TransitionMs < 0 {
		cfg.Chart.TransitionMs = def.Chart.TransitionMs
	}
	if cfg.Chart.FrameMs <= 0 {
		cfg.Chart.FrameMs = def.Chart.FrameMs
	}
	if cfg.Chart.Fill == "" {
		cfg.Chart.Fill = def.Chart.Fill
	}
	if cfg.Chart.Stroke == "" {
		cfg.Chart.Stroke = def.Chart.Stroke
	}
	if cfg.Chart.StrokeWidth == "" {
		cfg.Chart.StrokeWidth = def.Chart.StrokeWidth
	}
	if cfg.Upstream.RefreshSec <= 0 {
		cfg.Upstream.RefreshSec = def.Upstream.RefreshSec
	}
}
