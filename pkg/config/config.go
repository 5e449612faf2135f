// Package config provides configuration loading and management for dicomrender.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"dicomrender/pkg/render"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many files are rendered concurrently
		NumCores int `yaml:"numCores"`

		// FrameIndex selects the frame rendered from multi-frame objects
		FrameIndex int `yaml:"frameIndex"`
	} `yaml:"processing"`

	// Window overrides the window stored in each file. Both center and width
	// must be set, or neither.
	Window struct {
		Center *float64 `yaml:"center"`
		Width  *float64 `yaml:"width"`
	} `yaml:"window"`

	// Output parameters
	Output struct {
		// Dir is where rendered images and sidecars are written
		Dir string `yaml:"dir"`

		// ThumbnailSize is the longest edge of preview images; 0 disables them
		ThumbnailSize int `yaml:"thumbnailSize"`

		// WriteSidecars writes a YAML metadata file next to each image
		WriteSidecars bool `yaml:"writeSidecars"`

		// Compression is the PNG compression level: default, none, fast or best
		Compression string `yaml:"compression"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.FrameIndex = 0

	cfg.Output.Dir = "rendered"
	cfg.Output.ThumbnailSize = 0
	cfg.Output.WriteSidecars = true
	cfg.Output.Compression = "default"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks the configuration for values that cannot be used
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Processing.FrameIndex < 0 {
		return fmt.Errorf("processing.frameIndex must be non-negative, got %d", c.Processing.FrameIndex)
	}
	if (c.Window.Center == nil) != (c.Window.Width == nil) {
		return errors.New("window.center and window.width must be set together")
	}
	if w := c.WindowOverride(); w != nil && !w.Usable() {
		return fmt.Errorf("window must have a finite center and a positive finite width, got %v", *w)
	}
	if c.Output.ThumbnailSize < 0 {
		return fmt.Errorf("output.thumbnailSize must be non-negative, got %d", c.Output.ThumbnailSize)
	}
	if _, err := render.ParseCompression(c.Output.Compression); err != nil {
		return fmt.Errorf("output.compression: %w", err)
	}
	return nil
}

// WindowOverride returns the configured window, or nil when none is set
func (c *Config) WindowOverride() *render.Window {
	if c.Window.Center == nil || c.Window.Width == nil {
		return nil
	}
	return &render.Window{Center: *c.Window.Center, Width: *c.Window.Width}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
