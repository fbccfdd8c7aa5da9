package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

const (
	PresentModeMailbox   = "mailbox"
	PresentModeImmediate = "immediate"
	PresentModeFifo      = "fifo"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	PosX uint32 `toml:"pos_x"`
	PosY uint32 `toml:"pos_y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Number of frame slots, i.e. how many frames may be in flight at once.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Present modes in order of preference. FIFO is always the fallback.
	// Listing immediate opts into tearing on surfaces without mailbox.
	PreferredPresentModes []string `toml:"preferred_present_modes"`
	// Enables the validation layers and the debug report callback.
	Validation bool `toml:"validation"`
	// Directory holding the compiled vert.spv and frag.spv.
	ShaderDir  string     `toml:"shader_dir"`
	ClearColor [4]float32 `toml:"clear_color"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type WatchConfig struct {
	// Rebuild the surface resources when a compiled shader changes on disk.
	Shaders bool `toml:"shaders"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Logging     LoggingConfig     `toml:"logging"`
	Watch       WatchConfig       `toml:"watch"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "Swapper",
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight:        2,
			PreferredPresentModes: []string{PresentModeMailbox},
			Validation:            false,
			ShaderDir:             "shaders",
			ClearColor:            [4]float32{0.0, 0.0, 0.2, 1.0},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Shaders: false,
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file is not
// an error: the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: window size must be non-zero, got %dx%d", ErrInvalidConfig, c.Application.Width, c.Application.Height)
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("%w: frames_in_flight must be in [1, 3], got %d", ErrInvalidConfig, c.Renderer.FramesInFlight)
	}
	for _, mode := range c.Renderer.PreferredPresentModes {
		switch mode {
		case PresentModeMailbox, PresentModeImmediate, PresentModeFifo:
		default:
			return fmt.Errorf("%w: unknown present mode %q", ErrInvalidConfig, mode)
		}
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
