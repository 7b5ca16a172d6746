package badgekit

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Canvas defaults. The interactive preview is laid out at 400 units wide;
// exports are multiples of it.
const (
	DefaultCanvasWidth      = 400.0
	DefaultCanvasHeight     = 600.0
	DefaultExportMultiplier = 4.0
)

// PhotoSlot describes the circular photo frame on the badge. It drives the
// fallback default scale of the user photo when the node carries no
// recorded default scale.
type PhotoSlot struct {
	// Radius of the photo circle in canvas units. Zero derives it from the
	// canvas width as width / (2 * RadiusDivisor).
	Radius        float64 `yaml:"radius"`
	RadiusDivisor float64 `yaml:"radius_divisor"`
	// Padding multiplies the diameter to get the box the photo fills.
	Padding float64 `yaml:"padding"`
}

// BoxSize returns the side of the square the photo is fitted into.
func (p PhotoSlot) BoxSize(canvasWidth float64) float64 {
	r := p.Radius
	if r <= 0 && p.RadiusDivisor > 0 {
		r = canvasWidth / (2 * p.RadiusDivisor)
	}
	pad := p.Padding
	if pad <= 0 {
		pad = 1
	}
	return 2 * r * pad
}

// Config holds every tunable of the editor. Zero values are replaced by
// defaults in Normalize.
type Config struct {
	CanvasWidth      float64 `yaml:"canvas_width"`
	CanvasHeight     float64 `yaml:"canvas_height"`
	ExportMultiplier float64 `yaml:"export_multiplier"`

	HistoryCapacity int     `yaml:"history_capacity"`
	SnapThreshold   float64 `yaml:"snap_threshold"`
	DragDeadZone    float64 `yaml:"drag_dead_zone"`

	ResetDuration  time.Duration `yaml:"reset_duration"`
	// ResetStagger delays each node's reset after the previous one. Zero
	// uses the default; a negative value turns the cascade off.
	ResetStagger   time.Duration `yaml:"reset_stagger"`
	IntroDuration  time.Duration `yaml:"intro_duration"`
	IntroIntensity float64       `yaml:"intro_intensity"`
	IntroEnabled   bool          `yaml:"intro_enabled"`

	PhotoSlot PhotoSlot `yaml:"photo_slot"`

	// Defaults overrides the compiled default transform of named nodes.
	Defaults Layout `yaml:"defaults"`

	// MaxExportPixels bounds width*height of an export raster.
	MaxExportPixels int `yaml:"max_export_pixels"`

	Debug  bool         `yaml:"debug"`
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration the sample badge was designed for.
func DefaultConfig() Config {
	return Config{
		CanvasWidth:      DefaultCanvasWidth,
		CanvasHeight:     DefaultCanvasHeight,
		ExportMultiplier: DefaultExportMultiplier,
		HistoryCapacity:  DefaultHistoryCapacity,
		SnapThreshold:    DefaultSnapThreshold,
		DragDeadZone:     defaultDragDeadZone,
		ResetDuration:    DefaultResetDuration,
		ResetStagger:     DefaultResetStagger,
		IntroDuration:    DefaultIntroDuration,
		IntroIntensity:   DefaultIntroIntensity,
		IntroEnabled:     true,
		PhotoSlot: PhotoSlot{
			Radius:        70,
			RadiusDivisor: 2.5,
			Padding:       1.05,
		},
		MaxExportPixels: 64 << 20,
	}
}

// Normalize fills zero fields from DefaultConfig. A negative ResetStagger
// becomes zero.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = d.CanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = d.CanvasHeight
	}
	if c.ExportMultiplier <= 0 {
		c.ExportMultiplier = d.ExportMultiplier
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.SnapThreshold <= 0 {
		c.SnapThreshold = d.SnapThreshold
	}
	if c.DragDeadZone <= 0 {
		c.DragDeadZone = d.DragDeadZone
	}
	if c.ResetDuration <= 0 {
		c.ResetDuration = d.ResetDuration
	}
	switch {
	case c.ResetStagger == 0:
		c.ResetStagger = d.ResetStagger
	case c.ResetStagger < 0:
		c.ResetStagger = 0
	}
	if c.IntroDuration <= 0 {
		c.IntroDuration = d.IntroDuration
	}
	if c.IntroIntensity == 0 {
		c.IntroIntensity = d.IntroIntensity
	}
	if c.PhotoSlot == (PhotoSlot{}) {
		c.PhotoSlot = d.PhotoSlot
	}
	if c.MaxExportPixels <= 0 {
		c.MaxExportPixels = d.MaxExportPixels
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// ParseConfig decodes YAML on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.Normalize(), nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}
