// Package config defines the peak finder's configuration and how it is
// loaded.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/twpayne/go-peaks/internal/report"
)

// Output formats.
const (
	FormatTable = report.FormatTable
	FormatCSV   = report.FormatCSV
)

// PresetCustom leaves the thresholds as configured.
const PresetCustom = "custom"

// A Preset is a named pair of prominence and dominance thresholds.
type Preset struct {
	Prominence float64
	Dominance  float64
}

// Presets are the built-in threshold presets.
var Presets = map[string]Preset{
	"himalaya":     {Prominence: 500, Dominance: 2000},
	"uiaa":         {Prominence: 30, Dominance: 100},
	"cartographic": {Prominence: 200, Dominance: 1000},
}

// Config contains process configuration.
type Config struct {
	// Preset selects threshold defaults, see Presets.
	Preset string `koanf:"preset"`

	// Prominence is the minimum prominence in meters.
	Prominence float64 `koanf:"prominence"`

	// Dominance is the minimum dominance in ground meters.
	Dominance float64 `koanf:"dominance"`

	// OrographicDominance is the minimum ratio of prominence to height, in
	// percent.
	OrographicDominance float64 `koanf:"orographic_dominance"`

	MinHeight   float64 `koanf:"min_height"`
	BorderWidth int     `koanf:"border_width"`

	// Exact enables exact saddle searches for candidates that pass the
	// straight line bound.
	Exact bool `koanf:"exact"`

	Concurrency   int           `koanf:"concurrency"`
	SaddleTimeout time.Duration `koanf:"saddle_timeout"`

	// CRS is an EPSG code overriding the raster's coordinate reference
	// system. Zero keeps the raster's.
	CRS int `koanf:"crs"`

	LogLevel    string `koanf:"log_level"`
	Format      string `koanf:"format"`
	MetricsAddr string `koanf:"metrics_addr"`
}

// New returns a Config with default values.
func New() *Config {
	himalaya := Presets["himalaya"]
	return &Config{
		Preset:      "himalaya",
		Prominence:  himalaya.Prominence,
		Dominance:   himalaya.Dominance,
		BorderWidth: 50,
		Exact:       true,
		Concurrency: runtime.GOMAXPROCS(0),
		LogLevel:    "info",
		Format:      FormatTable,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if c is not usable.
func (c *Config) Validate() error {
	switch {
	case c.Preset != PresetCustom && !hasPreset(c.Preset):
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, c.Preset)
	case c.Prominence < 0:
		return fmt.Errorf("%w: negative prominence %g", ErrInvalidConfig, c.Prominence)
	case c.Dominance < 0:
		return fmt.Errorf("%w: negative dominance %g", ErrInvalidConfig, c.Dominance)
	case c.OrographicDominance < 0 || c.OrographicDominance > 100:
		return fmt.Errorf("%w: orographic dominance %g out of range", ErrInvalidConfig, c.OrographicDominance)
	case c.MinHeight < 0:
		return fmt.Errorf("%w: negative minimum height %g", ErrInvalidConfig, c.MinHeight)
	case c.BorderWidth < 0:
		return fmt.Errorf("%w: negative border width %d", ErrInvalidConfig, c.BorderWidth)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency %d", ErrInvalidConfig, c.Concurrency)
	case c.SaddleTimeout < 0:
		return fmt.Errorf("%w: negative saddle timeout %s", ErrInvalidConfig, c.SaddleTimeout)
	case c.CRS < 0:
		return fmt.Errorf("%w: EPSG code %d", ErrInvalidConfig, c.CRS)
	case !slices.Contains([]string{FormatTable, FormatCSV}, c.Format):
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns c's log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func hasPreset(name string) bool {
	_, ok := Presets[name]
	return ok
}
