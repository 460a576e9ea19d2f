// Package config reads geoview settings from a TOML file.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Unknown keys are an error so typos do not pass silently.
//
//	[load]
//	schema = true
//
//	[overlap]
//	enabled    = true
//	resolution = 5000
//	tolerance  = 0.01
//	errmax     = 3
//	workers    = 4
//	seed       = 7
//
//	[display]
//	base_alpha = 0.75
//
//	[mesh]
//	cells = 200
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/geoview/pkg/display"
	"github.com/chazu/geoview/pkg/overlap"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// DefaultMeshCells is the marching cubes resolution used for mesh output.
const DefaultMeshCells = 200

// Config is the full set of file-configurable settings.
type Config struct {
	Load    Load    `toml:"load"`
	Overlap Overlap `toml:"overlap"`
	Display Display `toml:"display"`
	Mesh    Mesh    `toml:"mesh"`
}

// Load controls scene loading.
type Load struct {
	Schema bool `toml:"schema"`
}

// Overlap mirrors overlap.Options plus the switch that enables the check.
type Overlap struct {
	Enabled     bool    `toml:"enabled"`
	Resolution  int     `toml:"resolution"`
	Tolerance   float64 `toml:"tolerance"`
	ErrMax      int     `toml:"errmax"`
	Verbose     bool    `toml:"verbose"`
	Workers     int     `toml:"workers"`
	Seed        uint64  `toml:"seed"`
	ScaleFactor float64 `toml:"scale"`
}

// Display controls colours.
type Display struct {
	BaseAlpha float64 `toml:"base_alpha"`
}

// Mesh controls tessellation.
type Mesh struct {
	Cells int `toml:"cells"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	o := overlap.DefaultOptions()
	return Config{
		Overlap: Overlap{
			Resolution:  o.Resolution,
			Tolerance:   o.Tolerance,
			ErrMax:      o.ErrMax,
			Workers:     o.Workers,
			Seed:        o.Seed,
			ScaleFactor: o.ScaleFactor,
		},
		Display: Display{BaseAlpha: display.DefaultBaseAlpha},
		Mesh:    Mesh{Cells: DefaultMeshCells},
	}
}

// LoadFile reads path over Default and validates the result.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := c.OverlapOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !(c.Display.BaseAlpha > 0 && c.Display.BaseAlpha <= 1) {
		return fmt.Errorf("%w: display.base_alpha must be in (0, 1], got %g", ErrInvalidConfig, c.Display.BaseAlpha)
	}
	if c.Mesh.Cells < 1 {
		return fmt.Errorf("%w: mesh.cells must be positive, got %d", ErrInvalidConfig, c.Mesh.Cells)
	}
	return nil
}

// OverlapOptions converts the overlap section to detector options. Logger
// and Metrics are left for the caller.
func (c Config) OverlapOptions() overlap.Options {
	return overlap.Options{
		Resolution:  c.Overlap.Resolution,
		Tolerance:   c.Overlap.Tolerance,
		ErrMax:      c.Overlap.ErrMax,
		Verbose:     c.Overlap.Verbose,
		Workers:     c.Overlap.Workers,
		Seed:        c.Overlap.Seed,
		ScaleFactor: c.Overlap.ScaleFactor,
	}
}
