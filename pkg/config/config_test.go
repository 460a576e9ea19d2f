package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/geoview/pkg/overlap"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Overlap.Enabled {
		t.Error("overlap check should be off by default")
	}
	opts := cfg.OverlapOptions()
	want := overlap.DefaultOptions()
	if opts.Resolution != want.Resolution || opts.ErrMax != want.ErrMax ||
		opts.Tolerance != want.Tolerance || opts.ScaleFactor != want.ScaleFactor {
		t.Errorf("OverlapOptions() = %+v, want %+v", opts, want)
	}
}

func TestParseOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[overlap]
enabled = true
resolution = 5000
errmax = 3
workers = 4

[load]
schema = true
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Overlap.Enabled || cfg.Overlap.Resolution != 5000 || cfg.Overlap.ErrMax != 3 || cfg.Overlap.Workers != 4 {
		t.Errorf("overlap section = %+v", cfg.Overlap)
	}
	if !cfg.Load.Schema {
		t.Error("load.schema not applied")
	}
	if cfg.Overlap.ScaleFactor != overlap.DefaultScaleFactor {
		t.Errorf("scale = %g, want default", cfg.Overlap.ScaleFactor)
	}
	if cfg.Display.BaseAlpha != 0.75 || cfg.Mesh.Cells != DefaultMeshCells {
		t.Errorf("untouched sections changed: %+v %+v", cfg.Display, cfg.Mesh)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool // wraps ErrInvalidConfig
		want    string
	}{
		{"syntax", "[overlap\nresolution = 1", false, "parse config"},
		{"wrong type", "[overlap]\nresolution = \"many\"", false, "parse config"},
		{"unknown key", "[overlap]\nresolutoin = 10", true, "overlap.resolutoin"},
		{"unknown section", "[colour]\nred = 1", true, "colour"},
		{"zero resolution", "[overlap]\nresolution = 0", true, "resolution"},
		{"negative tolerance", "[overlap]\ntolerance = -0.5", true, "tolerance"},
		{"alpha too big", "[display]\nbase_alpha = 1.5", true, "base_alpha"},
		{"no mesh cells", "[mesh]\ncells = 0", true, "mesh.cells"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, ErrInvalidConfig); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidConfig) = %v, want %v (%v)", got, tt.invalid, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geoview.toml")
	if err := os.WriteFile(path, []byte("[overlap]\nseed = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Overlap.Seed != 99 {
		t.Errorf("seed = %d, want 99", cfg.Overlap.Seed)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}
}
