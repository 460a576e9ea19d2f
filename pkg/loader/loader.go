// Package loader reads scene files into placement trees.
//
// Two formats are supported: the Lisp scene language evaluated by
// pkg/engine (.geo, .lisp, .zy) and a declarative YAML layout (.yaml, .yml).
// Every failure here is a configuration error; nothing is partially loaded.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chazu/geoview/pkg/engine"
	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
)

var (
	// ErrNoWorld is returned when a scene defines no world placement.
	ErrNoWorld = errors.New("loader: scene defines no world")

	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("loader: unsupported scene format")
)

// Format identifies a scene file syntax.
type Format string

const (
	FormatLisp Format = "lisp"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format implied by a file name's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".geo", ".lisp", ".zy":
		return FormatLisp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Options configures loading.
type Options struct {
	// Kernel builds the solids. Required.
	Kernel kernel.Kernel

	// Schema enables strict checking: unknown YAML fields are rejected and
	// tree warnings are promoted to errors.
	Schema bool

	// Logger receives load warnings. Nil discards them.
	Logger *log.Logger
}

// Load reads and parses the scene at path.
func Load(ctx context.Context, path string, opts Options) (*scene.Placement, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	root, err := Parse(ctx, data, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Parse builds a placement tree from in-memory scene source and validates it.
func Parse(ctx context.Context, data []byte, format Format, opts Options) (*scene.Placement, error) {
	if opts.Kernel == nil {
		return nil, errors.New("loader: no kernel configured")
	}

	var (
		root *scene.Placement
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = parseYAML(data, opts)
	case FormatLisp:
		root, err = parseLisp(ctx, data, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNoWorld
	}

	warnings, err := scene.Check(root)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		if opts.Schema {
			return nil, fmt.Errorf("%w: %v", scene.ErrInvalidTree, w)
		}
		logWarn(opts.Logger, "scene", "path", w.Path, "msg", w.Message)
	}
	return root, nil
}

func parseLisp(ctx context.Context, data []byte, opts Options) (*scene.Placement, error) {
	res, err := engine.NewEngine(opts.Kernel).Evaluate(ctx, string(data))
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		errs := make([]error, len(res.Errors))
		for i, e := range res.Errors {
			errs[i] = e
		}
		return nil, fmt.Errorf("evaluate scene: %w", errors.Join(errs...))
	}
	for _, w := range res.Warnings {
		logWarn(opts.Logger, "scene", "volume", w.Name, "msg", w.Message)
	}
	return res.Root, nil
}

func logWarn(l *log.Logger, msg string, keyvals ...any) {
	if l != nil {
		l.Warn(msg, keyvals...)
	}
}
