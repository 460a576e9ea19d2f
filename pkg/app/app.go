// Package app is the viewer backend. It runs the construct sequence on a
// placement tree and exposes a JSON-friendly Evaluate binding that turns
// scene source into meshes and overlap reports for a frontend.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chazu/geoview/pkg/display"
	"github.com/chazu/geoview/pkg/engine"
	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/overlap"
	"github.com/chazu/geoview/pkg/scene"
)

// App holds the engine and kernel shared by every evaluation.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel kernel.Kernel
	log    *log.Logger

	checkOverlaps bool
	baseAlpha     float64
	overlap       overlap.Options
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithOverlapCheck turns overlap detection on or off. It is on by default.
func WithOverlapCheck(on bool) Option {
	return func(a *App) { a.checkOverlaps = on }
}

// WithOverlapOptions replaces the detector options.
func WithOverlapOptions(o overlap.Options) Option {
	return func(a *App) { a.overlap = o }
}

// WithBaseAlpha sets the per-level opacity factor.
func WithBaseAlpha(alpha float64) Option {
	return func(a *App) { a.baseAlpha = alpha }
}

// New creates an App that builds geometry with k.
func New(k kernel.Kernel, opts ...Option) *App {
	a := &App{
		ctx:           context.Background(),
		engine:        engine.NewEngine(k),
		kernel:        k,
		checkOverlaps: true,
		baseAlpha:     display.DefaultBaseAlpha,
		overlap:       overlap.DefaultOptions(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = log.Default()
	}
	if a.overlap.Logger == nil {
		a.overlap.Logger = a.log
	}
	return a
}

// Startup stores the context later Evaluate calls run under.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Construction is the outcome of Construct.
type Construction struct {
	Root       *scene.Placement
	Registry   *overlap.Registry
	Summary    overlap.Summary
	Highlights []*scene.Placement
	Warnings   []scene.ValidationError
}

// Construct prepares a loaded tree for display: it validates the tree,
// assigns depth transparency, runs overlap detection if enabled, attaches
// highlight placements for every overlap and finally fades the world.
//
// Construct mutates root. It must not run twice on the same tree.
func (a *App) Construct(ctx context.Context, root *scene.Placement) (*Construction, error) {
	warnings, err := scene.Check(root)
	if err != nil {
		return nil, err
	}

	c := &Construction{
		Root:     root,
		Registry: overlap.NewRegistry(),
		Warnings: warnings,
	}

	display.AssignTransparency(root, a.baseAlpha)

	if a.checkOverlaps {
		a.log.Debug("checking overlaps", "resolution", a.overlap.Resolution,
			"tolerance", a.overlap.Tolerance, "errmax", a.overlap.ErrMax)
		sum, err := overlap.New(a.kernel, a.overlap).Detect(ctx, root, c.Registry)
		if err != nil {
			return nil, fmt.Errorf("detect overlaps: %w", err)
		}
		c.Summary = sum
		c.Highlights = display.Materialize(c.Registry)
		a.log.Debug("overlap check done", "placements", sum.Placements,
			"overlaps", sum.Overlaps, "elapsed", sum.Duration)
	}

	display.SetWorldColor(root)
	return c, nil
}
