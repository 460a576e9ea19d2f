package app

import (
	"context"
	"fmt"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/overlap"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/chazu/geoview/pkg/tessellate"
)

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	PartName  string    `json:"partName"`
	Color     string    `json:"color"`
	Opacity   float32   `json:"opacity"`
	Highlight bool      `json:"highlight"`
}

// OverlapData describes one overlap for the frontend.
type OverlapData struct {
	ID        string     `json:"id"`
	Placement string     `json:"placement"`
	Partner   string     `json:"partner"`
	Kind      string     `json:"kind"`
	Point     [3]float64 `json:"point"`
	Depth     float64    `json:"depth"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Overlaps []OverlapData   `json:"overlaps"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

func newEvalResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Overlaps: []OverlapData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// Evaluate takes scene source and returns meshes, overlaps and errors.
// This is the primary binding called by the frontend editor. It never
// returns a Go error; every failure is reported in Errors.
func (a *App) Evaluate(source string) EvalResult {
	result := newEvalResult()
	fail := func(msg string) EvalResult {
		result.Errors = append(result.Errors, EvalErrorData{Message: msg})
		return result
	}

	// Step 1: evaluate the source into a placement tree.
	ev, err := a.engine.Evaluate(a.ctx, source)
	if err != nil {
		a.log.Error("evaluate failed", "err", err)
		return fail(err.Error())
	}
	for _, w := range ev.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.String()})
	}
	if len(ev.Errors) > 0 {
		for _, e := range ev.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	if ev.Root == nil {
		return result
	}

	// Step 2: construct; validation, transparency, overlaps, highlights.
	c, err := a.Construct(a.ctx, ev.Root)
	if err != nil {
		a.log.Warn("construct failed", "err", err)
		return fail(err.Error())
	}
	for _, w := range c.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}

	// Step 3: tessellate every visible placement, highlights included.
	meshes, err := a.Meshes(a.ctx, c.Root)
	if err != nil {
		a.log.Error("tessellate failed", "err", err)
		return fail("tessellation failed: " + err.Error())
	}
	result.Meshes = append(result.Meshes, meshes...)
	result.Overlaps = append(result.Overlaps, Overlaps(c.Registry)...)
	return result
}

// Meshes tessellates the visible placements of root in pre-order.
func (a *App) Meshes(ctx context.Context, root *scene.Placement) ([]MeshData, error) {
	meshes, err := tessellate.Tessellate(ctx, root, a.kernel)
	if err != nil {
		return nil, err
	}
	out := make([]MeshData, 0, len(meshes))
	for _, m := range meshes {
		out = append(out, meshData(m))
	}
	return out, nil
}

// Overlaps converts the registry contents for serialization.
func Overlaps(reg *overlap.Registry) []OverlapData {
	recs := reg.Records()
	out := make([]OverlapData, 0, len(recs))
	for _, rec := range recs {
		out = append(out, overlapData(rec))
	}
	return out
}

func meshData(m *kernel.Mesh) MeshData {
	return MeshData{
		Vertices:  m.Vertices,
		Normals:   m.Normals,
		Indices:   m.Indices,
		PartName:  m.PartName,
		Color:     hexColor(m.RGBA),
		Opacity:   m.RGBA[3],
		Highlight: m.Synthetic,
	}
}

func overlapData(rec overlap.Record) OverlapData {
	return OverlapData{
		ID:        rec.ID.String(),
		Placement: rec.Placement.Path(),
		Partner:   rec.Partner.Path(),
		Kind:      rec.Kind.String(),
		Point:     [3]float64(rec.Point),
		Depth:     rec.Depth,
	}
}

// hexColor formats the RGB part of c as #rrggbb.
func hexColor(c [4]float32) string {
	b := func(v float32) int {
		return int(max(0, min(1, v))*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", b(c[0]), b(c[1]), b(c[2]))
}
