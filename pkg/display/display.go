// Package display sets the visual attributes of a placement tree: depth
// based transparency, and highlight placements for detected overlaps.
package display

import (
	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/overlap"
	"github.com/chazu/geoview/pkg/scene"
)

// DefaultBaseAlpha is the opacity factor applied per level of nesting.
const DefaultBaseAlpha = 0.75

// HighlightName is the name given to materialized overlap placements.
const HighlightName = "overlap_phys"

// HighlightColor is the colour of materialized overlap regions.
var HighlightColor = scene.Color{R: 1, G: 1, B: 0, A: 1}

// AssignTransparency colours p and its descendants white with an opacity
// that shrinks by baseAlpha for every level of nesting below them. A leaf
// is opaque; a node whose deepest subtree is k levels tall gets
// baseAlpha^k. The returned value is the opacity the parent of p should
// consider, p's own opacity times baseAlpha.
func AssignTransparency(p *scene.Placement, baseAlpha float64) float64 {
	a := 1.0
	for _, c := range p.Children {
		if c == nil {
			continue
		}
		a = min(a, AssignTransparency(c, baseAlpha))
	}
	p.Vis.Color = scene.Color{R: 1, G: 1, B: 1, A: a}
	return a * baseAlpha
}

// Materialize attaches one synthetic child per record to the placement the
// record was found on. The child carries the overlap region as its solid
// with an identity transform, since regions are built in that placement's
// frame. It returns the placements it created, in registry order.
//
// Materialize must run after detection has finished; the new placements
// are marked Synthetic so a later detection run skips them.
func Materialize(reg *overlap.Registry) []*scene.Placement {
	var out []*scene.Placement
	for _, rec := range reg.Records() {
		if rec.Placement == nil || rec.Region == nil {
			continue
		}
		hl := scene.New(HighlightName, rec.Region, kernel.Identity())
		hl.Synthetic = true
		hl.Vis.Color = HighlightColor
		rec.Placement.AddChild(hl)
		out = append(out, hl)
	}
	return out
}

// SetWorldColor makes the root faint so the structure inside stays visible.
func SetWorldColor(root *scene.Placement) {
	root.Vis.Color = scene.WorldColor
}
