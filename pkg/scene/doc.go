// Package scene defines the placement tree for geoview.
//
// A scene is a finite tree of placements. Each placement binds a solid to a
// transform relative to its parent and owns its children in order. Display
// attributes (colour, opacity, flagged state) are the only mutable state and
// are written by the display and overlap passes.
package scene
