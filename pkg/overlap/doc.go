// Package overlap finds placements that protrude from their container or
// intrude into a sibling.
//
// Detection is sampling based. For every placement below the root, points
// are drawn on the surface of its solid, mapped into the parent frame and
// classified against the parent and against every sibling. A point that
// lies outside the parent, or inside a sibling, by more than the tolerance
// marks an overlap. Each overlap is recorded in a Registry together with a
// region solid that covers it, so the caller can render the offending
// volume after the walk finishes.
//
// A clean result is not a proof: overlaps smaller than the sampling density
// can be missed. Raising Options.Resolution never hides an overlap found at
// a lower resolution with the same seed.
package overlap
