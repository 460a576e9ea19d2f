package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/geoview/pkg/kernel"
)

// ErrStop can be returned from a Walk callback to end the walk early
// without reporting an error.
var ErrStop = errors.New("scene: stop walk")

// Color is an RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Common colours.
var (
	White      = Color{1, 1, 1, 1}
	FlagColor  = Color{1, 0, 0, 0.5} // placement involved in an overlap
	WorldColor = Color{1, 1, 1, 0.1} // outermost container
)

// RGBA returns the colour as float32 components, suitable for mesh output.
func (c Color) RGBA() [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%.3g, %.3g, %.3g, %.3g)", c.R, c.G, c.B, c.A)
}

// Vis holds the mutable display attributes of a placement.
type Vis struct {
	Color   Color
	Flagged bool
	Visible bool
}

// Placement is a node in the scene tree.
type Placement struct {
	Name      string
	Solid     kernel.Solid
	Transform kernel.Transform // relative to the parent
	Children  []*Placement
	Vis       Vis

	// Synthetic marks placements added after loading, such as overlap
	// highlights. They are never checked for overlaps.
	Synthetic bool

	parent *Placement
}

// New creates a visible, white placement with no children.
func New(name string, solid kernel.Solid, t kernel.Transform) *Placement {
	return &Placement{
		Name:      name,
		Solid:     solid,
		Transform: t,
		Vis:       Vis{Color: White, Visible: true},
	}
}

// AddChild appends c to p's children and returns c.
func (p *Placement) AddChild(c *Placement) *Placement {
	c.parent = p
	p.Children = append(p.Children, c)
	return c
}

// Parent returns the enclosing placement, or nil for the root.
func (p *Placement) Parent() *Placement { return p.parent }

// IsRoot reports whether p has no parent.
func (p *Placement) IsRoot() bool { return p.parent == nil }

// Depth returns the number of ancestors of p.
func (p *Placement) Depth() int {
	d := 0
	for q := p.parent; q != nil; q = q.parent {
		d++
	}
	return d
}

// Path returns the slash-separated names from the root down to p.
func (p *Placement) Path() string {
	var names []string
	for q := p; q != nil; q = q.parent {
		names = append(names, q.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// WorldTransform composes transforms from the root down to p.
func (p *Placement) WorldTransform() kernel.Transform {
	t := p.Transform
	for q := p.parent; q != nil; q = q.parent {
		t = q.Transform.Mul(t)
	}
	return t
}

// Flag marks p as involved in an overlap and paints it with FlagColor.
func (p *Placement) Flag() {
	p.Vis.Flagged = true
	p.Vis.Color = FlagColor
}

// Walk visits p and its descendants in pre-order. Returning ErrStop from fn
// ends the walk and Walk returns nil. Nil children are skipped.
func (p *Placement) Walk(fn func(p *Placement, depth int) error) error {
	err := p.walk(fn, 0)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func (p *Placement) walk(fn func(*Placement, int) error, depth int) error {
	if err := fn(p, depth); err != nil {
		return err
	}
	for _, c := range p.Children {
		if c == nil {
			continue
		}
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the descendant at the given path, as produced by Path.
func (p *Placement) Find(path string) *Placement {
	var found *Placement
	_ = p.Walk(func(q *Placement, _ int) error {
		if q.Path() == path {
			found = q
			return ErrStop
		}
		return nil
	})
	return found
}

// Count returns the number of placements in the tree rooted at p.
func (p *Placement) Count() int {
	n := 0
	_ = p.Walk(func(*Placement, int) error {
		n++
		return nil
	})
	return n
}

// Flagged returns the flagged placements in pre-order.
func (p *Placement) Flagged() []*Placement {
	var out []*Placement
	_ = p.Walk(func(q *Placement, _ int) error {
		if q.Vis.Flagged {
			out = append(out, q)
		}
		return nil
	})
	return out
}
