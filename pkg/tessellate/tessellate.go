// Package tessellate walks a placement tree and produces triangle meshes
// using a geometry kernel. One mesh is produced per visible placement, in
// world coordinates, carrying the placement's display colour.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
)

// transformStack accumulates placement transforms during traversal. The top
// of the stack is the transform from the current placement's frame to the
// world frame.
type transformStack struct {
	frames []kernel.Transform
}

func newTransformStack() *transformStack {
	return &transformStack{frames: []kernel.Transform{kernel.Identity()}}
}

func (ts *transformStack) push(t kernel.Transform) {
	ts.frames = append(ts.frames, ts.top().Mul(t))
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 1 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

func (ts *transformStack) top() kernel.Transform {
	return ts.frames[len(ts.frames)-1]
}

// Tessellate walks the tree below root and returns one mesh per visible
// placement in pre-order. Placements with Vis.Visible false are skipped but
// their children are still visited. The tessellator is read-only and never
// mutates the tree.
func Tessellate(ctx context.Context, root *scene.Placement, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if root == nil {
		return nil, nil
	}
	var meshes []*kernel.Mesh
	if err := walkNode(ctx, k, root, newTransformStack(), &meshes); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return meshes, nil
}

// walkNode pushes p's transform, meshes p, recurses into its children, then
// pops.
func walkNode(ctx context.Context, k kernel.Kernel, p *scene.Placement, ts *transformStack, out *[]*kernel.Mesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ts.push(p.Transform)
	defer ts.pop()

	if p.Vis.Visible && p.Solid != nil {
		m, err := meshPlacement(k, p, ts.top())
		if err != nil {
			return err
		}
		*out = append(*out, m)
	}

	for _, c := range p.Children {
		if c == nil {
			continue
		}
		if err := walkNode(ctx, k, c, ts, out); err != nil {
			return err
		}
	}
	return nil
}

func meshPlacement(k kernel.Kernel, p *scene.Placement, world kernel.Transform) (*kernel.Mesh, error) {
	solid := p.Solid
	if !world.IsIdentity() {
		solid = k.Transform(solid, world)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed for %s: %w", p.Path(), err)
	}
	mesh.PartName = p.Path()
	mesh.RGBA = p.Vis.Color.RGBA()
	mesh.Synthetic = p.Synthetic
	return mesh, nil
}
