// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Point queries come straight from the signed distance field: negative
// values are inside, positive values outside. Primitives know how to sample
// their own surface; derived solids project random points onto the zero
// level set.
package sdfx

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ kernel.Solid  = (*sdfxSolid)(nil)
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. The bounding box
// is tracked here rather than taken from sdfx so boolean results get tight
// boxes.
type sdfxSolid struct {
	s        sdf.SDF3
	min, max mgl64.Vec3
	sample   func(rng *rand.Rand) mgl64.Vec3 // nil: project onto the level set
	desc     string
}

func (s *sdfxSolid) String() string { return s.desc }

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	return [3]float64(s.min), [3]float64(s.max)
}

func (s *sdfxSolid) eval(p mgl64.Vec3) float64 {
	return s.s.Evaluate(toV3(p))
}

// Classify reports the location of p using the sign of the distance field.
func (s *sdfxSolid) Classify(p mgl64.Vec3) kernel.Location {
	d := s.eval(p)
	switch {
	case d > kernel.SurfaceTolerance:
		return kernel.Outside
	case d < -kernel.SurfaceTolerance:
		return kernel.Inside
	default:
		return kernel.Surface
	}
}

// DistanceToIn returns the distance from an outside point to the surface.
func (s *sdfxSolid) DistanceToIn(p mgl64.Vec3) float64 {
	return math.Max(s.eval(p), 0)
}

// DistanceToOut returns the distance from an inside point to the surface.
func (s *sdfxSolid) DistanceToOut(p mgl64.Vec3) float64 {
	return math.Max(-s.eval(p), 0)
}

// SurfacePoint draws a random point on the surface.
func (s *sdfxSolid) SurfacePoint(rng *rand.Rand) mgl64.Vec3 {
	if s.sample != nil {
		return s.sample(rng)
	}
	return s.projectedSurfacePoint(rng)
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: defaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// unwrap extracts the underlying solid from a kernel.Solid.
func unwrap(s kernel.Solid) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, fmt.Errorf("%w: %T", kernel.ErrForeignSolid, s)
	}
	return ss, nil
}

func toV3(p mgl64.Vec3) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func validDimension(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Box creates a box with the given full edge lengths, centred on the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	if !validDimension(x, y, z) {
		return nil, fmt.Errorf("%w: box %gx%gx%g", kernel.ErrInvalidDimension, x, y, z)
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	half := mgl64.Vec3{x / 2, y / 2, z / 2}
	return &sdfxSolid{
		s:      s,
		min:    half.Mul(-1),
		max:    half,
		sample: boxSampler(half),
		desc:   fmt.Sprintf("box(%gx%gx%g)", x, y, z),
	}, nil
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	if !validDimension(radius) {
		return nil, fmt.Errorf("%w: sphere radius %g", kernel.ErrInvalidDimension, radius)
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	r := mgl64.Vec3{radius, radius, radius}
	return &sdfxSolid{
		s:      s,
		min:    r.Mul(-1),
		max:    r,
		sample: sphereSampler(radius),
		desc:   fmt.Sprintf("sphere(r=%g)", radius),
	}, nil
}

// Cylinder creates a cylinder along Z, centred on the origin.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	if !validDimension(height, radius) {
		return nil, fmt.Errorf("%w: cylinder h=%g r=%g", kernel.ErrInvalidDimension, height, radius)
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	ext := mgl64.Vec3{radius, radius, height / 2}
	return &sdfxSolid{
		s:      s,
		min:    ext.Mul(-1),
		max:    ext,
		sample: cylinderSampler(height, radius),
		desc:   fmt.Sprintf("cylinder(h=%g r=%g)", height, radius),
	}, nil
}

// toM44 converts a rigid transform into an sdfx matrix.
func toM44(t kernel.Transform) sdf.M44 {
	x, y, z := t.EulerZYX()
	rot := sdf.RotateZ(z).Mul(sdf.RotateY(y)).Mul(sdf.RotateX(x))
	return sdf.Translate3d(toV3(t.Translation)).Mul(rot)
}

func (k *SdfxKernel) transform(s *sdfxSolid, t kernel.Transform) *sdfxSolid {
	if t.IsIdentity() {
		return s
	}
	min, max := transformBox(s.min, s.max, t)
	out := &sdfxSolid{
		s:    sdf.Transform3D(s.s, toM44(t)),
		min:  min,
		max:  max,
		desc: fmt.Sprintf("%s @ %s", s.desc, t),
	}
	if s.sample != nil {
		inner := s.sample
		out.sample = func(rng *rand.Rand) mgl64.Vec3 {
			return t.Apply(inner(rng))
		}
	}
	return out
}

// Transform places s in the frame t maps into.
func (k *SdfxKernel) Transform(s kernel.Solid, t kernel.Transform) kernel.Solid {
	ss, err := unwrap(s)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Transform: %v", err))
	}
	return k.transform(ss, t)
}

// Subtract returns a minus b, with b placed in a's frame by t.
func (k *SdfxKernel) Subtract(a, b kernel.Solid, t kernel.Transform) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, fmt.Errorf("subtract: %w", err)
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, fmt.Errorf("subtract: %w", err)
	}
	placed := k.transform(sb, t)
	return &sdfxSolid{
		s:    sdf.Difference3D(sa.s, placed.s),
		min:  sa.min,
		max:  sa.max,
		desc: fmt.Sprintf("(%s - %s)", sa.desc, placed.desc),
	}, nil
}

// Intersect returns the common volume of a and b, with b placed in a's
// frame by t. Disjoint bounding boxes yield kernel.ErrEmptyRegion.
func (k *SdfxKernel) Intersect(a, b kernel.Solid, t kernel.Transform) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, fmt.Errorf("intersect: %w", err)
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, fmt.Errorf("intersect: %w", err)
	}
	placed := k.transform(sb, t)

	var min, max mgl64.Vec3
	for i := 0; i < 3; i++ {
		min[i] = math.Max(sa.min[i], placed.min[i])
		max[i] = math.Min(sa.max[i], placed.max[i])
		if min[i] >= max[i] {
			return nil, fmt.Errorf("intersect %s with %s: %w", sa.desc, placed.desc, kernel.ErrEmptyRegion)
		}
	}
	return &sdfxSolid{
		s:    sdf.Intersect3D(sa.s, placed.s),
		min:  min,
		max:  max,
		desc: fmt.Sprintf("(%s & %s)", sa.desc, placed.desc),
	}, nil
}

// Scale grows s by offsetting its distance field outward by
// (factor-1) times the largest half-extent of its bounding box, which is how
// far a uniform scale about the box centre would move the farthest face.
// Every point of s stays inside the result, whatever the shape of s.
func (k *SdfxKernel) Scale(s kernel.Solid, factor float64) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	if !validDimension(factor) {
		return nil, fmt.Errorf("%w: scale factor %g", kernel.ErrInvalidDimension, factor)
	}

	half := ss.max.Sub(ss.min).Mul(0.5)
	eps := (factor - 1) * math.Max(half[0], math.Max(half[1], half[2]))
	grow := mgl64.Vec3{eps, eps, eps}

	out := &sdfxSolid{
		s:    sdf.Offset3D(ss.s, eps),
		min:  ss.min.Sub(grow),
		max:  ss.max.Add(grow),
		desc: fmt.Sprintf("scale(%s, %g)", ss.desc, factor),
	}
	if ss.sample != nil {
		inner := ss.sample
		out.sample = func(rng *rand.Rand) mgl64.Vec3 {
			return out.offsetSurfacePoint(ss, inner(rng), eps)
		}
	}
	return out, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("tomesh: %w", err)
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(ss.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// transformBox returns the axis-aligned box enclosing the 8 transformed
// corners of [min, max].
func transformBox(min, max mgl64.Vec3, t kernel.Transform) (mgl64.Vec3, mgl64.Vec3) {
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < 8; i++ {
		corner := mgl64.Vec3{min[0], min[1], min[2]}
		if i&1 != 0 {
			corner[0] = max[0]
		}
		if i&2 != 0 {
			corner[1] = max[1]
		}
		if i&4 != 0 {
			corner[2] = max[2]
		}
		p := t.Apply(corner)
		for j := 0; j < 3; j++ {
			lo[j] = math.Min(lo[j], p[j])
			hi[j] = math.Max(hi[j], p[j])
		}
	}
	return lo, hi
}
