// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) provide solid primitives, point queries and
// boolean combination behind this interface. The overlap detector only
// consumes these capabilities; it never does solid mathematics itself.
package kernel

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// SurfaceTolerance is the half-thickness of the band around a solid's
// boundary inside which points classify as Surface, in model length units.
const SurfaceTolerance = 1e-9

var (
	// ErrEmptyRegion is returned when a boolean combination is provably empty.
	ErrEmptyRegion = errors.New("kernel: boolean result is empty")

	// ErrForeignSolid is returned when a solid from another kernel is passed in.
	ErrForeignSolid = errors.New("kernel: solid was not created by this kernel")

	// ErrInvalidDimension is returned for non-positive or non-finite sizes.
	ErrInvalidDimension = errors.New("kernel: invalid dimension")
)

// Location classifies a point against a solid.
type Location int

const (
	Outside Location = iota
	Surface
	Inside
)

func (l Location) String() string {
	switch l {
	case Outside:
		return "outside"
	case Surface:
		return "surface"
	case Inside:
		return "inside"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// Solid is an opaque, immutable handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)

	// Classify reports whether p lies inside, outside or on the boundary.
	Classify(p mgl64.Vec3) Location

	// DistanceToIn is the distance from an outside point to the boundary.
	// It is zero for points that are not outside.
	DistanceToIn(p mgl64.Vec3) float64

	// DistanceToOut is the distance from an inside point to the boundary.
	// It is zero for points that are not inside.
	DistanceToOut(p mgl64.Vec3) float64

	// SurfacePoint draws a random point on the boundary.
	SurfacePoint(rng *rand.Rand) mgl64.Vec3
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, centred on the origin.
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)

	// Boolean operations. t maps b's frame into a's frame.
	Subtract(a, b Solid, t Transform) (Solid, error)
	Intersect(a, b Solid, t Transform) (Solid, error)

	// Scale enlarges s by factor. The result always contains s.
	Scale(s Solid, factor float64) (Solid, error)

	// Transform places s in the frame that t maps into.
	Transform(s Solid, t Transform) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// EstimateVolume estimates the volume of s by sampling n uniform points in
// its bounding box.
func EstimateVolume(s Solid, n int, rng *rand.Rand) float64 {
	if n <= 0 {
		return 0
	}
	lo, hi := s.BoundingBox()
	size := mgl64.Vec3{hi[0] - lo[0], hi[1] - lo[1], hi[2] - lo[2]}
	boxVolume := size[0] * size[1] * size[2]
	if boxVolume <= 0 {
		return 0
	}

	hits := 0
	for i := 0; i < n; i++ {
		p := mgl64.Vec3{
			lo[0] + rng.Float64()*size[0],
			lo[1] + rng.Float64()*size[1],
			lo[2] + rng.Float64()*size[2],
		}
		if s.Classify(p) != Outside {
			hits++
		}
	}
	return boxVolume * float64(hits) / float64(n)
}
