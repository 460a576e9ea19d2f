package sdfx

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
)

func mustBox(t *testing.T, k *SdfxKernel, x, y, z float64) kernel.Solid {
	t.Helper()
	s, err := k.Box(x, y, z)
	if err != nil {
		t.Fatalf("Box(%g, %g, %g): %v", x, y, z, err)
	}
	return s
}

func TestBoxMesh(t *testing.T) {
	k := New(WithMeshCells(32))
	mesh, err := k.ToMesh(mustBox(t, k, 100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}

	min, max, ok := mesh.Bounds()
	if !ok {
		t.Fatal("Bounds() ok = false")
	}
	// Marching cubes lands within a cell of the true surface.
	const tol = 100.0 / 32
	want := [3]float32{50, 25, 12.5}
	for i := 0; i < 3; i++ {
		if math.Abs(float64(max[i]-want[i])) > tol || math.Abs(float64(min[i]+want[i])) > tol {
			t.Errorf("axis %d bounds [%f, %f], want ~[%f, %f]", i, min[i], max[i], -want[i], want[i])
		}
	}
}

func TestInvalidDimensions(t *testing.T) {
	k := New()
	tests := []struct {
		name string
		make func() (kernel.Solid, error)
	}{
		{"zero box", func() (kernel.Solid, error) { return k.Box(0, 1, 1) }},
		{"negative box", func() (kernel.Solid, error) { return k.Box(1, -1, 1) }},
		{"nan box", func() (kernel.Solid, error) { return k.Box(1, 1, math.NaN()) }},
		{"infinite sphere", func() (kernel.Solid, error) { return k.Sphere(math.Inf(1)) }},
		{"zero sphere", func() (kernel.Solid, error) { return k.Sphere(0) }},
		{"flat cylinder", func() (kernel.Solid, error) { return k.Cylinder(0, 1, 32) }},
		{"thin cylinder", func() (kernel.Solid, error) { return k.Cylinder(1, -2, 32) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.make()
			if !errors.Is(err, kernel.ErrInvalidDimension) {
				t.Errorf("err = %v, want ErrInvalidDimension", err)
			}
		})
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	min, max := mustBox(t, k, 100, 50, 25).BoundingBox()

	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}
	if min != expectMin || max != expectMax {
		t.Errorf("BoundingBox() = %v %v, want %v %v", min, max, expectMin, expectMax)
	}
}

func TestTransformBoundingBox(t *testing.T) {
	k := New()
	box := mustBox(t, k, 10, 10, 10)
	translated := k.Transform(box, kernel.Translation(mgl64.Vec3{100, 200, 300}))
	min, max := translated.BoundingBox()

	const tol = 1e-9
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotateBoundingBox(t *testing.T) {
	k := New()
	box := mustBox(t, k, 100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Transform(box, kernel.NewTransform(mgl64.Vec3{0, 0, 90}, mgl64.Vec3{}))
	min, max := rotated.BoundingBox()

	const tol = 1e-6
	if xExtent := max[0] - min[0]; math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if yExtent := max[1] - min[1]; math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
	if rotated.Classify(mgl64.Vec3{0, 40, 0}) != kernel.Inside {
		t.Error("point along +Y should be inside the rotated box")
	}
	if rotated.Classify(mgl64.Vec3{40, 0, 0}) != kernel.Outside {
		t.Error("point along +X should be outside the rotated box")
	}
}

func TestTransformAgreesWithClassify(t *testing.T) {
	k := New()
	box := mustBox(t, k, 3, 1, 2)
	tr := kernel.NewTransform(mgl64.Vec3{25, -60, 140}, mgl64.Vec3{1, 2, -3})
	placed := k.Transform(box, tr)

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 500; i++ {
		p := mgl64.Vec3{
			(rng.Float64() - 0.5) * 4,
			(rng.Float64() - 0.5) * 4,
			(rng.Float64() - 0.5) * 4,
		}
		if got, want := placed.Classify(tr.Apply(p)), box.Classify(p); got != want {
			t.Fatalf("Classify(T(%v)) = %v, local = %v", p, got, want)
		}
	}
}

func TestClassifyAndDistances(t *testing.T) {
	k := New()
	box := mustBox(t, k, 2, 2, 2)
	tests := []struct {
		name  string
		p     mgl64.Vec3
		loc   kernel.Location
		toIn  float64
		toOut float64
	}{
		{"centre", mgl64.Vec3{0, 0, 0}, kernel.Inside, 0, 1},
		{"near face", mgl64.Vec3{0.75, 0, 0}, kernel.Inside, 0, 0.25},
		{"on face", mgl64.Vec3{1, 0.2, -0.3}, kernel.Surface, 0, 0},
		{"outside", mgl64.Vec3{0, 3, 0}, kernel.Outside, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Classify(tt.p); got != tt.loc {
				t.Errorf("Classify = %v, want %v", got, tt.loc)
			}
			if got := box.DistanceToIn(tt.p); math.Abs(got-tt.toIn) > 1e-9 {
				t.Errorf("DistanceToIn = %f, want %f", got, tt.toIn)
			}
			if got := box.DistanceToOut(tt.p); math.Abs(got-tt.toOut) > 1e-9 {
				t.Errorf("DistanceToOut = %f, want %f", got, tt.toOut)
			}
		})
	}
}

func TestSurfacePoints(t *testing.T) {
	k := New()
	box := mustBox(t, k, 1, 2, 3)
	sphere, err := k.Sphere(1.5)
	if err != nil {
		t.Fatal(err)
	}
	cyl, err := k.Cylinder(4, 0.5, 32)
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := k.Scale(box, 1.25)
	if err != nil {
		t.Fatal(err)
	}
	placed := k.Transform(cyl, kernel.NewTransform(mgl64.Vec3{30, 40, 50}, mgl64.Vec3{5, 0, -1}))

	tests := []struct {
		name  string
		solid kernel.Solid
	}{
		{"box", box},
		{"sphere", sphere},
		{"cylinder", cyl},
		{"scaled box", scaled},
		{"transformed cylinder", placed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 1))
			for i := 0; i < 1000; i++ {
				p := tt.solid.SurfacePoint(rng)
				if loc := tt.solid.Classify(p); loc != kernel.Surface {
					t.Fatalf("sample %d at %v classified %v", i, p, loc)
				}
			}
		})
	}
}

func TestDerivedSurfacePoints(t *testing.T) {
	k := New()
	a := mustBox(t, k, 1, 1, 1)
	b := mustBox(t, k, 1, 1, 1)
	shift := kernel.Translation(mgl64.Vec3{0.5, 0, 0})

	inter, err := k.Intersect(a, b, shift)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	diff, err := k.Subtract(a, b, shift)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}

	for name, s := range map[string]kernel.Solid{"intersection": inter, "difference": diff} {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(3, 4))
			for i := 0; i < 200; i++ {
				p := s.SurfacePoint(rng)
				if d := s.DistanceToIn(p) + s.DistanceToOut(p); d > 1e-6 {
					t.Fatalf("sample %v is %g from the surface", p, d)
				}
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	k := New()
	a := mustBox(t, k, 1, 1, 1)
	b := mustBox(t, k, 1, 1, 1)

	inter, err := k.Intersect(a, b, kernel.Translation(mgl64.Vec3{0.5, 0, 0}))
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	min, max := inter.BoundingBox()
	if min != [3]float64{0, -0.5, -0.5} || max != [3]float64{0.5, 0.5, 0.5} {
		t.Errorf("BoundingBox() = %v %v", min, max)
	}

	rng := rand.New(rand.NewPCG(5, 6))
	if v := kernel.EstimateVolume(inter, 50000, rng); math.Abs(v-0.5) > 0.02 {
		t.Errorf("volume = %f, want ~0.5", v)
	}
}

func TestIntersectDisjoint(t *testing.T) {
	k := New()
	a := mustBox(t, k, 1, 1, 1)
	b := mustBox(t, k, 1, 1, 1)

	_, err := k.Intersect(a, b, kernel.Translation(mgl64.Vec3{3, 0, 0}))
	if !errors.Is(err, kernel.ErrEmptyRegion) {
		t.Errorf("err = %v, want ErrEmptyRegion", err)
	}
}

func TestSubtract(t *testing.T) {
	k := New()
	outer := mustBox(t, k, 4, 4, 4)
	inner := mustBox(t, k, 2, 2, 2)

	shell, err := k.Subtract(outer, inner, kernel.Identity())
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if loc := shell.Classify(mgl64.Vec3{}); loc != kernel.Outside {
		t.Errorf("centre classified %v, want outside", loc)
	}
	if loc := shell.Classify(mgl64.Vec3{1.5, 0, 0}); loc != kernel.Inside {
		t.Errorf("wall classified %v, want inside", loc)
	}

	// Subtracting a box that covers the protrusion only.
	poke, err := k.Subtract(inner, outer, kernel.Translation(mgl64.Vec3{2.5, 0, 0}))
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if loc := poke.Classify(mgl64.Vec3{0.8, 0, 0}); loc != kernel.Outside {
		t.Errorf("covered point classified %v, want outside", loc)
	}
	if loc := poke.Classify(mgl64.Vec3{0, 0, 0}); loc != kernel.Inside {
		t.Errorf("uncovered point classified %v, want inside", loc)
	}
}

func TestScaleContainsOriginal(t *testing.T) {
	k := New()
	box := mustBox(t, k, 1, 2, 3)
	inner := mustBox(t, k, 2, 2, 2)
	outer := mustBox(t, k, 4, 4, 4)

	// poke keeps x in [-1, 0.5] of inner but carries inner's full box.
	poke, err := k.Subtract(inner, outer, kernel.Translation(mgl64.Vec3{2.5, 0, 0}))
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}

	tests := []struct {
		name  string
		solid kernel.Solid
	}{
		{"moved box", k.Transform(box, kernel.Translation(mgl64.Vec3{10, -4, 2}))},
		{"difference", poke},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled, err := k.Scale(tt.solid, 1.001)
			if err != nil {
				t.Fatalf("Scale: %v", err)
			}
			rng := rand.New(rand.NewPCG(9, 9))
			for i := 0; i < 1000; i++ {
				p := tt.solid.SurfacePoint(rng)
				if loc := scaled.Classify(p); loc != kernel.Inside {
					t.Fatalf("surface point %v of original classified %v in scaled solid", p, loc)
				}
			}

			min, max := tt.solid.BoundingBox()
			smin, smax := scaled.BoundingBox()
			for i := 0; i < 3; i++ {
				if smin[i] >= min[i] || smax[i] <= max[i] {
					t.Errorf("axis %d: scaled box [%g, %g] does not enclose [%g, %g]", i, smin[i], smax[i], min[i], max[i])
				}
			}
		})
	}

	// The cut face at x = 0.5 moves outward, not toward the box centre.
	scaled, err := k.Scale(poke, 1.001)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if loc := scaled.Classify(mgl64.Vec3{0.5005, 0, 0}); loc != kernel.Inside {
		t.Errorf("point just past the cut face classified %v, want inside", loc)
	}
	if loc := scaled.Classify(mgl64.Vec3{0.502, 0, 0}); loc != kernel.Outside {
		t.Errorf("point well past the cut face classified %v, want outside", loc)
	}

	if _, err := k.Scale(box, 0); !errors.Is(err, kernel.ErrInvalidDimension) {
		t.Errorf("Scale(0) err = %v, want ErrInvalidDimension", err)
	}
}

type otherSolid struct{ kernel.Solid }

func TestForeignSolid(t *testing.T) {
	k := New()
	box := mustBox(t, k, 1, 1, 1)

	if _, err := k.Intersect(box, otherSolid{}, kernel.Identity()); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Intersect err = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Subtract(otherSolid{}, box, kernel.Identity()); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Subtract err = %v, want ErrForeignSolid", err)
	}
	if _, err := k.ToMesh(otherSolid{}); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("ToMesh err = %v, want ErrForeignSolid", err)
	}
}
