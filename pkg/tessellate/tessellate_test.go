package tessellate_test

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/kernel/sdfx"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/chazu/geoview/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl64"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(sdfx.WithMeshCells(24))
}

func makeBox(t *testing.T, k kernel.Kernel, name string, x, y, z float64, tr kernel.Transform) *scene.Placement {
	t.Helper()
	s, err := k.Box(x, y, z)
	if err != nil {
		t.Fatalf("Box(%s): %v", name, err)
	}
	return scene.New(name, s, tr)
}

func at(x, y, z float64) kernel.Transform {
	return kernel.Translation(mgl64.Vec3{x, y, z})
}

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestSingleBox(t *testing.T) {
	k := newKernel()
	root := makeBox(t, k, "shelf", 600, 300, 18, kernel.Identity())

	meshes, err := tessellate.Tessellate(context.Background(), root, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", m.PartName)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
	if m.RGBA != scene.White.RGBA() {
		t.Errorf("expected white, got %v", m.RGBA)
	}
}

func TestNilRoot(t *testing.T) {
	meshes, err := tessellate.Tessellate(context.Background(), nil, newKernel())
	if err != nil || meshes != nil {
		t.Errorf("Tessellate(nil) = %v, %v", meshes, err)
	}
}

func TestTransformsCompose(t *testing.T) {
	k := newKernel()
	world := makeBox(t, k, "world", 100, 100, 100, kernel.Identity())
	outer := world.AddChild(makeBox(t, k, "outer", 20, 20, 20, at(30, 0, 0)))
	outer.AddChild(makeBox(t, k, "inner", 4, 4, 4, at(0, 5, 0)))

	meshes, err := tessellate.Tessellate(context.Background(), world, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(meshes))
	}

	names := []string{"world", "world/outer", "world/outer/inner"}
	for i, m := range meshes {
		if m.PartName != names[i] {
			t.Errorf("mesh %d: PartName %q, want %q", i, m.PartName, names[i])
		}
	}

	// inner sits at (30, 5, 0) in world space.
	min, max, ok := meshes[2].Bounds()
	if !ok {
		t.Fatal("inner mesh is empty")
	}
	cell := float32(4.0 / 24 * 2)
	want := [3][2]float32{{28, 32}, {3, 7}, {-2, 2}}
	for i := 0; i < 3; i++ {
		if !near(min[i], want[i][0], cell) || !near(max[i], want[i][1], cell) {
			t.Errorf("axis %d: bounds [%g, %g], want [%g, %g]", i, min[i], max[i], want[i][0], want[i][1])
		}
	}
}

func TestRotationApplied(t *testing.T) {
	k := newKernel()
	world := makeBox(t, k, "world", 100, 100, 100, kernel.Identity())
	world.AddChild(makeBox(t, k, "plank", 40, 4, 4, kernel.NewTransform(mgl64.Vec3{0, 0, 90}, mgl64.Vec3{})))

	meshes, err := tessellate.Tessellate(context.Background(), world, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	min, max, _ := meshes[1].Bounds()
	if dx, dy := max[0]-min[0], max[1]-min[1]; dy < 30 || dx > 10 {
		t.Errorf("rotated plank extent x=%g y=%g, want long along Y", dx, dy)
	}
}

func TestInvisibleSkipped(t *testing.T) {
	k := newKernel()
	world := makeBox(t, k, "world", 100, 100, 100, kernel.Identity())
	world.Vis.Visible = false
	hidden := world.AddChild(makeBox(t, k, "hidden", 10, 10, 10, kernel.Identity()))
	hidden.Vis.Visible = false
	hidden.AddChild(makeBox(t, k, "shown", 2, 2, 2, kernel.Identity()))

	meshes, err := tessellate.Tessellate(context.Background(), world, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 || meshes[0].PartName != "world/hidden/shown" {
		t.Fatalf("expected only world/hidden/shown, got %d meshes", len(meshes))
	}
}

func TestColorCarried(t *testing.T) {
	k := newKernel()
	world := makeBox(t, k, "world", 100, 100, 100, kernel.Identity())
	world.Vis.Color = scene.WorldColor
	a := world.AddChild(makeBox(t, k, "a", 10, 10, 10, kernel.Identity()))
	a.Flag()

	meshes, err := tessellate.Tessellate(context.Background(), world, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if meshes[0].RGBA != scene.WorldColor.RGBA() {
		t.Errorf("world colour %v", meshes[0].RGBA)
	}
	if meshes[1].RGBA != scene.FlagColor.RGBA() {
		t.Errorf("flagged colour %v", meshes[1].RGBA)
	}
}

func TestSyntheticCarried(t *testing.T) {
	k := newKernel()
	world := makeBox(t, k, "world", 100, 100, 100, kernel.Identity())
	a := world.AddChild(makeBox(t, k, "a", 10, 10, 10, kernel.Identity()))
	a.AddChild(makeBox(t, k, "mark", 2, 2, 2, kernel.Identity()))
	marker := a.AddChild(makeBox(t, k, "mark", 2, 2, 2, kernel.Identity()))
	marker.Synthetic = true

	meshes, err := tessellate.Tessellate(context.Background(), world, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 4 {
		t.Fatalf("expected 4 meshes, got %d", len(meshes))
	}
	// Both marks share the path world/a/mark; only the second is synthetic.
	for i, want := range []bool{false, false, false, true} {
		if meshes[i].Synthetic != want {
			t.Errorf("mesh %d (%s) Synthetic = %v, want %v", i, meshes[i].PartName, meshes[i].Synthetic, want)
		}
	}
}

func TestCancelled(t *testing.T) {
	k := newKernel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tessellate.Tessellate(ctx, makeBox(t, k, "world", 1, 1, 1, kernel.Identity()), k)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
