package kernel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{0, 0, 0, 2, -1, 3, -4, 5, 1}}
	min, max, ok := m.Bounds()
	if !ok {
		t.Fatal("Bounds() ok = false for non-empty mesh")
	}
	if min != [3]float32{-4, -1, 0} {
		t.Errorf("min = %v, want [-4 -1 0]", min)
	}
	if max != [3]float32{2, 5, 3} {
		t.Errorf("max = %v, want [2 5 3]", max)
	}

	if _, _, ok := (&Mesh{}).Bounds(); ok {
		t.Error("Bounds() ok = true for empty mesh")
	}
}

// --- Stub solid: an analytic ball used to exercise helpers ---

type ballSolid struct {
	r float64
}

func (b ballSolid) BoundingBox() (min, max [3]float64) {
	return [3]float64{-b.r, -b.r, -b.r}, [3]float64{b.r, b.r, b.r}
}

func (b ballSolid) Classify(p mgl64.Vec3) Location {
	d := p.Len() - b.r
	switch {
	case d > SurfaceTolerance:
		return Outside
	case d < -SurfaceTolerance:
		return Inside
	default:
		return Surface
	}
}

func (b ballSolid) DistanceToIn(p mgl64.Vec3) float64  { return math.Max(p.Len()-b.r, 0) }
func (b ballSolid) DistanceToOut(p mgl64.Vec3) float64 { return math.Max(b.r-p.Len(), 0) }

func (b ballSolid) SurfacePoint(rng *rand.Rand) mgl64.Vec3 {
	v := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	return v.Normalize().Mul(b.r)
}

var _ Solid = ballSolid{}

func TestEstimateVolume(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	got := EstimateVolume(ballSolid{r: 1}, 200000, rng)
	want := 4.0 / 3.0 * math.Pi
	if math.Abs(got-want)/want > 0.02 {
		t.Errorf("EstimateVolume = %f, want ~%f", got, want)
	}
	if v := EstimateVolume(ballSolid{r: 1}, 0, rng); v != 0 {
		t.Errorf("EstimateVolume with n=0 = %f, want 0", v)
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Outside, "outside"},
		{Surface, "surface"},
		{Inside, "inside"},
		{Location(9), "Location(9)"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("Location(%d).String() = %q, want %q", int(tt.loc), got, tt.want)
		}
	}
}

func TestUnitScale(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"", 1},
		{"mm", 1},
		{"cm", 10},
		{"M", 1000},
		{"inch", 25.4},
		{"in", 25.4},
	}
	for _, tt := range tests {
		got, err := UnitScale(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("UnitScale(%q) = %g, %v; want %g", tt.name, got, err, tt.want)
		}
	}
	if _, err := UnitScale("furlong"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("UnitScale(furlong) err = %v, want ErrUnknownUnit", err)
	}
}
