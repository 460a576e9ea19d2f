package sdfx

import (
	"math"
	"math/rand/v2"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// projection budget for solids without an analytic surface sampler
	maxSampleAttempts = 64
	maxProjectSteps   = 32
)

// boxSampler picks a face with probability proportional to its area, then a
// uniform point on it. The fixed coordinate is set exactly to the face plane.
func boxSampler(half mgl64.Vec3) func(*rand.Rand) mgl64.Vec3 {
	areas := [3]float64{
		half[1] * half[2], // faces normal to X
		half[0] * half[2], // faces normal to Y
		half[0] * half[1], // faces normal to Z
	}
	total := areas[0] + areas[1] + areas[2]
	return func(rng *rand.Rand) mgl64.Vec3 {
		u := rng.Float64() * total
		axis := 2
		if u < areas[0] {
			axis = 0
		} else if u < areas[0]+areas[1] {
			axis = 1
		}
		var p mgl64.Vec3
		for i := 0; i < 3; i++ {
			p[i] = (2*rng.Float64() - 1) * half[i]
		}
		if rng.IntN(2) == 0 {
			p[axis] = -half[axis]
		} else {
			p[axis] = half[axis]
		}
		return p
	}
}

func sphereSampler(r float64) func(*rand.Rand) mgl64.Vec3 {
	return func(rng *rand.Rand) mgl64.Vec3 {
		for {
			v := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			if l := v.Len(); l > 1e-12 {
				return v.Mul(r / l)
			}
		}
	}
}

// cylinderSampler splits samples between the lateral surface and the two
// caps by area.
func cylinderSampler(height, r float64) func(*rand.Rand) mgl64.Vec3 {
	lateral := 2 * math.Pi * r * height
	caps := 2 * math.Pi * r * r
	hz := height / 2
	return func(rng *rand.Rand) mgl64.Vec3 {
		theta := 2 * math.Pi * rng.Float64()
		if rng.Float64()*(lateral+caps) < lateral {
			return mgl64.Vec3{
				r * math.Cos(theta),
				r * math.Sin(theta),
				(2*rng.Float64() - 1) * hz,
			}
		}
		rho := r * math.Sqrt(rng.Float64())
		z := hz
		if rng.IntN(2) == 0 {
			z = -hz
		}
		return mgl64.Vec3{rho * math.Cos(theta), rho * math.Sin(theta), z}
	}
}

// gradient estimates the field gradient with central differences.
func (s *sdfxSolid) gradient(p mgl64.Vec3, h float64) mgl64.Vec3 {
	var g mgl64.Vec3
	for i := 0; i < 3; i++ {
		a, b := p, p
		a[i] += h
		b[i] -= h
		g[i] = (s.eval(a) - s.eval(b)) / (2 * h)
	}
	return g
}

// projectedSurfacePoint draws a uniform point in the bounding box and walks
// it onto the zero level set with Newton steps along the gradient. The
// result is a surface point but not an area-uniform one.
func (s *sdfxSolid) projectedSurfacePoint(rng *rand.Rand) mgl64.Vec3 {
	size := s.max.Sub(s.min)
	best := s.min.Add(s.max).Mul(0.5)
	bestD := math.Inf(1)
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		p := mgl64.Vec3{
			s.min[0] + rng.Float64()*size[0],
			s.min[1] + rng.Float64()*size[1],
			s.min[2] + rng.Float64()*size[2],
		}
		p, d := s.project(p)
		if d <= kernel.SurfaceTolerance/2 {
			return p
		}
		if d < bestD {
			best, bestD = p, d
		}
	}
	return best
}

// offsetSurfacePoint moves p, a surface point of inner, out along the
// inner field's gradient by eps and then settles it onto s's level set.
func (s *sdfxSolid) offsetSurfacePoint(inner *sdfxSolid, p mgl64.Vec3, eps float64) mgl64.Vec3 {
	g := inner.gradient(p, s.step())
	if l := g.Len(); l > 1e-12 {
		p = p.Add(g.Mul(eps / l))
	}
	q, _ := s.project(p)
	return q
}

// step is the finite-difference width used for gradients.
func (s *sdfxSolid) step() float64 {
	return 1e-6 * math.Max(s.max.Sub(s.min).Len(), 1)
}

// project runs Newton steps from p towards the zero level set and returns
// the closest point reached along with its absolute field value.
func (s *sdfxSolid) project(p mgl64.Vec3) (mgl64.Vec3, float64) {
	h := s.step()
	tol := kernel.SurfaceTolerance / 2

	best, bestD := p, math.Inf(1)
	for step := 0; step < maxProjectSteps; step++ {
		d := s.eval(p)
		if math.Abs(d) < bestD {
			best, bestD = p, math.Abs(d)
		}
		if math.Abs(d) <= tol {
			break
		}
		g := s.gradient(p, h)
		gl2 := g.Dot(g)
		if gl2 < 1e-24 {
			break
		}
		p = p.Sub(g.Mul(d / gl2))
	}
	return best, bestD
}
