package kernel

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid motion: a rotation followed by a translation.
// The zero value is not valid; use Identity or NewTransform.
type Transform struct {
	Rotation    mgl64.Quat
	Translation mgl64.Vec3
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// Translation returns a pure translation by v.
func Translation(v mgl64.Vec3) Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Translation: v}
}

// NewTransform builds a transform from Euler angles in degrees (applied
// about X, then Y, then Z) followed by a translation.
func NewTransform(rotationDeg, translation mgl64.Vec3) Transform {
	qx := mgl64.QuatRotate(mgl64.DegToRad(rotationDeg[0]), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(rotationDeg[1]), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(rotationDeg[2]), mgl64.Vec3{0, 0, 1})
	return Transform{
		Rotation:    qz.Mul(qy).Mul(qx).Normalize(),
		Translation: translation,
	}
}

// Apply maps a point from the local frame into the frame t points into.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Translation)
}

// ApplyVector rotates a direction without translating it.
func (t Transform) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Rotation:    inv,
		Translation: inv.Rotate(t.Translation).Mul(-1),
	}
}

// Mul composes two transforms. The result applies u first, then t.
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Rotation:    t.Rotation.Mul(u.Rotation).Normalize(),
		Translation: t.Rotation.Rotate(u.Translation).Add(t.Translation),
	}
}

// Mat4 returns the homogeneous matrix of t.
func (t Transform) Mat4() mgl64.Mat4 {
	tr := mgl64.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	return tr.Mul4(t.Rotation.Mat4())
}

// IsIdentity reports whether t is the identity within floating point noise.
func (t Transform) IsIdentity() bool {
	q := t.Rotation
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return q.ApproxEqual(mgl64.QuatIdent()) && t.Translation.ApproxEqual(mgl64.Vec3{})
}

// IsFinite reports whether every component is a finite number and the
// rotation is a unit quaternion.
func (t Transform) IsFinite() bool {
	vals := []float64{
		t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2],
		t.Translation[0], t.Translation[1], t.Translation[2],
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(t.Rotation.Len()-1) < 1e-6
}

// EulerZYX returns the rotation as angles in radians about X, Y and Z such
// that R = Rz * Ry * Rx.
func (t Transform) EulerZYX() (x, y, z float64) {
	m := t.Rotation.Mat4()
	r20 := m.At(2, 0)
	if r20 > 1 {
		r20 = 1
	} else if r20 < -1 {
		r20 = -1
	}
	y = math.Asin(-r20)
	if math.Abs(r20) < 1-1e-12 {
		x = math.Atan2(m.At(2, 1), m.At(2, 2))
		z = math.Atan2(m.At(1, 0), m.At(0, 0))
		return x, y, z
	}
	// Gimbal lock: fold the X rotation into Z.
	x = 0
	z = math.Atan2(-m.At(0, 1), m.At(1, 1))
	return x, y, z
}

func (t Transform) String() string {
	x, y, z := t.EulerZYX()
	return fmt.Sprintf("rot(%.4g, %.4g, %.4g)deg at (%.6g, %.6g, %.6g)",
		mgl64.RadToDeg(x), mgl64.RadToDeg(y), mgl64.RadToDeg(z),
		t.Translation[0], t.Translation[1], t.Translation[2])
}
