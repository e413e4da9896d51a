package domain

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Quat is a rotation quaternion in w, x, y, z order.
type Quat [4]float64

// Vec3 is a translation vector.
type Vec3 [3]float64

// Mat4 is a row-major homogeneous transform.
type Mat4 [4][4]float64

// Transform places a node relative to its parent.
type Transform struct {
	Wxyz     Quat `json:"wxyz"`
	Position Vec3 `json:"position"`
}

// IdentityQuat is the rotation that does nothing.
var IdentityQuat = Quat{1, 0, 0, 0}

// IdentityTransform returns the transform with no rotation and no offset.
func IdentityTransform() Transform {
	return Transform{Wxyz: IdentityQuat}
}

// Validate checks that the rotation is a unit quaternion and that every
// component is finite.
func (t Transform) Validate() error {
	if !t.Position.Finite() {
		return fmt.Errorf("%w: position must be finite", ErrValidation)
	}
	if math.Abs(t.Wxyz.norm()-1) > 1e-6 {
		return fmt.Errorf("%w: rotation is not a unit quaternion", ErrValidation)
	}
	return nil
}

// Normalized returns q scaled to unit length. Zero and non-finite
// quaternions cannot represent a rotation.
func (q Quat) Normalized() (Quat, error) {
	n := q.norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return q, fmt.Errorf("%w: %v is not a rotation", ErrValidation, q)
	}
	return Quat{q[0] / n, q[1] / n, q[2] / n, q[3] / n}, nil
}

func (q Quat) norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

func (q Quat) mgl() mgl64.Quat {
	return mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}
}

func quatFromMgl(m mgl64.Quat) Quat {
	return Quat{m.W, m.V[0], m.V[1], m.V[2]}
}

// Mul returns the composed rotation q * r.
func (q Quat) Mul(r Quat) Quat {
	return quatFromMgl(q.mgl().Mul(r.mgl()))
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	r := q.mgl().Rotate(mgl64.Vec3(v))
	return Vec3(r)
}

// QuatExp maps a rotation vector (axis * angle, radians) to a quaternion.
func QuatExp(tangent Vec3) Quat {
	v := mgl64.Vec3(tangent)
	angle := v.Len()
	if angle < 1e-12 {
		return IdentityQuat
	}
	return quatFromMgl(mgl64.QuatRotate(angle, v.Mul(1/angle)))
}

// QuatFromMatrix extracts the rotation of the upper-left 3x3 block of m.
func QuatFromMatrix(m Mat4) Quat {
	rows := [4]mgl64.Vec4{}
	for i := range m {
		rows[i] = mgl64.Vec4(m[i])
	}
	q := mgl64.Mat4ToQuat(mgl64.Mat4FromRows(rows[0], rows[1], rows[2], rows[3])).Normalize()
	return quatFromMgl(q)
}

// Translation returns the translation column of m.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// Finite reports whether every component of v is a finite number.
func (v Vec3) Finite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
