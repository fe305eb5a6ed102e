package orient

import (
	"github.com/apogee-mp/apogee/assert"
	"github.com/apogee-mp/apogee/game"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Basis is a right-handed orthonormal frame. It is the sole authority for
// what forward/right/up mean for movement input on the tick it is built.
type Basis struct {
	Forward mgl32.Vec3
	Right   mgl32.Vec3
	Up      mgl32.Vec3
}

var (
	worldForward = mgl32.Vec3{0, 0, 1}
	worldRight   = mgl32.Vec3{1, 0, 0}
)

// BasisFromUp builds a basis whose up is the given (unit) up vector and whose
// forward is the projection of the reference forward onto the plane
// perpendicular to up. Near-degenerate projections fall back to the world
// forward axis and then to the world right axis, so a valid basis always
// exists no matter how the actor is oriented relative to gravity.
func BasisFromUp(up, forward mgl32.Vec3) Basis {
	assert.IsTrue(math32.Abs(up.LenSqr()-1) < 1e-3, "orient: up vector is not unit length: %v", up)

	proj := game.ProjectOntoPlane(forward, up)
	if proj.LenSqr() < 0.1 {
		proj = game.ProjectOntoPlane(worldForward, up)
	}
	if proj.LenSqr() < 0.1 {
		proj = game.ProjectOntoPlane(worldRight, up)
	}

	f := proj.Normalize()
	return Basis{
		Forward: f,
		Right:   up.Cross(f),
		Up:      up,
	}
}

// Quat returns the orientation that rotates the identity frame (right +X,
// up +Y, forward +Z) into the basis.
func (b Basis) Quat() mgl32.Quat {
	m := mgl32.Mat4{
		b.Right.X(), b.Right.Y(), b.Right.Z(), 0,
		b.Up.X(), b.Up.Y(), b.Up.Z(), 0,
		b.Forward.X(), b.Forward.Y(), b.Forward.Z(), 0,
		0, 0, 0, 1,
	}
	return mgl32.Mat4ToQuat(m)
}

// MoveVector converts forward/left input axes into a world-space direction on
// the basis' tangent plane.
func (b Basis) MoveVector(forward, left float32) mgl32.Vec3 {
	v := b.Forward.Mul(forward).Add(b.Right.Mul(-left))
	if v.LenSqr() > 1 {
		v = v.Normalize()
	}
	return v
}

// Step blends the current orientation toward the basis by factor using
// spherical interpolation, rather than snapping, so a changing up direction
// never pops visibly.
func Step(current mgl32.Quat, target Basis, factor float32) mgl32.Quat {
	return mgl32.QuatSlerp(current, target.Quat(), factor).Normalize()
}
