package game

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ClampFloat clamps num into the closed interval [min, max].
func ClampFloat(num, min, max float32) float32 {
	if num < min {
		return min
	}
	return math32.Min(num, max)
}

// ProjectOntoPlane removes the component of v along the (unit) plane normal n.
func ProjectOntoPlane(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// ClampVecLen scales v down so its length does not exceed maxLen. Vectors
// already within the bound are returned unchanged.
func ClampVecLen(v mgl32.Vec3, maxLen float32) mgl32.Vec3 {
	lenSqr := v.LenSqr()
	if lenSqr <= maxLen*maxLen || lenSqr == 0 {
		return v
	}
	return v.Mul(maxLen / math32.Sqrt(lenSqr))
}

// MoveTowardsZero decays each tangential component of v toward zero by
// amount, without overshooting. Used for ground friction when there is no
// movement input.
func MoveTowardsZero(v mgl32.Vec3, amount float32) mgl32.Vec3 {
	out := v
	for i := 0; i < 3; i++ {
		switch {
		case out[i] > amount:
			out[i] -= amount
		case out[i] < -amount:
			out[i] += amount
		default:
			out[i] = 0
		}
	}
	return out
}
