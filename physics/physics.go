package physics

import "github.com/go-gl/mathgl/mgl32"

// Handle identifies one body inside the physics collaborator. The simulation
// core never dereferences handles itself; it only passes them back to the
// collaborator, e.g. to exclude an actor's own body from its ground probes.
type Handle uint64

// NoHandle excludes nothing.
const NoHandle Handle = 0

// RayHit describes the first intersection of a probe ray with the world.
type RayHit struct {
	Point        mgl32.Vec3
	Normal       mgl32.Vec3
	TimeOfImpact float32
}

// RayCaster is the minimum query capability the simulation requires from a
// physics engine. Implementations must return ok=false rather than panic when
// the query cannot be answered; the caller treats that as "no hit".
type RayCaster interface {
	CastRay(origin, dir mgl32.Vec3, maxDist float32, exclude Handle) (RayHit, bool)
}

// Body is the mutable state contract for one rigid body. The simulation
// drives position and velocity through these setters once per tick.
type Body interface {
	Handle() Handle
	Position() mgl32.Vec3
	SetPosition(pos mgl32.Vec3)
	Velocity() mgl32.Vec3
	SetVelocity(vel mgl32.Vec3)
	Orientation() mgl32.Quat
	SetOrientation(rot mgl32.Quat)
}

// ContactEvent is one edge of the collaborator's collision event stream.
// Started is true when the pair begins touching and false when it separates.
type ContactEvent struct {
	A, B    Handle
	Started bool
}
