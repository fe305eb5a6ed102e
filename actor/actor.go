package actor

import (
	"time"

	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/physics"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// Authority determines which part of the simulation owns an actor's state
// each tick: the local predictor, or the remote snapshot follower.
type Authority byte

const (
	AuthorityLocal Authority = iota
	AuthorityRemote
)

// Snapshot is one authoritative state update for an actor, as sent by the
// server. It is consumed by the reconciler or the remote simulator on the
// tick it arrives and is only retained as the actor's LastSnapshot for
// conflict-detection windows.
type Snapshot struct {
	ActorID     uint64
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Velocity    mgl32.Vec3
	Grounded    bool
	AckSequence uint32
	ServerTime  time.Time
	// Received is stamped by the session when the snapshot arrives, so the
	// trust window survives clock skew between client and server.
	Received time.Time
}

// Actor is one independently simulated body. Exactly one component of the
// simulation (predictor, remote simulator or reconciler) writes an actor's
// state per tick.
type Actor struct {
	ID        uint64
	Authority Authority
	// Body is the actor's handle inside the physics collaborator, excluded
	// from its own ground probes. Zero when no body exists yet.
	Body physics.Handle

	Position    mgl32.Vec3
	Orientation mgl32.Quat
	// Velocity is always expressed relative to the rest frame of the actor's
	// current field. It is re-expressed atomically with any field change.
	Velocity mgl32.Vec3
	Grounded bool

	// Field is the actor's current dominant gravity field. It always points
	// into the simulation's field tree.
	Field *gravity.Field
	// FieldChanges counts SOI transitions so remote observers can apply frame
	// changes in order.
	FieldChanges uint32

	// LastAckSeq is the last input sequence the server acknowledged.
	LastAckSeq uint32

	// LastSnapshot is the most recent authoritative update, kept for the
	// grounding-conflict windows. Nil until the first snapshot arrives.
	LastSnapshot *Snapshot

	// Radius and Height are the capsule-ish extents used for ground probes.
	Radius, Height float32
}

// New creates an actor at pos inside field with the default extents.
func New(id uint64, authority Authority, pos mgl32.Vec3, field *gravity.Field) *Actor {
	return &Actor{
		ID:          id,
		Authority:   authority,
		Position:    pos,
		Orientation: mgl32.QuatIdent(),
		Field:       field,
		Radius:      0.45,
		Height:      1.8,
	}
}

// Forward returns the actor's current forward vector.
func (a *Actor) Forward() mgl32.Vec3 {
	return a.Orientation.Rotate(mgl32.Vec3{0, 0, 1})
}

// Up returns the actor's current up vector.
func (a *Actor) Up() mgl32.Vec3 {
	return a.Orientation.Rotate(mgl32.Vec3{0, 1, 0})
}

// BBox returns the actor's bounding box in world space. The box is axis
// aligned in the actor's gravity basis only approximately; it is used for
// probe offsets, not collision resolution.
func (a *Actor) BBox() cube.BBox {
	return cube.Box(
		a.Position.X()-a.Radius,
		a.Position.Y(),
		a.Position.Z()-a.Radius,
		a.Position.X()+a.Radius,
		a.Position.Y()+a.Height,
		a.Position.Z()+a.Radius,
	)
}

// SnapshotRecent reports whether the actor has a snapshot received within
// window of now.
func (a *Actor) SnapshotRecent(now time.Time, window time.Duration) bool {
	return a.LastSnapshot != nil && now.Sub(a.LastSnapshot.Received) <= window
}

// DownwardSpeed returns the component of the actor's velocity along the
// gravity down direction at its position. Positive values fall.
func (a *Actor) DownwardSpeed() float32 {
	if a.Field == nil {
		return 0
	}
	return a.Velocity.Dot(a.Field.DownDirection(a.Position))
}
