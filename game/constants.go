package game

import "time"

const (
	// TicksPerSecond is the fixed simulation rate. All per-second constants in
	// this package are converted with TickDelta before use.
	TicksPerSecond = 60
	// TickDuration is the fixed timestep of one simulation tick.
	TickDuration = time.Second / TicksPerSecond
	// TickDelta is TickDuration expressed in seconds.
	TickDelta = float32(1.0 / float64(TicksPerSecond))
)

const (
	DefaultWalkSpeed      = float32(6.0)
	DefaultRunMultiplier  = float32(1.65)
	DefaultGroundAccel    = float32(40.0)
	DefaultAirAccel       = float32(8.0)
	DefaultGroundFriction = float32(10.0)
	DefaultAirDrag        = float32(0.35)
	DefaultJumpImpulse    = float32(8.5)
	DefaultJumpDuration   = 30 * TickDuration

	// SpeedClampMultiplier caps the tangential speed of a grounded actor at a
	// multiple of its walk/run speed, so replayed or conflicting input can
	// never wind velocity up without bound.
	SpeedClampMultiplier = float32(1.5)

	// ConflictAccelScale and ConflictDragScale soften local movement while the
	// server disagrees about grounding, so prediction stops fighting the
	// authoritative state until reconciliation catches up.
	ConflictAccelScale = float32(0.4)
	ConflictDragScale  = float32(2.5)
)

const (
	// DefaultCorrectionEpsilon is the prediction error, in world units, below
	// which a snapshot is accepted silently.
	DefaultCorrectionEpsilon = float32(0.05)
	// DefaultReplayDepth is the number of most recent pending commands
	// replayed after a hard correction.
	DefaultReplayDepth = 3
	// DefaultReplayStrength scales movement acceleration during post-snap
	// replay to avoid immediately re-diverging.
	DefaultReplayStrength = float32(0.35)
)

const (
	DefaultProbeDistance     = float32(1.25)
	DefaultContactHysteresis = 200 * time.Millisecond
	DefaultSnapshotTrust     = 100 * time.Millisecond
	DefaultCommandMaxAge     = 2 * time.Second

	// GroundedSlerpFactor and AirborneSlerpFactor blend the actor orientation
	// toward the surface basis each tick. Remote actors converge faster since
	// their orientation also chases snapshots.
	GroundedSlerpFactor = float32(0.15)
	AirborneSlerpFactor = float32(0.08)
	RemoteSlerpFactor   = float32(0.18)

	// RestDownwardSpeed is the downward speed below which an actor is
	// considered settled for grounding purposes.
	RestDownwardSpeed = float32(0.75)
)
