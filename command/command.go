package command

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Command is one tick's worth of player intent. Commands are immutable once
// created: the sequencer retains them verbatim until they are acknowledged by
// the server or expire.
type Command struct {
	// Sequence is assigned by the caller and must increase strictly.
	Sequence uint32
	// CreatedAt is the client send timestamp used for age-based expiry.
	CreatedAt time.Time

	// MoveForward and MoveLeft are analog movement axes in [-1, 1], expressed
	// in the actor's surface basis.
	MoveForward float32
	MoveLeft    float32
	// LookDelta carries yaw/pitch deltas in radians.
	LookDelta mgl32.Vec2

	Jump bool
	Run  bool
}

// Idle reports whether the command carries no movement input.
func (c Command) Idle() bool {
	return c.MoveForward == 0 && c.MoveLeft == 0 && !c.Jump
}
