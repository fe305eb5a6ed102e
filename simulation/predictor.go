package simulation

import (
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/orient"
	"github.com/go-gl/mathgl/mgl32"
)

// Predictor integrates the local actor's motion the instant input arrives,
// without waiting for the server. It is a two-state machine (grounded or
// airborne); the transition is owned entirely by the ground detector.
type Predictor struct {
	jumping      bool
	jumpDeadline time.Time
}

func NewPredictor() *Predictor {
	return &Predictor{}
}

// Simulate advances the actor by one tick of dt seconds under cmd.
func (p *Predictor) Simulate(ctx *Context, a *actor.Actor, cmd command.Command, dt float32) {
	p.step(ctx, a, cmd, dt, 1)
}

// Replay re-applies already-seen commands after a hard correction. The
// commands run at reduced strength so the replay reflects very recent input
// without immediately re-diverging from the snapshot.
func (p *Predictor) Replay(ctx *Context, a *actor.Actor, cmds []command.Command, dt float32) {
	for _, cmd := range cmds {
		p.step(ctx, a, cmd, dt, ctx.Tuning.ReplayStrength)
	}
}

func (p *Predictor) step(ctx *Context, a *actor.Actor, cmd command.Command, dt, strength float32) {
	now := ctx.Now()

	TransitionField(ctx, a)
	det := ctx.Detector(a)
	grounded := det.Update(a, now)
	a.Grounded = grounded
	if grounded {
		p.jumping = false
	}

	field := a.Field
	down := field.DownDirection(a.Position)
	up := down.Mul(-1)
	if grounded {
		if n, ok := det.LastNormal(); ok {
			up = n
		}
	}

	// Look input turns the body about the current up axis; positive X looks
	// right. Pitch stays with the camera and never tilts the movement basis.
	forward := a.Forward()
	if yaw := cmd.LookDelta.X(); yaw != 0 {
		forward = mgl32.QuatRotate(yaw, up).Rotate(forward)
	}

	basis := orient.BasisFromUp(up, forward)
	slerp := game.AirborneSlerpFactor
	if grounded {
		slerp = game.GroundedSlerpFactor
	}
	a.Orientation = orient.Step(a.Orientation, basis, slerp)

	// While the server disagrees about grounding, weaken movement and raise
	// drag so prediction stops fighting the authoritative state.
	accelScale := strength
	drag := ctx.Tuning.AirDrag
	if ctx.Online && a.SnapshotRecent(now, ctx.Tuning.SnapshotTrust) && a.LastSnapshot.Grounded != grounded {
		accelScale *= game.ConflictAccelScale
		drag *= game.ConflictDragScale
	}

	move := basis.MoveVector(cmd.MoveForward, cmd.MoveLeft)

	if grounded {
		// Kill any residual velocity into the surface.
		if into := a.Velocity.Dot(up); into < 0 {
			a.Velocity = a.Velocity.Sub(up.Mul(into))
		}

		a.Velocity = a.Velocity.Add(move.Mul(ctx.Tuning.GroundAccel * accelScale * dt))

		tangential := game.ProjectOntoPlane(a.Velocity, up)
		normal := a.Velocity.Sub(tangential)
		if cmd.Idle() {
			tangential = game.MoveTowardsZero(tangential, ctx.Tuning.GroundFriction*dt)
		}
		tangential = game.ClampVecLen(tangential, ctx.MaxGroundSpeed(cmd.Run))
		a.Velocity = tangential.Add(normal)

		if cmd.Jump && !p.jumping {
			a.Velocity = a.Velocity.Add(up.Mul(ctx.Tuning.JumpImpulse))
			p.jumping = true
			p.jumpDeadline = now.Add(ctx.Tuning.JumpDuration)
			a.Grounded = false
		}
	} else {
		a.Velocity = a.Velocity.Add(move.Mul(ctx.Tuning.AirAccel * accelScale * dt))
		a.Velocity = a.Velocity.Add(field.AccelerationAt(a.Position).Mul(dt))
		a.Velocity = a.Velocity.Mul(1 / (1 + drag*dt))
		if p.jumping && now.After(p.jumpDeadline) {
			p.jumping = false
		}
	}

	if a.Velocity.LenSqr() < 1e-12 {
		a.Velocity = mgl32.Vec3{}
	}

	// Velocity is expressed in the field's rest frame; the frame's own motion
	// is added back for the world-space position update.
	world := a.Velocity.Add(field.RestFrameVelocity(a.Position))

	// A falling actor that would pass its nearest probe contact this tick is
	// placed on the surface instead, so it lands rather than tunnels. Full
	// collision response stays with the physics collaborator.
	if !a.Grounded {
		if probe, ok := det.NearestProbe(); ok {
			drop := world.Dot(down) * dt
			surface := probe.TimeOfImpact - 0.1 // probe origins sit 0.1 above the position
			if drop > 0 && drop >= surface {
				a.Position = a.Position.Add(down.Mul(surface))
				if into := a.Velocity.Dot(down); into > 0 {
					a.Velocity = a.Velocity.Sub(down.Mul(into))
				}
				return
			}
		}
	}

	a.Position = a.Position.Add(world.Mul(dt))
}
