package simulation

import (
	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/game"
	"github.com/go-gl/mathgl/mgl32"
)

// RemotePositionPull is the fraction per second by which a remote actor's
// position is steered toward its last snapshot. It masks the drift that
// accumulates between snapshot arrivals without ever teleporting the body.
const RemotePositionPull = float32(1.5)

// RemoteSimulator advances actors the local client does not control. Instead
// of teleporting to each snapshot it adopts the snapshot's velocity and runs
// the same integrator as the local predictor, so remote motion stays smooth
// between arrivals at the cost of trailing the authoritative truth slightly.
type RemoteSimulator struct {
	pred *Predictor
}

func NewRemoteSimulator() *RemoteSimulator {
	return &RemoteSimulator{pred: NewPredictor()}
}

// ApplySnapshot ingests an authoritative update for a remote actor at a tick
// boundary. Stale snapshots are discarded. The position is deliberately not
// written; the integrator moves the body there.
func (r *RemoteSimulator) ApplySnapshot(ctx *Context, a *actor.Actor, snap *actor.Snapshot) bool {
	if prev := a.LastSnapshot; prev != nil && snap.ServerTime.Before(prev.ServerTime) {
		ctx.Log.WithField("actor", a.ID).Debug("discarded stale remote snapshot")
		return false
	}
	a.LastSnapshot = snap
	a.Velocity = snap.Velocity
	return true
}

// Simulate advances one remote actor by dt seconds: the predictor's airborne
// and grounded integration without any input, plus an orientation slerp
// toward the snapshot.
func (r *RemoteSimulator) Simulate(ctx *Context, a *actor.Actor, dt float32) {
	r.pred.step(ctx, a, command.Command{}, dt, 0)

	snap := a.LastSnapshot
	if snap == nil {
		return
	}

	// Steer toward the authoritative position instead of snapping to it.
	delta := snap.Position.Sub(a.Position)
	if delta.LenSqr() > 1e-8 {
		a.Position = a.Position.Add(delta.Mul(game.ClampFloat(RemotePositionPull*dt, 0, 1)))
	}

	a.Orientation = mgl32.QuatSlerp(a.Orientation, snap.Orientation, game.RemoteSlerpFactor).Normalize()
}
