package simulation

import (
	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/game"
)

// Stats accumulates reconciliation quality numbers for diagnostics. Errors
// are kept in a short ring so an average stays representative of the recent
// connection quality rather than the whole session.
type Stats struct {
	Corrections uint64
	Discarded   uint64
	errors      []float32
	next        int
}

const statsWindow = 128

func (s *Stats) record(err float32) {
	if len(s.errors) < statsWindow {
		s.errors = append(s.errors, err)
		return
	}
	s.errors[s.next] = err
	s.next = (s.next + 1) % statsWindow
}

// MeanError returns the mean prediction error over the recent window.
func (s *Stats) MeanError() float32 {
	if len(s.errors) == 0 {
		return 0
	}
	var sum float32
	for _, e := range s.errors {
		sum += e
	}
	return sum / float32(len(s.errors))
}

// MaxError returns the largest prediction error in the recent window.
func (s *Stats) MaxError() float32 {
	var max float32
	for _, e := range s.errors {
		if e > max {
			max = e
		}
	}
	return max
}

// Reconciler merges authoritative snapshots into the locally predicted state.
// Corrections are hard snaps: a soft spring toward the snapshot used to leave
// actors stuck against conflicting grounding signals, so when the divergence
// matters at all the snapshot wins outright.
type Reconciler struct {
	Stats Stats
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Apply merges snap into the local actor. It returns true when a correction
// was applied. Snapshots older than one already applied (by server timestamp
// or by acknowledged sequence) are discarded without touching the actor.
func (r *Reconciler) Apply(ctx *Context, a *actor.Actor, snap *actor.Snapshot, pred *Predictor) bool {
	if prev := a.LastSnapshot; prev != nil {
		if snap.ServerTime.Before(prev.ServerTime) || snap.AckSequence < prev.AckSequence {
			r.Stats.Discarded++
			ctx.Log.WithField("actor", a.ID).Debug("discarded stale snapshot")
			return false
		}
	}

	errDist := a.Position.Sub(snap.Position).Len()
	conflict := a.Grounded != snap.Grounded
	r.Stats.record(errDist)

	// Bookkeeping happens even when no correction is due: the snapshot feeds
	// the grounding-conflict windows and the ack high-water mark.
	a.LastSnapshot = snap
	if snap.AckSequence > a.LastAckSeq {
		a.LastAckSeq = snap.AckSequence
	}

	if errDist <= ctx.Tuning.CorrectionEpsilon && !conflict {
		// Accept the drift silently; correcting imperceptible error is worse
		// than living with it.
		return false
	}

	a.Position = snap.Position
	a.Velocity = snap.Velocity
	a.Orientation = snap.Orientation
	a.Grounded = snap.Grounded
	r.Stats.Corrections++

	ctx.Sequencer.AcknowledgeUpTo(snap.AckSequence)
	if pred != nil {
		pred.Replay(ctx, a, ctx.Sequencer.Tail(ctx.Tuning.ReplayDepth), game.TickDelta)
	}

	ctx.Log.WithFields(map[string]any{
		"actor":    a.ID,
		"error":    errDist,
		"conflict": conflict,
	}).Debug("prediction corrected")
	return true
}
