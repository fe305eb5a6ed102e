package simulation

import (
	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/gravity"
)

// TransitionField re-resolves the actor's dominant gravity field and, when it
// changed, re-expresses the actor's velocity in the new field's rest frame.
// The field reference and the velocity are swapped together; no caller can
// ever observe one without the other. Returns true when a transition
// happened.
func TransitionField(ctx *Context, a *actor.Actor) bool {
	if a.Field == nil {
		a.Field = ctx.Fields.Root()
	}
	next := a.Field.Dominant(a.Position)
	if next == a.Field {
		return false
	}
	AdoptField(ctx, a, next)

	if a.Authority == actor.AuthorityLocal && ctx.OnFieldChange != nil {
		ctx.OnFieldChange(a)
	}
	return true
}

// AdoptField moves the actor into next, re-expressing its velocity in the new
// field's rest frame. Every field change goes through here, whether derived
// from position dominance or announced by the server for a remote actor.
func AdoptField(ctx *Context, a *actor.Actor, next *gravity.Field) {
	if next == nil || next == a.Field {
		return
	}
	if a.Field == nil {
		a.Field = next
		a.FieldChanges++
		return
	}

	old := a.Field
	vel := gravity.RelativeRotation(old, next).Rotate(a.Velocity)
	// Leaving the old frame adds its prograde contribution back; entering the
	// new frame removes that frame's own motion, keeping the velocity
	// continuous from the observer's point of view.
	vel = vel.Add(old.RestFrameVelocity(a.Position)).Sub(next.RestFrameVelocity(a.Position))

	a.Velocity = vel
	a.Field = next
	a.FieldChanges++

	ctx.Log.WithFields(map[string]any{
		"actor": a.ID,
		"from":  old.Name(),
		"to":    next.Name(),
		"count": a.FieldChanges,
	}).Debug("gravity field transition")
}
