package ground

import (
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/orient"
	"github.com/apogee-mp/apogee/physics"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ProbeResult is the outcome of a single ground probe ray. Results live for
// one tick only.
type ProbeResult struct {
	Hit          bool
	Point        mgl32.Vec3
	Normal       mgl32.Vec3
	TimeOfImpact float32
}

// Detector derives an actor's grounded state from probe rays, the live
// collision-contact set and recent-contact hysteresis. A single missed frame
// of contact (surface seams, shallow steps) must not flicker the grounded
// flag, which is what the hysteresis window is for.
type Detector struct {
	caster physics.RayCaster

	ProbeDistance float32
	Hysteresis    time.Duration
	SnapshotTrust time.Duration

	contacts    map[physics.Handle]struct{}
	lastContact time.Time
	lastNormal  mgl32.Vec3
	hasContact  bool
	lastProbes  [3]ProbeResult
}

// NewDetector creates a detector over the given ray caster. A nil caster is
// allowed: every probe then misses and grounding relies on contacts alone.
func NewDetector(caster physics.RayCaster) *Detector {
	return &Detector{
		caster:        caster,
		ProbeDistance: game.DefaultProbeDistance,
		Hysteresis:    game.DefaultContactHysteresis,
		SnapshotTrust: game.DefaultSnapshotTrust,
		contacts:      make(map[physics.Handle]struct{}),
	}
}

// HandleContact feeds one collision event from the physics collaborator.
// Events not involving body are ignored.
func (d *Detector) HandleContact(ev physics.ContactEvent, body physics.Handle) {
	var other physics.Handle
	switch body {
	case ev.A:
		other = ev.B
	case ev.B:
		other = ev.A
	default:
		return
	}
	if ev.Started {
		d.contacts[other] = struct{}{}
	} else {
		delete(d.contacts, other)
	}
}

// Probe casts the three ground rays (center, left foot, right foot) along the
// gravity down direction and returns the per-ray results.
func (d *Detector) Probe(a *actor.Actor, now time.Time) [3]ProbeResult {
	var results [3]ProbeResult
	if d.caster == nil || a.Field == nil {
		return results
	}

	down := a.Field.DownDirection(a.Position)
	basis := orient.BasisFromUp(down.Mul(-1), a.Forward())
	lift := basis.Up.Mul(0.1)
	foot := basis.Right.Mul(a.Radius * 0.8)

	origins := [3]mgl32.Vec3{
		a.Position.Add(lift),
		a.Position.Add(lift).Sub(foot),
		a.Position.Add(lift).Add(foot),
	}
	for i, origin := range origins {
		hit, ok := d.caster.CastRay(origin, down, d.ProbeDistance, a.Body)
		if !ok {
			continue
		}
		results[i] = ProbeResult{
			Hit:          true,
			Point:        hit.Point,
			Normal:       hit.Normal,
			TimeOfImpact: hit.TimeOfImpact,
		}
	}
	return results
}

// Update recomputes the actor's grounded state for this tick and records the
// contact normal and timestamp for the orienter. A recent snapshot's grounded
// flag is blended in: the server's true is trusted when any local signal
// agrees, and its false when no local signal disagrees.
func (d *Detector) Update(a *actor.Actor, now time.Time) bool {
	downSpeed := a.DownwardSpeed()
	probes := d.Probe(a, now)
	d.lastProbes = probes

	anyHit := false
	normalSum := mgl32.Vec3{}
	for _, p := range probes {
		if p.Hit {
			anyHit = true
			normalSum = normalSum.Add(p.Normal)
		}
	}

	// The speed band is two-sided: an actor falling fast has not landed yet,
	// and an actor launching upward (a jump) has already left the ground even
	// while its probes still hit.
	settled := math32.Abs(downSpeed) < game.RestDownwardSpeed
	liveContact := len(d.contacts) > 0 && settled
	probeContact := anyHit && settled
	recentContact := d.hasContact &&
		now.Sub(d.lastContact) <= d.Hysteresis &&
		math32.Abs(downSpeed) < game.RestDownwardSpeed*0.5

	grounded := liveContact || probeContact || recentContact

	if a.SnapshotRecent(now, d.SnapshotTrust) {
		snap := a.LastSnapshot
		if snap.Grounded && (anyHit || len(d.contacts) > 0 || recentContact) {
			grounded = true
		}
		if !snap.Grounded && !anyHit && len(d.contacts) == 0 {
			grounded = false
		}
	}

	if anyHit || len(d.contacts) > 0 {
		d.lastContact = now
		d.hasContact = true
		// Opposing probe normals can cancel out (wedged between faces);
		// normalizing a near-zero sum would poison the orienter with NaNs.
		if sum := normalSum.LenSqr(); anyHit && sum > 1e-8 {
			d.lastNormal = normalSum.Mul(1 / math32.Sqrt(sum))
		}
	}
	return grounded
}

// NearestProbe returns the closest hit of the current tick's probes. ok is
// false when every probe missed.
func (d *Detector) NearestProbe() (ProbeResult, bool) {
	best := ProbeResult{}
	for _, p := range d.lastProbes {
		if p.Hit && (!best.Hit || p.TimeOfImpact < best.TimeOfImpact) {
			best = p
		}
	}
	return best, best.Hit
}

// LastNormal returns the most recent averaged contact normal. ok is false
// until the first probe hit.
func (d *Detector) LastNormal() (mgl32.Vec3, bool) {
	if d.lastNormal.LenSqr() == 0 {
		return mgl32.Vec3{}, false
	}
	return d.lastNormal, true
}

// LastContact returns the timestamp of the most recent contact signal.
func (d *Detector) LastContact() time.Time {
	return d.lastContact
}

// ContactCount returns the size of the live contact set, for diagnostics.
func (d *Detector) ContactCount() int {
	return len(d.contacts)
}
