package ground

import (
	"testing"
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// flatWorld reports a hit at a fixed distance below every probe origin.
type flatWorld struct {
	distance float32
	misses   bool
}

func (w *flatWorld) CastRay(origin, dir mgl32.Vec3, maxDist float32, _ physics.Handle) (physics.RayHit, bool) {
	if w.misses || w.distance > maxDist {
		return physics.RayHit{}, false
	}
	return physics.RayHit{
		Point:        origin.Add(dir.Mul(w.distance)),
		Normal:       dir.Mul(-1),
		TimeOfImpact: w.distance,
	}, true
}

func testActor() *actor.Actor {
	field := gravity.NewField("planet", mgl32.Vec3{0, -250, 0}, 25, 1000)
	return actor.New(1, actor.AuthorityLocal, mgl32.Vec3{0, 10, 0}, field)
}

func TestProbeHitGroundsActor(t *testing.T) {
	w := &flatWorld{distance: 0.4}
	d := NewDetector(w)
	a := testActor()
	now := time.Now()

	if !d.Update(a, now) {
		t.Fatal("expected grounded with probe hits and low downward speed")
	}
	if _, ok := d.LastNormal(); !ok {
		t.Fatal("expected a contact normal after probe hit")
	}
}

func TestFastFallIsNotGrounded(t *testing.T) {
	w := &flatWorld{distance: 0.4}
	d := NewDetector(w)
	a := testActor()
	a.Velocity = mgl32.Vec3{0, -20, 0} // falling fast toward the planet

	if d.Update(a, time.Now()) {
		t.Fatal("fast-falling actor must not be grounded even over a surface")
	}
}

func TestHysteresisBridgesMissedFrames(t *testing.T) {
	w := &flatWorld{distance: 0.4}
	d := NewDetector(w)
	a := testActor()
	now := time.Now()

	if !d.Update(a, now) {
		t.Fatal("expected initial grounding")
	}

	// The surface disappears for a few frames; recent contact keeps the
	// actor grounded inside the hysteresis window.
	w.misses = true
	if !d.Update(a, now.Add(100*time.Millisecond)) {
		t.Fatal("expected hysteresis to hold grounded state")
	}
	if d.Update(a, now.Add(400*time.Millisecond)) {
		t.Fatal("expected grounded to expire past the hysteresis window")
	}
}

func TestContactEventsGroundWithoutProbes(t *testing.T) {
	d := NewDetector(nil) // no ray query capability at all
	a := testActor()
	a.Body = 7

	d.HandleContact(physics.ContactEvent{A: 7, B: 9, Started: true}, a.Body)
	if !d.Update(a, time.Now()) {
		t.Fatal("expected live contact to ground the actor")
	}

	d.HandleContact(physics.ContactEvent{A: 7, B: 9, Started: false}, a.Body)
	// Contact just ended; hysteresis still applies, so jump past it.
	if d.Update(a, time.Now().Add(time.Second)) {
		t.Fatal("expected airborne after contact ended")
	}
}

func TestContactEventsIgnoreOtherBodies(t *testing.T) {
	d := NewDetector(nil)
	a := testActor()
	a.Body = 7

	d.HandleContact(physics.ContactEvent{A: 3, B: 9, Started: true}, a.Body)
	if d.ContactCount() != 0 {
		t.Fatal("contact between unrelated bodies must be ignored")
	}
}

// wedgeWorld reports hits whose normals cancel across the probes, the way
// opposing faces of a crevice would.
type wedgeWorld struct {
	casts int
}

func (w *wedgeWorld) CastRay(origin, dir mgl32.Vec3, maxDist float32, _ physics.Handle) (physics.RayHit, bool) {
	w.casts++
	switch w.casts % 3 {
	case 1:
		return physics.RayHit{Point: origin.Add(dir.Mul(0.2)), Normal: mgl32.Vec3{1, 0, 0}, TimeOfImpact: 0.2}, true
	case 2:
		return physics.RayHit{Point: origin.Add(dir.Mul(0.2)), Normal: mgl32.Vec3{-1, 0, 0}, TimeOfImpact: 0.2}, true
	default:
		return physics.RayHit{}, false
	}
}

func TestCancellingNormalsKeepLastNormalFinite(t *testing.T) {
	flat := &flatWorld{distance: 0.4}
	d := NewDetector(flat)
	a := testActor()
	now := time.Now()

	if !d.Update(a, now) {
		t.Fatal("expected initial grounding on the flat surface")
	}
	prev, ok := d.LastNormal()
	if !ok {
		t.Fatal("expected a contact normal after the flat probe hit")
	}

	// Two of the three probes cancel each other; the sum is near zero and
	// must not be normalized into NaNs.
	d.caster = &wedgeWorld{}
	d.Update(a, now.Add(time.Second/60))

	got, ok := d.LastNormal()
	if !ok {
		t.Fatal("degenerate probe normals must not discard the previous normal")
	}
	if got != prev {
		t.Fatalf("normal changed on a degenerate sum: %v, want %v", got, prev)
	}
	if got.X() != got.X() || got.Y() != got.Y() || got.Z() != got.Z() {
		t.Fatalf("normal is NaN: %v", got)
	}
}

func TestSnapshotBlending(t *testing.T) {
	w := &flatWorld{distance: 0.4}
	d := NewDetector(w)
	a := testActor()
	now := time.Now()

	// Server says grounded and a probe agrees: grounded wins even though the
	// local downward speed alone would have said otherwise.
	a.Velocity = mgl32.Vec3{0, -2, 0}
	a.LastSnapshot = &actor.Snapshot{Grounded: true, Received: now}
	if !d.Update(a, now) {
		t.Fatal("server grounded=true with a live probe hit must resolve grounded")
	}

	// Server says airborne and no local signal disagrees: airborne wins,
	// even inside the hysteresis window.
	w.misses = true
	a.Velocity = mgl32.Vec3{}
	a.LastSnapshot = &actor.Snapshot{Grounded: false, Received: now}
	if d.Update(a, now.Add(50*time.Millisecond)) {
		t.Fatal("server grounded=false with no local contact must resolve airborne")
	}

	// A stale snapshot is not blended at all.
	a.LastSnapshot = &actor.Snapshot{Grounded: false, Received: now.Add(-time.Second)}
	w.misses = false
	if !d.Update(a, now.Add(2*time.Second)) {
		t.Fatal("stale snapshot must not override local probe grounding")
	}
}
