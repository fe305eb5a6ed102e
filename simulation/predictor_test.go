package simulation

import (
	"testing"
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/physics"
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

func testContext(t *testing.T, caster physics.RayCaster) *Context {
	t.Helper()
	planet := gravity.NewField("planet", mgl32.Vec3{0, -250, 0}, 25, 10000)
	reg, err := gravity.NewRegistry(planet)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ctx := NewContext(reg, caster, log)
	base := time.Unix(1000, 0)
	ctx.Clock = func() time.Time { return base }
	return ctx
}

func addLocal(t *testing.T, ctx *Context, pos mgl32.Vec3) *actor.Actor {
	t.Helper()
	a := actor.New(1, actor.AuthorityLocal, pos, ctx.Fields.Root())
	if err := ctx.Actors.Add(a); err != nil {
		t.Fatalf("add actor: %v", err)
	}
	return a
}

func groundPlane() *physics.StaticWorld {
	w := &physics.StaticWorld{}
	w.AddBox(cube.Box(-500, -1, -500, 500, 0, 500))
	return w
}

func TestAirborneGravityTick(t *testing.T) {
	ctx := testContext(t, nil)
	ctx.Tuning.AirDrag = 0
	a := addLocal(t, ctx, mgl32.Vec3{0, 10, 0})

	dt := float32(0.016)
	NewPredictor().Simulate(ctx, a, command.Command{Sequence: 1}, dt)

	wantVy := -25 * dt
	if !mgl32.FloatEqualThreshold(a.Velocity.Y(), wantVy, 1e-6) {
		t.Fatalf("velocity.y = %v, want %v", a.Velocity.Y(), wantVy)
	}
	wantPy := 10 + wantVy*dt
	if !mgl32.FloatEqualThreshold(a.Position.Y(), wantPy, 1e-5) {
		t.Fatalf("position.y = %v, want %v", a.Position.Y(), wantPy)
	}
	if a.Grounded {
		t.Fatal("actor with no surface below must be airborne")
	}
}

func TestAirDragSlowsFall(t *testing.T) {
	ctx := testContext(t, nil)
	a := addLocal(t, ctx, mgl32.Vec3{0, 10, 0})

	dt := float32(0.016)
	NewPredictor().Simulate(ctx, a, command.Command{Sequence: 1}, dt)

	// With drag, one tick of fall is strictly smaller than the undamped
	// 25*dt but still downward.
	if a.Velocity.Y() >= 0 || a.Velocity.Y() <= -25*dt {
		t.Fatalf("velocity.y = %v, want in (-%v, 0)", a.Velocity.Y(), 25*dt)
	}
}

func TestPredictorIsDeterministic(t *testing.T) {
	run := func() mgl32.Vec3 {
		ctx := testContext(t, groundPlane())
		a := addLocal(t, ctx, mgl32.Vec3{0, 0.2, 0})
		p := NewPredictor()
		for i := 0; i < 120; i++ {
			cmd := command.Command{
				Sequence:    uint32(i + 1),
				MoveForward: 1,
				MoveLeft:    float32(i%5) * 0.1,
				Jump:        i%40 == 30,
				Run:         i > 60,
			}
			p.Simulate(ctx, a, cmd, 1.0/60)
		}
		return a.Position
	}

	first, second := run(), run()
	if first != second {
		t.Fatalf("identical input produced %v and %v", first, second)
	}
}

func TestGroundedMovementAndFriction(t *testing.T) {
	ctx := testContext(t, groundPlane())
	a := addLocal(t, ctx, mgl32.Vec3{0, 0.2, 0})
	p := NewPredictor()

	for i := 0; i < 30; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1), MoveForward: 1}, 1.0/60)
	}
	if !a.Grounded {
		t.Fatal("expected grounded on the plane")
	}
	moving := a.Velocity.Z()
	if moving <= 0 {
		t.Fatalf("expected forward velocity, got %v", a.Velocity)
	}

	// Release input: friction decays the tangential velocity toward zero.
	for i := 30; i < 120; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1)}, 1.0/60)
	}
	if math32.Abs(a.Velocity.Z()) > 0.05 {
		t.Fatalf("friction did not stop the actor: %v", a.Velocity)
	}
}

func TestGroundSpeedClamp(t *testing.T) {
	ctx := testContext(t, groundPlane())
	a := addLocal(t, ctx, mgl32.Vec3{0, 0.2, 0})
	p := NewPredictor()

	for i := 0; i < 600; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1), MoveForward: 1, Run: true}, 1.0/60)
	}
	max := ctx.MaxGroundSpeed(true)
	if a.Velocity.Len() > max+1e-3 {
		t.Fatalf("speed %v exceeds clamp %v", a.Velocity.Len(), max)
	}
}

func TestJumpIsOneShot(t *testing.T) {
	ctx := testContext(t, groundPlane())
	a := addLocal(t, ctx, mgl32.Vec3{0, 0.2, 0})
	p := NewPredictor()

	// Settle onto the plane first.
	for i := 0; i < 10; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1)}, 1.0/60)
	}
	if !a.Grounded {
		t.Fatal("expected grounded before jump")
	}

	p.Simulate(ctx, a, command.Command{Sequence: 100, Jump: true}, 1.0/60)
	if a.Grounded {
		t.Fatal("jump must leave the ground")
	}
	v1 := a.Velocity.Y()
	if v1 <= 0 {
		t.Fatalf("jump velocity = %v, want upward", v1)
	}

	// Holding jump while airborne must not add a second impulse.
	p.Simulate(ctx, a, command.Command{Sequence: 101, Jump: true}, 1.0/60)
	if a.Velocity.Y() > v1 {
		t.Fatalf("second jump impulse applied: %v > %v", a.Velocity.Y(), v1)
	}
}

func TestFallLandsOnSurface(t *testing.T) {
	ctx := testContext(t, groundPlane())
	a := addLocal(t, ctx, mgl32.Vec3{0, 5, 0})
	p := NewPredictor()

	for i := 0; i < 600; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1)}, 1.0/60)
	}
	if !a.Grounded {
		t.Fatal("expected to land on the plane")
	}
	if a.Position.Y() < -0.01 || a.Position.Y() > 0.2 {
		t.Fatalf("resting height = %v, want on the surface", a.Position.Y())
	}
}

func TestLookDeltaTurnsActor(t *testing.T) {
	ctx := testContext(t, groundPlane())
	a := addLocal(t, ctx, mgl32.Vec3{0, 0.2, 0})
	p := NewPredictor()

	// Settle, then hold a rightward look for two seconds.
	for i := 0; i < 10; i++ {
		p.Simulate(ctx, a, command.Command{Sequence: uint32(i + 1)}, 1.0/60)
	}
	start := a.Forward()
	for i := 10; i < 130; i++ {
		cmd := command.Command{Sequence: uint32(i + 1), LookDelta: mgl32.Vec2{0.1, 0}}
		p.Simulate(ctx, a, cmd, 1.0/60)
	}

	fwd := a.Forward()
	if fwd.Dot(start) > 0.9 {
		t.Fatalf("look input did not turn the actor: forward still %v", fwd)
	}
	// Positive X look turns toward the initial right vector.
	right := mgl32.Vec3{0, 1, 0}.Cross(start)
	if fwd.Dot(right) <= 0 {
		t.Fatalf("actor turned the wrong way: forward %v, right %v", fwd, right)
	}
	if math32.Abs(fwd.Len()-1) > 1e-3 {
		t.Fatalf("forward not unit after turning: %v", fwd)
	}
}

func TestGroundingConflictSoftensMovement(t *testing.T) {
	dt := float32(1.0 / 60)
	now := time.Unix(1000, 0)

	run := func(conflict bool) float32 {
		ctx := testContext(t, nil) // airborne: no surface below
		ctx.Online = true
		a := addLocal(t, ctx, mgl32.Vec3{0, 10, 0})
		if conflict {
			a.LastSnapshot = &actor.Snapshot{Grounded: true, Received: now}
		}
		NewPredictor().Simulate(ctx, a, command.Command{Sequence: 1, MoveForward: 1}, dt)
		return a.Velocity.Z()
	}

	plain, conflicted := run(false), run(true)
	if conflicted >= plain {
		t.Fatalf("conflict slack did not reduce acceleration: %v >= %v", conflicted, plain)
	}
	if conflicted <= 0 {
		t.Fatalf("conflicted movement should still make some progress, got %v", conflicted)
	}
}
