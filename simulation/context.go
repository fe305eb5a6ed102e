package simulation

import (
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/ground"
	"github.com/apogee-mp/apogee/physics"
	"github.com/sirupsen/logrus"
)

// Tuning collects the knobs of the prediction core. The correction epsilon
// and replay depth are deliberately configuration, not constants: the right
// values are a product of the game's feel and are expected to be tuned.
type Tuning struct {
	WalkSpeed      float32
	RunMultiplier  float32
	GroundAccel    float32
	AirAccel       float32
	GroundFriction float32
	AirDrag        float32
	JumpImpulse    float32
	JumpDuration   time.Duration

	CorrectionEpsilon float32
	ReplayDepth       int
	ReplayStrength    float32
	CommandMaxAge     time.Duration
	SnapshotTrust     time.Duration
}

// DefaultTuning returns the tuning used when no settings file overrides it.
func DefaultTuning() Tuning {
	return Tuning{
		WalkSpeed:      game.DefaultWalkSpeed,
		RunMultiplier:  game.DefaultRunMultiplier,
		GroundAccel:    game.DefaultGroundAccel,
		AirAccel:       game.DefaultAirAccel,
		GroundFriction: game.DefaultGroundFriction,
		AirDrag:        game.DefaultAirDrag,
		JumpImpulse:    game.DefaultJumpImpulse,
		JumpDuration:   game.DefaultJumpDuration,

		CorrectionEpsilon: game.DefaultCorrectionEpsilon,
		ReplayDepth:       game.DefaultReplayDepth,
		ReplayStrength:    game.DefaultReplayStrength,
		CommandMaxAge:     game.DefaultCommandMaxAge,
		SnapshotTrust:     game.DefaultSnapshotTrust,
	}
}

// Context is the explicit simulation state passed to every component call.
// It owns the actors, the gravity field tree and the pending input queue;
// there are no package-level singletons anywhere in the core.
type Context struct {
	Tuning    Tuning
	Actors    *actor.Registry
	Fields    *gravity.Registry
	Sequencer *command.Sequencer
	Caster    physics.RayCaster
	Log       *logrus.Logger

	// Clock supplies "now" so tests can pin time. Defaults to time.Now.
	Clock func() time.Time

	// Online gates the network-dependent behaviors (grounding-conflict slack,
	// snapshot blending). It is false from disconnect until a fresh baseline
	// snapshot arrives after reconnecting.
	Online bool

	// OnFieldChange is invoked when the local actor crosses an SOI boundary,
	// so the session can notify the server immediately.
	OnFieldChange func(a *actor.Actor)

	// Tick is the current simulation tick, incremented by the driver.
	Tick uint64

	detectors map[uint64]*ground.Detector
}

// NewContext assembles a simulation context over a field tree.
func NewContext(fields *gravity.Registry, caster physics.RayCaster, log *logrus.Logger) *Context {
	if log == nil {
		log = logrus.New()
	}
	return &Context{
		Tuning:    DefaultTuning(),
		Actors:    actor.NewRegistry(),
		Fields:    fields,
		Sequencer: command.NewSequencer(),
		Caster:    caster,
		Log:       log,
		Clock:     time.Now,
		detectors: make(map[uint64]*ground.Detector),
	}
}

// Now returns the context clock's current time.
func (c *Context) Now() time.Time {
	return c.Clock()
}

// Detector returns the ground detector owned by the given actor, creating it
// on first use. Detectors are per-actor because hysteresis and the live
// contact set are actor state.
func (c *Context) Detector(a *actor.Actor) *ground.Detector {
	d, ok := c.detectors[a.ID]
	if !ok {
		d = ground.NewDetector(c.Caster)
		d.SnapshotTrust = c.Tuning.SnapshotTrust
		c.detectors[a.ID] = d
	}
	return d
}

// DropDetector forgets the detector of a removed actor.
func (c *Context) DropDetector(id uint64) {
	delete(c.detectors, id)
}

// HandleContact routes one collision event to the detector of every actor
// whose body participates in it.
func (c *Context) HandleContact(ev physics.ContactEvent) {
	c.Actors.Each(func(a *actor.Actor) {
		if a.Body == physics.NoHandle {
			return
		}
		if a.Body == ev.A || a.Body == ev.B {
			c.Detector(a).HandleContact(ev, a.Body)
		}
	})
}

// MaxGroundSpeed returns the clamp applied to a grounded actor's tangential
// speed, given whether it is running.
func (c *Context) MaxGroundSpeed(running bool) float32 {
	speed := c.Tuning.WalkSpeed
	if running {
		speed *= c.Tuning.RunMultiplier
	}
	return speed * game.SpeedClampMultiplier
}
