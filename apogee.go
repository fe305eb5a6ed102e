// Package apogee is a client-side prediction engine for planet-centered
// multiplayer movement. The Client ties the simulation core to a server
// session: it predicts the local actor immediately on input, reconciles
// against authoritative snapshots, and interpolates remote actors.
package apogee

import (
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/physics"
	"github.com/apogee-mp/apogee/protocol"
	"github.com/apogee-mp/apogee/session"
	"github.com/apogee-mp/apogee/settings"
	"github.com/apogee-mp/apogee/simulation"
	"github.com/apogee-mp/apogee/telemetry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// Input is one tick of player intent, before it is sequenced into a command.
type Input struct {
	MoveForward float32
	MoveLeft    float32
	LookDelta   mgl32.Vec2
	Jump        bool
	Run         bool
}

// Config assembles a client. Fields is required; everything else has a
// usable default.
type Config struct {
	Settings settings.Settings
	Fields   *gravity.Registry
	Caster   physics.RayCaster
	Log      *logrus.Logger
}

// Client owns the full client-side loop: session, local prediction,
// reconciliation and remote interpolation. Call Tick once per fixed step
// from the game loop's goroutine; the client is not safe for concurrent use.
type Client struct {
	Log     *logrus.Logger
	Ctx     *simulation.Context
	Session *session.Session

	pred   *simulation.Predictor
	rec    *simulation.Reconciler
	remote *simulation.RemoteSimulator
	uplink *telemetry.Uplink

	localID uint64
	seq     uint32
	// fieldCounter versions outgoing FieldChange messages so the server can
	// drop reordered ones.
	fieldCounter uint32
	// baselined is false until the first snapshot after a (re)connect has been
	// adopted wholesale. Until then the client predicts offline.
	baselined bool
}

// NewClient builds a client over conf. It does not connect; call Connect.
func NewClient(conf Config) *Client {
	if conf.Log == nil {
		conf.Log = logrus.New()
	}
	ctx := simulation.NewContext(conf.Fields, conf.Caster, conf.Log)
	ctx.Tuning = conf.Settings.Tuning()

	s := session.New(session.Config{
		Address:           conf.Settings.Network.Address,
		ReconnectAttempts: conf.Settings.Network.ReconnectAttempts,
		ReconnectBackoff:  time.Duration(conf.Settings.Network.ReconnectBackoffMs) * time.Millisecond,
		BackoffCap:        time.Duration(conf.Settings.Network.ReconnectBackoffCapMs) * time.Millisecond,
		Log:               conf.Log,
	})

	c := &Client{
		Log:     conf.Log,
		Ctx:     ctx,
		Session: s,
		pred:    simulation.NewPredictor(),
		rec:     simulation.NewReconciler(),
		remote:  simulation.NewRemoteSimulator(),
		uplink:  telemetry.Dial(conf.Settings.Network.TelemetryAddress, conf.Log),
	}
	ctx.OnFieldChange = c.notifyFieldChange
	return c
}

// Connect dials the server. Until the handshake completes and the first
// snapshot lands, Tick keeps simulating offline.
func (c *Client) Connect() error {
	return c.Session.Connect()
}

// Close disconnects cleanly.
func (c *Client) Close(reason string) {
	c.Session.Close(reason)
}

// Local returns the locally predicted actor, or nil before the handshake.
func (c *Client) Local() *actor.Actor {
	return c.Ctx.Actors.Local()
}

// Stats exposes reconciliation quality numbers.
func (c *Client) Stats() *simulation.Stats {
	return &c.rec.Stats
}

// Tick advances the client by one fixed step: drain the network, sequence
// and send the new input, predict the local actor, interpolate remotes.
func (c *Client) Tick(in Input) {
	c.drainEvents()

	now := c.Ctx.Now()
	if expired := c.Ctx.Sequencer.Expire(now, c.Ctx.Tuning.CommandMaxAge); expired > 0 {
		c.Log.WithField("count", expired).Debug("expired unacknowledged commands")
	}

	local := c.Ctx.Actors.Local()
	if local != nil {
		cmd := c.sequence(in, now)
		c.pred.Simulate(c.Ctx, local, cmd, game.TickDelta)

		if c.Session.State() == session.StateConnected {
			c.Session.Send(&protocol.PlayerUpdate{
				Position:    local.Position,
				Orientation: local.Orientation,
				Velocity:    local.Velocity,
				Grounded:    local.Grounded,
				Timestamp:   now.UnixMilli(),
			})
		}
	}

	c.Ctx.Actors.Each(func(a *actor.Actor) {
		if a.Authority == actor.AuthorityRemote {
			c.remote.Simulate(c.Ctx, a, game.TickDelta)
		}
	})

	c.Ctx.Tick++
	if c.Ctx.Tick%(game.TicksPerSecond*5) == 0 {
		c.uplink.Report(telemetry.Sample{
			Tick:        c.Ctx.Tick,
			Corrections: c.rec.Stats.Corrections,
			Discarded:   c.rec.Stats.Discarded,
			MeanError:   c.rec.Stats.MeanError(),
			MaxError:    c.rec.Stats.MaxError(),
		})
	}
}

func (c *Client) sequence(in Input, now time.Time) command.Command {
	c.seq++
	cmd := command.Command{
		Sequence:    c.seq,
		CreatedAt:   now,
		MoveForward: in.MoveForward,
		MoveLeft:    in.MoveLeft,
		LookDelta:   in.LookDelta,
		Jump:        in.Jump,
		Run:         in.Run,
	}
	if err := c.Ctx.Sequencer.Enqueue(cmd); err != nil {
		c.Log.WithError(err).Warn("input rejected by sequencer")
		return cmd
	}
	if c.Session.State() == session.StateConnected {
		c.Session.Send(&protocol.ClientInput{
			Sequence:    cmd.Sequence,
			CreatedAt:   now.UnixMilli(),
			MoveForward: cmd.MoveForward,
			MoveLeft:    cmd.MoveLeft,
			LookDelta:   cmd.LookDelta,
			Jump:        cmd.Jump,
			Run:         cmd.Run,
		})
	}
	return cmd
}

func (c *Client) drainEvents() {
	for {
		select {
		case ev := <-c.Session.Events():
			c.handleEvent(ev)
		default:
			return
		}
	}
}

func (c *Client) handleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventConnected:
		// Prediction continues, but nothing predicted before the first
		// authoritative snapshot is trustworthy.
		c.baselined = false
		c.Ctx.Online = false
	case session.EventReconnecting, session.EventDisconnected:
		c.Ctx.Online = false
		c.baselined = false
		// Unacknowledged input predates the connection loss; replaying it
		// against a future baseline would only fight the server.
		c.Ctx.Sequencer.Clear()
		if ev.Err != nil {
			c.Log.WithError(ev.Err).Warn("connection lost")
		}
	case session.EventMessage:
		c.handleMessage(ev.Message)
	}
}

func (c *Client) handleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.ServerHello:
		c.handleHello(m)
	case *protocol.PlayerState:
		c.handleState(m)
	case *protocol.FieldChange:
		c.handleFieldChange(m)
	case *protocol.Disconnect:
		c.Log.WithField("reason", m.Reason).Info("server closed the connection")
		c.Session.Close("server disconnect")
	}
}

func (c *Client) handleHello(m *protocol.ServerHello) {
	field, ok := c.Ctx.Fields.Lookup(m.FieldID)
	if !ok {
		field = c.Ctx.Fields.Root()
	}

	if c.localID == m.PlayerID && c.Ctx.Actors.Local() != nil {
		// Reconnect under the same identity; keep the actor, await baseline.
		return
	}

	c.localID = m.PlayerID
	if prev := c.Ctx.Actors.Local(); prev != nil {
		c.Ctx.Actors.Remove(prev.ID)
		c.Ctx.DropDetector(prev.ID)
	}
	a := actor.New(m.PlayerID, actor.AuthorityLocal, mgl32.Vec3{}, field)
	if err := c.Ctx.Actors.Add(a); err != nil {
		c.Log.WithError(err).Error("failed to register local actor")
		return
	}
	c.Log.WithField("player", m.PlayerID).Info("handshake complete")
}

func (c *Client) handleState(m *protocol.PlayerState) {
	snap := &actor.Snapshot{
		ActorID:     m.PlayerID,
		Position:    m.Position,
		Orientation: m.Orientation,
		Velocity:    m.Velocity,
		Grounded:    m.Grounded,
		AckSequence: m.AckSequence,
		ServerTime:  time.UnixMilli(m.Timestamp),
		Received:    c.Ctx.Now(),
	}

	if m.PlayerID == c.localID {
		local := c.Ctx.Actors.Local()
		if local == nil {
			return
		}
		if !c.baselined {
			// First snapshot after (re)connect is adopted wholesale.
			local.Position = snap.Position
			local.Velocity = snap.Velocity
			local.Orientation = snap.Orientation
			local.Grounded = snap.Grounded
			local.LastSnapshot = snap
			local.LastAckSeq = snap.AckSequence
			c.Ctx.Sequencer.AcknowledgeUpTo(snap.AckSequence)
			c.baselined = true
			c.Ctx.Online = true
			return
		}
		c.rec.Apply(c.Ctx, local, snap, c.pred)
		return
	}

	a, ok := c.Ctx.Actors.Get(m.PlayerID)
	if !ok {
		a = actor.New(m.PlayerID, actor.AuthorityRemote, m.Position, c.Ctx.Fields.Root())
		a.Position = m.Position
		a.Orientation = m.Orientation
		if err := c.Ctx.Actors.Add(a); err != nil {
			c.Log.WithError(err).Error("failed to register remote actor")
			return
		}
	}
	c.remote.ApplySnapshot(c.Ctx, a, snap)
}

func (c *Client) handleFieldChange(m *protocol.FieldChange) {
	if m.PlayerID == c.localID {
		// The local field reference is owned by prediction; the server's view
		// arrives implicitly through snapshots.
		return
	}
	a, ok := c.Ctx.Actors.Get(m.PlayerID)
	if !ok {
		return
	}
	if field, ok := c.Ctx.Fields.Lookup(m.FieldID); ok {
		// The frame transform travels with the reference change, the same as
		// a locally detected transition.
		simulation.AdoptField(c.Ctx, a, field)
	}
}

func (c *Client) notifyFieldChange(a *actor.Actor) {
	if c.Session.State() != session.StateConnected {
		return
	}
	c.fieldCounter++
	c.Session.Send(&protocol.FieldChange{
		PlayerID: a.ID,
		FieldID:  a.Field.ID(),
		Counter:  c.fieldCounter,
	})
}
