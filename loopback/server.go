// Package loopback is a minimal authoritative server. It runs the same
// simulation core as the client, which makes it useful for examples and for
// exercising the full prediction, reconciliation and transport path without
// a production server.
package loopback

import (
	"sync"
	"time"

	"github.com/apogee-mp/apogee/actor"
	"github.com/apogee-mp/apogee/aerror"
	"github.com/apogee-mp/apogee/command"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/physics"
	"github.com/apogee-mp/apogee/protocol"
	"github.com/apogee-mp/apogee/simulation"
	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sandertv/go-raknet"
	"github.com/sirupsen/logrus"
)

// Server simulates every connected player authoritatively and broadcasts
// snapshots each tick.
type Server struct {
	log      *logrus.Logger
	listener *raknet.Listener
	fields   *gravity.Registry
	caster   physics.RayCaster
	spawn    mgl32.Vec3

	mu      sync.Mutex
	players map[uint64]*player
	nextID  uint64
	closed  bool
}

type player struct {
	conn  *raknet.Conn
	actor *actor.Actor
	ctx   *simulation.Context
	pred  *simulation.Predictor

	mu      sync.Mutex
	pending []command.Command
	lastAck uint32
}

// Listen starts a server on addr. Use "127.0.0.1:0" for an ephemeral port and
// read it back with Addr.
func Listen(addr string, fields *gravity.Registry, caster physics.RayCaster, spawn mgl32.Vec3, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logrus.New()
	}
	l, err := raknet.Listen(addr)
	if err != nil {
		return nil, aerror.New("loopback: listen %v: %v", addr, err)
	}
	srv := &Server{
		log:      log,
		listener: l,
		fields:   fields,
		caster:   caster,
		spawn:    spawn,
		players:  make(map[uint64]*player),
	}
	go srv.accept()
	go srv.run()
	return srv, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close drops every player and stops the listener.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for _, p := range s.players {
		_ = p.conn.Close()
	}
	s.players = make(map[uint64]*player)
	s.mu.Unlock()
	_ = s.listener.Close()
}

func (s *Server) accept() {
	defer sentry.Recover()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.nextID++
		id := s.nextID
		ctx := simulation.NewContext(s.fields, s.caster, s.log)
		a := actor.New(id, actor.AuthorityLocal, s.spawn, s.fields.Root())
		if err := ctx.Actors.Add(a); err != nil {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		p := &player{conn: conn.(*raknet.Conn), actor: a, ctx: ctx, pred: simulation.NewPredictor()}
		s.players[id] = p
		s.mu.Unlock()

		hello := protocol.Marshal(&protocol.ServerHello{
			PlayerID:  id,
			FieldID:   a.Field.ID(),
			Timestamp: time.Now().UnixMilli(),
		})
		if _, err := p.conn.Write(hello); err != nil {
			s.drop(id)
			continue
		}

		s.log.WithField("player", id).Info("loopback: player connected")
		go s.read(id, p)
	}
}

func (s *Server) read(id uint64, p *player) {
	defer sentry.Recover()

	buf := make([]byte, 1024*1024)
	for {
		n, err := p.conn.Read(buf)
		if err != nil {
			s.drop(id)
			return
		}
		msg, err := protocol.Unmarshal(buf[:n])
		if err != nil {
			s.log.WithError(err).Warn("loopback: malformed client message")
			continue
		}

		switch m := msg.(type) {
		case *protocol.ClientInput:
			p.mu.Lock()
			p.pending = append(p.pending, command.Command{
				Sequence:    m.Sequence,
				CreatedAt:   time.UnixMilli(m.CreatedAt),
				MoveForward: m.MoveForward,
				MoveLeft:    m.MoveLeft,
				LookDelta:   m.LookDelta,
				Jump:        m.Jump,
				Run:         m.Run,
			})
			p.mu.Unlock()
		case *protocol.PlayerUpdate:
			// Advisory client state; an authoritative server ignores it.
		case *protocol.Disconnect:
			s.drop(id)
			return
		}
	}
}

func (s *Server) drop(id uint64) {
	s.mu.Lock()
	p, ok := s.players[id]
	if ok {
		delete(s.players, id)
	}
	s.mu.Unlock()
	if ok {
		_ = p.conn.Close()
		s.log.WithField("player", id).Info("loopback: player disconnected")
	}
}

// run is the authoritative tick loop.
func (s *Server) run() {
	defer sentry.Recover()

	ticker := time.NewTicker(game.TickDuration)
	defer ticker.Stop()

	for now := range ticker.C {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		for id, p := range s.players {
			s.tickPlayer(id, p, now)
		}
		s.mu.Unlock()
	}
}

func (s *Server) tickPlayer(id uint64, p *player, now time.Time) {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(pending) == 0 {
		pending = []command.Command{{}}
	}
	for _, cmd := range pending {
		p.pred.Simulate(p.ctx, p.actor, cmd, game.TickDelta)
		if cmd.Sequence > p.lastAck {
			p.lastAck = cmd.Sequence
		}
	}

	state := &protocol.PlayerState{
		PlayerID:    id,
		Position:    p.actor.Position,
		Orientation: p.actor.Orientation,
		Velocity:    p.actor.Velocity,
		Grounded:    p.actor.Grounded,
		AckSequence: p.lastAck,
		Timestamp:   now.UnixMilli(),
	}
	data := protocol.Marshal(state)
	for _, other := range s.players {
		if _, err := other.conn.Write(data); err != nil {
			continue
		}
	}
}
