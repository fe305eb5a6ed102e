package session

import (
	"net"
	"time"

	"github.com/apogee-mp/apogee/aerror"
	"github.com/apogee-mp/apogee/protocol"
	"github.com/apogee-mp/apogee/worker"
	"github.com/getsentry/sentry-go"
	"github.com/sandertv/go-raknet"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Session lifecycle states. A session moves Connecting -> Connected, drops to
// Reconnecting on a transport error, and ends in Disconnected once the
// reconnect attempts run out or Close is called.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// EventKind discriminates the entries on the session's inbound channel.
type EventKind uint8

const (
	// EventMessage carries one decoded server message.
	EventMessage EventKind = iota
	// EventConnected fires after a dial or a successful reconnect. Pending
	// prediction state must be re-baselined: the first snapshot after this
	// event is authoritative regardless of local state.
	EventConnected
	// EventReconnecting fires when the transport dropped and the session is
	// about to retry.
	EventReconnecting
	// EventDisconnected is terminal. Err carries the final transport error,
	// or nil when Close was called.
	EventDisconnected
)

type Event struct {
	Kind    EventKind
	Message protocol.Message
	Err     error
}

// Config holds the connection knobs. The zero value is not usable; fill it
// from settings.Settings.Network.
type Config struct {
	Address           string
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	BackoffCap        time.Duration
	Log               *logrus.Logger
}

// Session is the client's connection to the server. All inbound traffic is
// surfaced on Events() as decoded messages; the simulation drains the channel
// at tick boundaries so network timing never interleaves with a tick.
type Session struct {
	conf Config
	log  *logrus.Logger

	// conn is written by Connect, Close and the reconnect path while Send
	// reads it from the tick goroutine, so access goes through the atomic.
	conn   atomic.Pointer[raknet.Conn]
	events chan Event

	state   atomic.Int32
	closed  atomic.Bool
	latency atomic.Duration

	// lastServerTime filters out-of-order snapshots per actor before they
	// reach the simulation.
	lastServerTime map[uint64]int64
}

// New prepares a session. It does not touch the network until Connect.
func New(conf Config) *Session {
	if conf.Log == nil {
		conf.Log = logrus.New()
	}
	if conf.ReconnectBackoff <= 0 {
		conf.ReconnectBackoff = 500 * time.Millisecond
	}
	if conf.BackoffCap <= 0 {
		conf.BackoffCap = 8 * time.Second
	}
	return &Session{
		conf:           conf,
		log:            conf.Log,
		events:         make(chan Event, 256),
		lastServerTime: make(map[uint64]int64),
	}
}

// Connect dials the server and starts the read loop. It returns once the
// connection is established; inbound traffic arrives on Events() afterwards.
func (s *Session) Connect() error {
	if !s.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		return aerror.New("session: already connected")
	}

	conn, err := raknet.Dial(s.conf.Address)
	if err != nil {
		s.state.Store(StateDisconnected)
		return aerror.New("session: dial %v: %v", s.conf.Address, err)
	}

	s.conn.Store(conn)
	s.state.Store(StateConnected)
	s.push(Event{Kind: EventConnected})
	go s.readLoop()
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() int32 {
	return s.state.Load()
}

// Events is the inbound channel. Drain it with a non-blocking loop at the
// start of every simulation tick.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Send encodes msg and writes it off the tick goroutine. Writes after the
// session disconnected are dropped silently; the tick does not care.
func (s *Session) Send(msg protocol.Message) {
	if s.state.Load() != StateConnected {
		return
	}
	conn := s.conn.Load()
	if conn == nil {
		return
	}
	data := protocol.Marshal(msg)
	worker.Submit(func() {
		if _, err := conn.Write(data); err != nil {
			s.log.WithError(err).Debug("session: dropped outbound message")
		}
	})
}

// Close tells the server goodbye and tears the connection down. The session
// cannot be reused afterwards.
func (s *Session) Close(reason string) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if conn := s.conn.Load(); conn != nil {
		data := protocol.Marshal(&protocol.Disconnect{Reason: reason})
		_, _ = conn.Write(data)
		_ = conn.Close()
	}
	s.state.Store(StateDisconnected)
	s.push(Event{Kind: EventDisconnected})
}

func (s *Session) readLoop() {
	defer sentry.Recover()

	buf := make([]byte, 1024*1024)
	for {
		conn := s.conn.Load()
		if conn == nil {
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			if s.closed.Load() {
				return
			}
			if !s.reconnect(err) {
				return
			}
			continue
		}

		msg, err := protocol.Unmarshal(buf[:n])
		if err != nil {
			// Malformed data is a server bug or corruption, never fatal.
			s.log.WithError(err).Warn("session: discarding malformed message")
			continue
		}
		if !s.fresh(msg) {
			continue
		}
		s.push(Event{Kind: EventMessage, Message: msg})
	}
}

// reconnect retries the dial with doubling backoff. It reports whether the
// read loop should continue on a new connection.
func (s *Session) reconnect(cause error) bool {
	s.state.Store(StateReconnecting)
	s.push(Event{Kind: EventReconnecting, Err: cause})
	if conn := s.conn.Load(); conn != nil {
		_ = conn.Close()
	}

	backoff := s.conf.ReconnectBackoff
	for attempt := 1; attempt <= s.conf.ReconnectAttempts; attempt++ {
		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff,
		}).Info("session: reconnecting")
		time.Sleep(backoff)
		if s.closed.Load() {
			return false
		}

		conn, err := raknet.Dial(s.conf.Address)
		if err == nil {
			s.conn.Store(conn)
			// Per-actor snapshot ordering restarts with the new connection.
			s.lastServerTime = make(map[uint64]int64)
			s.state.Store(StateConnected)
			s.push(Event{Kind: EventConnected})
			return true
		}
		cause = err

		backoff *= 2
		if backoff > s.conf.BackoffCap {
			backoff = s.conf.BackoffCap
		}
	}

	s.state.Store(StateDisconnected)
	s.push(Event{Kind: EventDisconnected, Err: cause})
	return false
}

// fresh drops snapshots that arrived behind a newer one for the same actor.
// Other message kinds always pass.
func (s *Session) fresh(msg protocol.Message) bool {
	state, ok := msg.(*protocol.PlayerState)
	if !ok {
		return true
	}
	if last, ok := s.lastServerTime[state.PlayerID]; ok && state.Timestamp < last {
		return false
	}
	s.lastServerTime[state.PlayerID] = state.Timestamp

	// One-way delay estimate from the snapshot timestamp. Assumes loosely
	// synchronized clocks; good enough for diagnostics, not for simulation.
	if lag := time.Since(time.UnixMilli(state.Timestamp)); lag > 0 {
		s.latency.Store(lag)
	}
	return true
}

// Latency returns the estimated one-way delay of the newest snapshot.
func (s *Session) Latency() time.Duration {
	return s.latency.Load()
}

// push never blocks the read loop: when the simulation stalls and the channel
// fills up, the oldest event is sacrificed for the newest.
func (s *Session) push(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
				s.log.Warn("session: event queue full, dropping oldest")
			default:
			}
		}
	}
}

// Addr returns the remote address, or nil before Connect.
func (s *Session) Addr() net.Addr {
	conn := s.conn.Load()
	if conn == nil {
		return nil
	}
	return conn.RemoteAddr()
}
