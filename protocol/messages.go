package protocol

import (
	"bytes"

	"github.com/go-gl/mathgl/mgl32"
)

// ServerHello is the first message on a new connection. It tells the client
// which PlayerID names it in subsequent PlayerState broadcasts.
type ServerHello struct {
	PlayerID uint64
	// FieldID is the dominant gravity field at the spawn position.
	FieldID   uint64
	Timestamp int64
}

func (*ServerHello) Kind() byte { return KindServerHello }

func (m *ServerHello) encode(buf *bytes.Buffer) {
	writeUint64(buf, m.PlayerID)
	writeUint64(buf, m.FieldID)
	writeInt64(buf, m.Timestamp)
}

func (m *ServerHello) decode(r *reader) {
	m.PlayerID = r.uint64()
	m.FieldID = r.uint64()
	m.Timestamp = r.int64()
}

// ClientInput is one sampled movement command, sent client to server once per
// simulation tick. CreatedAt is the client's unix time in milliseconds and is
// echoed nowhere; the server only needs it for input expiry.
type ClientInput struct {
	Sequence    uint32
	CreatedAt   int64
	MoveForward float32
	MoveLeft    float32
	LookDelta   mgl32.Vec2
	Jump        bool
	Run         bool
}

func (*ClientInput) Kind() byte { return KindClientInput }

func (m *ClientInput) encode(buf *bytes.Buffer) {
	writeUint32(buf, m.Sequence)
	writeInt64(buf, m.CreatedAt)
	writeFloat32(buf, m.MoveForward)
	writeFloat32(buf, m.MoveLeft)
	writeVec2(buf, m.LookDelta)
	writeBool(buf, m.Jump)
	writeBool(buf, m.Run)
}

func (m *ClientInput) decode(r *reader) {
	m.Sequence = r.uint32()
	m.CreatedAt = r.int64()
	m.MoveForward = r.float32()
	m.MoveLeft = r.float32()
	m.LookDelta = r.vec2()
	m.Jump = r.bool()
	m.Run = r.bool()
}

// PlayerUpdate is the client's predicted state, sent client to server so the
// server can measure divergence. It is advisory only: the server never adopts
// these values, it simulates its own.
type PlayerUpdate struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Velocity    mgl32.Vec3
	Grounded    bool
	Timestamp   int64
}

func (*PlayerUpdate) Kind() byte { return KindPlayerUpdate }

func (m *PlayerUpdate) encode(buf *bytes.Buffer) {
	writeVec3(buf, m.Position)
	writeQuat(buf, m.Orientation)
	writeVec3(buf, m.Velocity)
	writeBool(buf, m.Grounded)
	writeInt64(buf, m.Timestamp)
}

func (m *PlayerUpdate) decode(r *reader) {
	m.Position = r.vec3()
	m.Orientation = r.quat()
	m.Velocity = r.vec3()
	m.Grounded = r.bool()
	m.Timestamp = r.int64()
}

// PlayerState is the authoritative snapshot of one actor, sent server to
// client. AckSequence is the highest ClientInput sequence folded into this
// state; it is only meaningful when PlayerID names the receiving client.
type PlayerState struct {
	PlayerID    uint64
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Velocity    mgl32.Vec3
	Grounded    bool
	AckSequence uint32
	Timestamp   int64
}

func (*PlayerState) Kind() byte { return KindPlayerState }

func (m *PlayerState) encode(buf *bytes.Buffer) {
	writeUint64(buf, m.PlayerID)
	writeVec3(buf, m.Position)
	writeQuat(buf, m.Orientation)
	writeVec3(buf, m.Velocity)
	writeBool(buf, m.Grounded)
	writeUint32(buf, m.AckSequence)
	writeInt64(buf, m.Timestamp)
}

func (m *PlayerState) decode(r *reader) {
	m.PlayerID = r.uint64()
	m.Position = r.vec3()
	m.Orientation = r.quat()
	m.Velocity = r.vec3()
	m.Grounded = r.bool()
	m.AckSequence = r.uint32()
	m.Timestamp = r.int64()
}

// FieldChange announces that an actor's dominant gravity field changed.
// Counter increments per actor, so a late arrival after a newer change can be
// recognised and dropped.
type FieldChange struct {
	PlayerID uint64
	FieldID  uint64
	Counter  uint32
}

func (*FieldChange) Kind() byte { return KindFieldChange }

func (m *FieldChange) encode(buf *bytes.Buffer) {
	writeUint64(buf, m.PlayerID)
	writeUint64(buf, m.FieldID)
	writeUint32(buf, m.Counter)
}

func (m *FieldChange) decode(r *reader) {
	m.PlayerID = r.uint64()
	m.FieldID = r.uint64()
	m.Counter = r.uint32()
}

// Disconnect is sent by either side before closing the connection.
type Disconnect struct {
	Reason string
}

func (*Disconnect) Kind() byte { return KindDisconnect }

func (m *Disconnect) encode(buf *bytes.Buffer) {
	writeString(buf, m.Reason)
}

func (m *Disconnect) decode(r *reader) {
	m.Reason = r.string()
}
