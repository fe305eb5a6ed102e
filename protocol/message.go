package protocol

import (
	"bytes"

	"github.com/apogee-mp/apogee/aerror"
	"github.com/apogee-mp/apogee/internal"
)

// Message kinds form a closed set: decoding matches on them exhaustively and
// an unknown kind is a decode error, never a silent fallthrough.
const (
	_ = iota
	KindServerHello
	KindClientInput
	KindPlayerUpdate
	KindPlayerState
	KindFieldChange
	KindDisconnect
)

// Message is one typed unit on the wire. The transport guarantees ordering
// within a message kind but may drop messages; everything here is therefore
// either idempotent or carries the sequence/timestamp needed to detect loss.
type Message interface {
	Kind() byte
	encode(buf *bytes.Buffer)
	decode(r *reader)
}

// Marshal encodes msg with a one-byte kind prefix.
func Marshal(msg Message) []byte {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer internal.BufferPool.Put(buf)

	buf.WriteByte(msg.Kind())
	msg.encode(buf)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// Unmarshal decodes one message. Malformed or truncated data returns an
// error; it never panics, since the bytes come straight off the network.
func Unmarshal(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, aerror.New("protocol: empty message")
	}

	var msg Message
	switch data[0] {
	case KindServerHello:
		msg = &ServerHello{}
	case KindClientInput:
		msg = &ClientInput{}
	case KindPlayerUpdate:
		msg = &PlayerUpdate{}
	case KindPlayerState:
		msg = &PlayerState{}
	case KindFieldChange:
		msg = &FieldChange{}
	case KindDisconnect:
		msg = &Disconnect{}
	default:
		return nil, aerror.New("protocol: unknown message kind %d", data[0])
	}

	r := &reader{data: data[1:]}
	msg.decode(r)
	if r.failed {
		return nil, aerror.New("protocol: truncated message kind %d", data[0])
	}
	return msg, nil
}
