package protocol

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestClientInputRoundTrip(t *testing.T) {
	in := &ClientInput{
		Sequence:    42,
		CreatedAt:   1700000000123,
		MoveForward: 1,
		MoveLeft:    -0.5,
		LookDelta:   mgl32.Vec2{0.1, -0.2},
		Jump:        true,
		Run:         true,
	}
	msg, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, ok := msg.(*ClientInput)
	if !ok {
		t.Fatalf("decoded %T, want *ClientInput", msg)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestPlayerStateRoundTrip(t *testing.T) {
	in := &PlayerState{
		PlayerID:    7,
		Position:    mgl32.Vec3{1.5, -300, 2.25},
		Orientation: mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0}),
		Velocity:    mgl32.Vec3{0, -9.8, 0},
		Grounded:    true,
		AckSequence: 991,
		Timestamp:   55,
	}
	msg, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := msg.(*PlayerState)
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0, 0, 0}); err == nil {
		t.Fatal("unknown kind must fail")
	}
	if _, err := Unmarshal(nil); err == nil {
		t.Fatal("empty payload must fail")
	}
}

func TestTruncatedPayloadIsAnError(t *testing.T) {
	full := Marshal(&PlayerState{PlayerID: 1})
	// Chop the payload at every length; none of them may panic, and all but
	// the full message must fail.
	for n := 1; n < len(full); n++ {
		if _, err := Unmarshal(full[:n]); err == nil {
			t.Fatalf("truncation at %d bytes accepted", n)
		}
	}
	if _, err := Unmarshal(full); err != nil {
		t.Fatalf("full message rejected: %v", err)
	}
}

func TestDisconnectLengthAbuse(t *testing.T) {
	// A string header claiming more bytes than the payload holds must fail
	// cleanly instead of over-reading.
	data := []byte{KindDisconnect, 0xff, 0xff, 0xff, 0xff, 'h', 'i'}
	if _, err := Unmarshal(data); err == nil {
		t.Fatal("oversized string length accepted")
	}
}

func TestFieldChangeRoundTrip(t *testing.T) {
	in := &FieldChange{PlayerID: 3, FieldID: 0xdeadbeefcafe, Counter: 12}
	msg, err := Unmarshal(Marshal(in))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out := msg.(*FieldChange); *out != *in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
