package command

import (
	"testing"
	"time"
)

func TestEnqueueRejectsOutOfOrder(t *testing.T) {
	s := NewSequencer()
	if err := s.Enqueue(Command{Sequence: 5}); err != nil {
		t.Fatalf("enqueue 5: %v", err)
	}
	if err := s.Enqueue(Command{Sequence: 5}); err == nil {
		t.Fatal("duplicate sequence must be rejected")
	}
	if err := s.Enqueue(Command{Sequence: 4}); err == nil {
		t.Fatal("regressing sequence must be rejected")
	}
	if err := s.Enqueue(Command{Sequence: 6}); err != nil {
		t.Fatalf("enqueue 6: %v", err)
	}
	if s.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", s.Pending())
	}
}

func TestAcknowledgeUpTo(t *testing.T) {
	s := NewSequencer()
	for seq := uint32(10); seq <= 15; seq++ {
		if err := s.Enqueue(Command{Sequence: seq}); err != nil {
			t.Fatalf("enqueue %d: %v", seq, err)
		}
	}

	if removed := s.AcknowledgeUpTo(12); removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	want := []uint32{13, 14, 15}
	got := s.Sequences()
	if len(got) != len(want) {
		t.Fatalf("pending = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pending = %v, want %v", got, want)
		}
	}

	// Idempotence: acknowledging the same sequence again removes nothing.
	if removed := s.AcknowledgeUpTo(12); removed != 0 {
		t.Fatalf("second ack removed %d, want 0", removed)
	}
	if len(s.Sequences()) != 3 {
		t.Fatalf("pending changed on idempotent ack")
	}
}

func TestExpireDropsOldCommands(t *testing.T) {
	s := NewSequencer()
	now := time.Now()
	_ = s.Enqueue(Command{Sequence: 1, CreatedAt: now.Add(-3 * time.Second)})
	_ = s.Enqueue(Command{Sequence: 2, CreatedAt: now.Add(-2500 * time.Millisecond)})
	_ = s.Enqueue(Command{Sequence: 3, CreatedAt: now.Add(-500 * time.Millisecond)})

	if dropped := s.Expire(now, 2*time.Second); dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if got := s.Sequences(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("pending = %v, want [3]", got)
	}
}

func TestTail(t *testing.T) {
	s := NewSequencer()
	for seq := uint32(1); seq <= 5; seq++ {
		_ = s.Enqueue(Command{Sequence: seq})
	}

	tail := s.Tail(3)
	if len(tail) != 3 || tail[0].Sequence != 3 || tail[2].Sequence != 5 {
		t.Fatalf("tail = %v", tail)
	}
	if got := s.Tail(10); len(got) != 5 {
		t.Fatalf("oversized tail = %d commands, want 5", len(got))
	}
	if s.Tail(0) != nil {
		t.Fatal("zero tail must be nil")
	}
}
