package command

import (
	"time"

	"github.com/apogee-mp/apogee/aerror"
)

// Sequencer owns the pending queue of unacknowledged commands for the local
// actor. Commands stay in insertion order; the queue is bounded by age rather
// than length so a reconnect can never replay stale input.
type Sequencer struct {
	pending []Command
	lastSeq uint32
	sawAny  bool
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Enqueue appends cmd to the pending queue. Sequence numbers are assigned by
// the caller and must increase strictly; an out-of-order command is a caller
// error and is rejected rather than reordered.
func (s *Sequencer) Enqueue(cmd Command) error {
	if s.sawAny && cmd.Sequence <= s.lastSeq {
		return aerror.New("command: sequence %d not after %d", cmd.Sequence, s.lastSeq)
	}
	s.pending = append(s.pending, cmd)
	s.lastSeq = cmd.Sequence
	s.sawAny = true
	return nil
}

// Expire drops every command older than maxAge, acknowledged or not, and
// returns the number dropped. This bounds memory and bounds how much input a
// reconnect could ever replay.
func (s *Sequencer) Expire(now time.Time, maxAge time.Duration) int {
	cutoff := 0
	for cutoff < len(s.pending) && now.Sub(s.pending[cutoff].CreatedAt) > maxAge {
		cutoff++
	}
	if cutoff > 0 {
		s.pending = append(s.pending[:0], s.pending[cutoff:]...)
	}
	return cutoff
}

// AcknowledgeUpTo removes every command with a sequence at or below seq and
// returns the removed count. Calling it twice with the same seq is a no-op
// the second time.
func (s *Sequencer) AcknowledgeUpTo(seq uint32) int {
	cutoff := 0
	for cutoff < len(s.pending) && s.pending[cutoff].Sequence <= seq {
		cutoff++
	}
	if cutoff > 0 {
		s.pending = append(s.pending[:0], s.pending[cutoff:]...)
	}
	return cutoff
}

// Tail returns up to k of the most recent pending commands, oldest first.
// The returned slice aliases the queue and must not be retained across ticks.
func (s *Sequencer) Tail(k int) []Command {
	if k <= 0 || len(s.pending) == 0 {
		return nil
	}
	if k > len(s.pending) {
		k = len(s.pending)
	}
	return s.pending[len(s.pending)-k:]
}

// Pending returns the number of unacknowledged commands.
func (s *Sequencer) Pending() int {
	return len(s.pending)
}

// Sequences returns the pending sequence numbers in order, for diagnostics.
func (s *Sequencer) Sequences() []uint32 {
	out := make([]uint32, len(s.pending))
	for i, c := range s.pending {
		out[i] = c.Sequence
	}
	return out
}

// Clear drops every pending command, e.g. after a disconnect grace period.
func (s *Sequencer) Clear() {
	s.pending = s.pending[:0]
}
