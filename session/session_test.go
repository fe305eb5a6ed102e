package session

import (
	"testing"
	"time"

	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/loopback"
	"github.com/apogee-mp/apogee/protocol"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testServer(t *testing.T) *loopback.Server {
	t.Helper()
	planet := gravity.NewField("planet", mgl32.Vec3{0, -250, 0}, 25, 10000)
	reg, err := gravity.NewRegistry(planet)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	srv, err := loopback.Listen("127.0.0.1:0", reg, nil, mgl32.Vec3{0, 50, 0}, quietLog())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func waitEvent(t *testing.T, s *Session, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event of kind %d within %v", kind, timeout)
		}
	}
}

func TestSessionReceivesSnapshots(t *testing.T) {
	srv := testServer(t)
	s := New(Config{Address: srv.Addr(), ReconnectAttempts: 1, Log: quietLog()})
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close("test over")

	waitEvent(t, s, EventConnected, 5*time.Second)
	if s.State() != StateConnected {
		t.Fatalf("state = %d, want connected", s.State())
	}

	ev := waitEvent(t, s, EventMessage, 5*time.Second)
	hello, ok := ev.Message.(*protocol.ServerHello)
	if !ok {
		t.Fatalf("first message is %T, want *ServerHello", ev.Message)
	}
	if hello.PlayerID == 0 {
		t.Fatal("hello missing player id")
	}

	s.Send(&protocol.ClientInput{Sequence: 1, CreatedAt: time.Now().UnixMilli(), MoveForward: 1})

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if state, ok := ev.Message.(*protocol.PlayerState); ok {
				if state.PlayerID != hello.PlayerID {
					t.Fatalf("snapshot for player %d, want %d", state.PlayerID, hello.PlayerID)
				}
				if state.Timestamp == 0 {
					t.Fatal("snapshot missing server timestamp")
				}
				return
			}
		case <-deadline:
			t.Fatal("no snapshot received")
		}
	}
}

func TestSessionRejectsDoubleConnect(t *testing.T) {
	srv := testServer(t)
	s := New(Config{Address: srv.Addr(), ReconnectAttempts: 1, Log: quietLog()})
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close("test over")

	if err := s.Connect(); err == nil {
		t.Fatal("second connect must fail")
	}
}

func TestSessionTerminalDisconnect(t *testing.T) {
	srv := testServer(t)
	s := New(Config{
		Address:           srv.Addr(),
		ReconnectAttempts: 2,
		ReconnectBackoff:  10 * time.Millisecond,
		BackoffCap:        20 * time.Millisecond,
		Log:               quietLog(),
	})
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitEvent(t, s, EventConnected, 5*time.Second)

	// Kill the server; the session must retry and then give up for good.
	srv.Close()
	waitEvent(t, s, EventReconnecting, 15*time.Second)
	waitEvent(t, s, EventDisconnected, 15*time.Second)
	if s.State() != StateDisconnected {
		t.Fatalf("state = %d, want disconnected", s.State())
	}
}

func TestSendSafeAcrossConnectionLoss(t *testing.T) {
	srv := testServer(t)
	s := New(Config{
		Address:           srv.Addr(),
		ReconnectAttempts: 2,
		ReconnectBackoff:  10 * time.Millisecond,
		BackoffCap:        20 * time.Millisecond,
		Log:               quietLog(),
	})
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitEvent(t, s, EventConnected, 5*time.Second)

	// Keep sending from another goroutine while the connection drops and the
	// reconnect path swaps the transport underneath.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint32(0); i < 2000; i++ {
			s.Send(&protocol.ClientInput{Sequence: i})
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	srv.Close()
	waitEvent(t, s, EventDisconnected, 15*time.Second)
	s.Close("test over")
	<-done
}

func TestSnapshotOrderingFilter(t *testing.T) {
	s := New(Config{Address: "127.0.0.1:1", Log: quietLog()})

	newer := &protocol.PlayerState{PlayerID: 1, Timestamp: 200}
	older := &protocol.PlayerState{PlayerID: 1, Timestamp: 100}
	other := &protocol.PlayerState{PlayerID: 2, Timestamp: 100}

	if !s.fresh(newer) {
		t.Fatal("first snapshot must pass")
	}
	if s.fresh(older) {
		t.Fatal("regressing snapshot must be dropped")
	}
	if !s.fresh(other) {
		t.Fatal("ordering is per actor")
	}
	if !s.fresh(&protocol.FieldChange{}) {
		t.Fatal("non-snapshot messages always pass")
	}
}
