// Package telemetry ships reconciliation quality numbers to a diagnostics
// collector over QUIC. It is entirely optional: with no address configured
// every call is a no-op, and a lost collector never affects the simulation.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"
)

const nextProto = "apogee-telemetry-v0"

// Sample is one report of client prediction quality.
type Sample struct {
	Tick        uint64
	Corrections uint64
	Discarded   uint64
	MeanError   float32
	MaxError    float32
}

// Uplink maintains a best-effort connection to the collector. Reports are
// dropped while the connection is down.
type Uplink struct {
	addr string
	log  *logrus.Logger

	mu   sync.Mutex
	conn quic.Connection
}

// Dial starts connecting to addr in the background. An empty addr returns a
// disabled uplink.
func Dial(addr string, log *logrus.Logger) *Uplink {
	if log == nil {
		log = logrus.New()
	}
	u := &Uplink{addr: addr, log: log}
	if addr != "" {
		go u.connect(true)
	}
	return u
}

func (u *Uplink) connect(initial bool) {
	defer sentry.Recover()

	conn, err := quic.DialAddr(context.Background(), u.addr, &tls.Config{
		NextProtos: []string{nextProto},
	}, &quic.Config{
		KeepAlivePeriod: time.Second,
		MaxIdleTimeout:  time.Minute,
	})
	if err != nil {
		time.Sleep(time.Minute)
		go u.connect(false)
		return
	}

	u.mu.Lock()
	u.conn = conn
	u.mu.Unlock()

	if initial {
		u.log.Info("telemetry: connected to collector")
	} else {
		u.log.Info("telemetry: re-established collector connection")
	}

	<-conn.Context().Done()
	u.mu.Lock()
	u.conn = nil
	u.mu.Unlock()
	go u.connect(false)
}

// Available reports whether a collector connection is up.
func (u *Uplink) Available() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn != nil
}

// Report sends one sample on its own unidirectional stream. Failures only
// drop the sample.
func (u *Uplink) Report(s Sample) {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
	if conn == nil {
		return
	}

	go func() {
		defer sentry.Recover()

		stream, err := conn.OpenUniStream()
		if err != nil {
			return
		}
		defer stream.Close()

		var b [32]byte
		binary.LittleEndian.PutUint64(b[0:], s.Tick)
		binary.LittleEndian.PutUint64(b[8:], s.Corrections)
		binary.LittleEndian.PutUint64(b[16:], s.Discarded)
		binary.LittleEndian.PutUint32(b[24:], math.Float32bits(s.MeanError))
		binary.LittleEndian.PutUint32(b[28:], math.Float32bits(s.MaxError))
		_, _ = stream.Write(b[:])
	}()
}
