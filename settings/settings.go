package settings

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/apogee-mp/apogee/simulation"
	"github.com/pelletier/go-toml"
)

// Settings contains everything configurable about the client: movement feel,
// reconciliation thresholds and the connection behavior.
type Settings struct {
	Movement struct {
		WalkSpeed      float32
		RunMultiplier  float32
		GroundAccel    float32
		AirAccel       float32
		GroundFriction float32
		AirDrag        float32
		JumpImpulse    float32
		// JumpDurationMs bounds how long a single jump may keep the actor
		// airborne before gravity wins regardless of input.
		JumpDurationMs int64
	}
	Reconcile struct {
		// CorrectionEpsilon is the positional error, in meters, above which the
		// client hard-snaps to the server state.
		CorrectionEpsilon float32
		// ReplayDepth is how many of the newest unacknowledged commands are
		// replayed after a correction.
		ReplayDepth int
		// ReplayStrength scales replayed input so a correction cannot be undone
		// by the replay itself.
		ReplayStrength float32
		// CommandMaxAgeMs is how long an unacknowledged command survives in the
		// pending queue before it is expired.
		CommandMaxAgeMs int64
		// SnapshotTrustMs is how long a server grounded flag outvotes local
		// ground probes.
		SnapshotTrustMs int64
	}
	Network struct {
		Address string
		// ReconnectAttempts is the number of reconnects tried before the
		// session enters its terminal disconnected state.
		ReconnectAttempts int
		// ReconnectBackoffMs is the initial reconnect delay; it doubles per
		// attempt up to ReconnectBackoffCapMs.
		ReconnectBackoffMs    int64
		ReconnectBackoffCapMs int64
		// TelemetryAddress is the optional QUIC diagnostics collector. Empty
		// disables telemetry.
		TelemetryAddress string
	}
}

// Default returns the settings used when no file overrides them.
func Default() Settings {
	s := Settings{}
	t := simulation.DefaultTuning()

	s.Movement.WalkSpeed = t.WalkSpeed
	s.Movement.RunMultiplier = t.RunMultiplier
	s.Movement.GroundAccel = t.GroundAccel
	s.Movement.AirAccel = t.AirAccel
	s.Movement.GroundFriction = t.GroundFriction
	s.Movement.AirDrag = t.AirDrag
	s.Movement.JumpImpulse = t.JumpImpulse
	s.Movement.JumpDurationMs = t.JumpDuration.Milliseconds()

	s.Reconcile.CorrectionEpsilon = t.CorrectionEpsilon
	s.Reconcile.ReplayDepth = t.ReplayDepth
	s.Reconcile.ReplayStrength = t.ReplayStrength
	s.Reconcile.CommandMaxAgeMs = t.CommandMaxAge.Milliseconds()
	s.Reconcile.SnapshotTrustMs = t.SnapshotTrust.Milliseconds()

	s.Network.Address = "127.0.0.1:19132"
	s.Network.ReconnectAttempts = 5
	s.Network.ReconnectBackoffMs = 500
	s.Network.ReconnectBackoffCapMs = 8000
	return s
}

// Tuning converts the movement and reconciliation sections into the tuning
// struct the simulation consumes.
func (s Settings) Tuning() simulation.Tuning {
	return simulation.Tuning{
		WalkSpeed:      s.Movement.WalkSpeed,
		RunMultiplier:  s.Movement.RunMultiplier,
		GroundAccel:    s.Movement.GroundAccel,
		AirAccel:       s.Movement.AirAccel,
		GroundFriction: s.Movement.GroundFriction,
		AirDrag:        s.Movement.AirDrag,
		JumpImpulse:    s.Movement.JumpImpulse,
		JumpDuration:   time.Duration(s.Movement.JumpDurationMs) * time.Millisecond,

		CorrectionEpsilon: s.Reconcile.CorrectionEpsilon,
		ReplayDepth:       s.Reconcile.ReplayDepth,
		ReplayStrength:    s.Reconcile.ReplayStrength,
		CommandMaxAge:     time.Duration(s.Reconcile.CommandMaxAgeMs) * time.Millisecond,
		SnapshotTrust:     time.Duration(s.Reconcile.SnapshotTrustMs) * time.Millisecond,
	}
}

// SaveDefault will create and save the default settings file. If the file
// already exists, it will return an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(Default())
		if err != nil {
			return fmt.Errorf("failed encoding default settings: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %v", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, creating it with the
// defaults first if it does not exist.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveDefault(path); err != nil {
			return Settings{}, err
		}
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading settings: %v", err)
	}

	settings := Default()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding settings: %v", err)
	}
	return settings, nil
}
