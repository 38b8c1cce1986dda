// Package state holds the controller's shared mutable state.
// It is written by the orchestrator loop and the HTTP handlers and read by the
// display, telemetry and the backend data endpoint. Every setter replaces whole
// fields under the lock, so readers see either the old or the new value.
package state

import (
	"sync"
	"time"
)

// Defaults applied when no pump configuration has been persisted.
const (
	DefaultThreshold   = 50
	DefaultPumpSeconds = 5
)

// Mode is the display page selected with Button B.
type Mode string

const (
	ModeMain Mode = "main"
	ModeInfo Mode = "info"
)

// RuntimeConfig is the operator-tunable configuration.
type RuntimeConfig struct {
	Threshold   int // moisture percent at or below which the plant is watered
	PumpSeconds int
	PlantName   string
	PlantDate   string
}

// DefaultConfig returns the configuration used when nothing is persisted.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{Threshold: DefaultThreshold, PumpSeconds: DefaultPumpSeconds}
}

// Credentials are the station-mode Wi-Fi credentials.
type Credentials struct {
	SSID     string
	Password string
}

// SensorReading is the latest sample. A nil field has never been sampled.
// The *Failed flags mark that the most recent read failed; the value then
// holds the previous valid sample.
type SensorReading struct {
	OutsideTemp     *float64
	OutsideHumidity *float64
	Moisture        *int
	AmbientFailed   bool
	MoistureFailed  bool
}

// PumpState mirrors the pump controller and the operator's enable flag.
type PumpState struct {
	Active   bool
	Running  bool
	Attempts int
	Phase    string
}

// NetworkInfo describes the current network role.
type NetworkInfo struct {
	Role   string // "station", "ap" or "offline"
	Status string
	SSID   string
	IP     string
}

// Snapshot is a point-in-time view of controller state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Config        RuntimeConfig
	Credentials   *Credentials
	Reading       SensorReading
	Pump          PumpState
	Mode          Mode
	APMode        bool
	Status        string
	Network       *NetworkInfo
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the loaded configuration and credentials.
func NewTracker(startTime time.Time, cfg RuntimeConfig, creds *Credentials) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Config:      cfg,
			Credentials: copyCredentials(creds),
			Mode:        ModeMain,
			StartTime:   startTime,
		},
	}
}

// Config returns the current runtime configuration.
func (t *Tracker) Config() RuntimeConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Config
}

// SetConfig replaces the runtime configuration.
func (t *Tracker) SetConfig(cfg RuntimeConfig) {
	t.mu.Lock()
	t.snap.Config = cfg
	t.mu.Unlock()
}

// Credentials returns a copy of the Wi-Fi credentials, or nil if none are set.
func (t *Tracker) Credentials() *Credentials {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyCredentials(t.snap.Credentials)
}

// SetCredentials replaces the Wi-Fi credentials.
func (t *Tracker) SetCredentials(c Credentials) {
	t.mu.Lock()
	t.snap.Credentials = &c
	t.mu.Unlock()
}

// Reading returns the latest sensor reading.
func (t *Tracker) Reading() SensorReading {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Reading
}

// SetAmbient records a successful ambient probe read. humidity may be nil
// for temperature-only probes.
func (t *Tracker) SetAmbient(temp float64, humidity *float64) {
	t.mu.Lock()
	t.snap.Reading.OutsideTemp = &temp
	if humidity != nil {
		h := *humidity
		t.snap.Reading.OutsideHumidity = &h
	}
	t.snap.Reading.AmbientFailed = false
	t.mu.Unlock()
}

// SetAmbientFailed marks the last ambient read as failed, keeping the previous values.
func (t *Tracker) SetAmbientFailed() {
	t.mu.Lock()
	t.snap.Reading.AmbientFailed = true
	t.mu.Unlock()
}

// SetMoisture records a successful moisture read, clamped to [0,100].
func (t *Tracker) SetMoisture(percent int) {
	percent = clampPercent(percent)
	t.mu.Lock()
	t.snap.Reading.Moisture = &percent
	t.snap.Reading.MoistureFailed = false
	t.mu.Unlock()
}

// SetMoistureFailed marks the last moisture read as failed, keeping the previous value.
func (t *Tracker) SetMoistureFailed() {
	t.mu.Lock()
	t.snap.Reading.MoistureFailed = true
	t.mu.Unlock()
}

// Active reports the operator's pump enable flag.
func (t *Tracker) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Pump.Active
}

// SetActive sets the pump enable flag.
func (t *Tracker) SetActive(active bool) {
	t.mu.Lock()
	t.snap.Pump.Active = active
	t.mu.Unlock()
}

// ToggleActive flips the pump enable flag and returns the new value.
func (t *Tracker) ToggleActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Pump.Active = !t.snap.Pump.Active
	return t.snap.Pump.Active
}

// SetPumpProgress mirrors the pump controller's state.
func (t *Tracker) SetPumpProgress(running bool, attempts int, phase string) {
	t.mu.Lock()
	t.snap.Pump.Running = running
	t.snap.Pump.Attempts = attempts
	t.snap.Pump.Phase = phase
	t.mu.Unlock()
}

// Mode returns the selected display page.
func (t *Tracker) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Mode
}

// ToggleMode switches between the main and info pages and returns the new mode.
func (t *Tracker) ToggleMode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.Mode == ModeInfo {
		t.snap.Mode = ModeMain
	} else {
		t.snap.Mode = ModeInfo
	}
	return t.snap.Mode
}

// APMode reports whether provisioning mode has been requested.
func (t *Tracker) APMode() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.APMode
}

// LatchAPMode sets the provisioning latch. It is never cleared within a process
// lifetime. Returns true if this call set it.
func (t *Tracker) LatchAPMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.APMode {
		return false
	}
	t.snap.APMode = true
	return true
}

// Status returns the status overlay text, empty when none is posted.
func (t *Tracker) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Status
}

// SetStatus posts (or, with "", clears) the status overlay. While the control
// loop runs it is the only writer; the provisioning takeover writes it after.
func (t *Tracker) SetStatus(msg string) {
	t.mu.Lock()
	t.snap.Status = msg
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetMQTTConnected sets the telemetry connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Credentials = copyCredentials(t.snap.Credentials)
	if t.snap.Network != nil {
		n := *t.snap.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

func copyCredentials(c *Credentials) *Credentials {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
