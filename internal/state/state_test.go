package state

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := RuntimeConfig{Threshold: 40, PumpSeconds: 8, PlantName: "basil"}
	tr := NewTracker(start, cfg, &Credentials{SSID: "home", Password: "secret"})

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v, want %+v", snap.Config, cfg)
	}
	if snap.Credentials == nil || snap.Credentials.SSID != "home" {
		t.Errorf("Credentials: got %+v, want SSID home", snap.Credentials)
	}
	if snap.Mode != ModeMain {
		t.Errorf("Mode: got %q, want %q", snap.Mode, ModeMain)
	}
	if snap.APMode {
		t.Error("expected APMode=false initially")
	}
	if snap.Pump.Active || snap.Pump.Running {
		t.Errorf("expected pump inactive initially, got %+v", snap.Pump)
	}
	if snap.Reading.Moisture != nil {
		t.Error("expected nil Moisture initially")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Threshold != 50 {
		t.Errorf("Threshold: got %d, want 50", cfg.Threshold)
	}
	if cfg.PumpSeconds != 5 {
		t.Errorf("PumpSeconds: got %d, want 5", cfg.PumpSeconds)
	}
}

func TestSetConfig(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	tr.SetConfig(RuntimeConfig{Threshold: 40, PumpSeconds: 10})
	got := tr.Config()
	if got.Threshold != 40 || got.PumpSeconds != 10 {
		t.Errorf("Config: got %+v, want threshold 40 duration 10", got)
	}
}

func TestCredentialsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	if tr.Credentials() != nil {
		t.Fatal("expected nil credentials")
	}

	tr.SetCredentials(Credentials{SSID: "a", Password: "b"})
	c := tr.Credentials()
	c.SSID = "mutated"

	if got := tr.Credentials().SSID; got != "a" {
		t.Errorf("SSID: got %q, want a", got)
	}
}

func TestMoistureClamped(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{130, 100},
	}
	for _, tt := range tests {
		tr.SetMoisture(tt.in)
		got := tr.Reading().Moisture
		if got == nil || *got != tt.want {
			t.Errorf("SetMoisture(%d): got %v, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFailedReadsKeepPreviousValue(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	hum := 55.0
	tr.SetAmbient(21.5, &hum)
	tr.SetMoisture(33)

	tr.SetAmbientFailed()
	tr.SetMoistureFailed()

	r := tr.Reading()
	if !r.AmbientFailed || !r.MoistureFailed {
		t.Errorf("expected both failure flags, got %+v", r)
	}
	if r.OutsideTemp == nil || *r.OutsideTemp != 21.5 {
		t.Errorf("OutsideTemp: got %v, want 21.5", r.OutsideTemp)
	}
	if r.Moisture == nil || *r.Moisture != 33 {
		t.Errorf("Moisture: got %v, want 33", r.Moisture)
	}

	tr.SetMoisture(40)
	if tr.Reading().MoistureFailed {
		t.Error("expected MoistureFailed cleared by a good read")
	}
}

func TestSetAmbientWithoutHumidity(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	tr.SetAmbient(19, nil)

	r := tr.Reading()
	if r.OutsideHumidity != nil {
		t.Errorf("expected nil humidity, got %v", *r.OutsideHumidity)
	}
	if r.OutsideTemp == nil || *r.OutsideTemp != 19 {
		t.Errorf("OutsideTemp: got %v, want 19", r.OutsideTemp)
	}
}

func TestToggleActive(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	if !tr.ToggleActive() {
		t.Error("first toggle: want active")
	}
	if tr.ToggleActive() {
		t.Error("second toggle: want inactive")
	}
	tr.SetActive(true)
	if !tr.Active() {
		t.Error("SetActive(true) not applied")
	}
}

func TestToggleMode(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	if got := tr.ToggleMode(); got != ModeInfo {
		t.Errorf("got %q, want %q", got, ModeInfo)
	}
	if got := tr.ToggleMode(); got != ModeMain {
		t.Errorf("got %q, want %q", got, ModeMain)
	}
}

func TestLatchAPModeIsOneWay(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	if !tr.LatchAPMode() {
		t.Error("first latch: want true")
	}
	if tr.LatchAPMode() {
		t.Error("second latch: want false")
	}
	if !tr.APMode() {
		t.Error("expected APMode=true")
	}
}

func TestSetStatus(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	tr.SetStatus("starting pump for 5s")
	if got := tr.Status(); got != "starting pump for 5s" {
		t.Errorf("Status: got %q", got)
	}
	tr.SetStatus("")
	if got := tr.Snapshot().Status; got != "" {
		t.Errorf("Status after clear: got %q, want empty", got)
	}
}

func TestSetPumpProgress(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	tr.SetActive(true)
	tr.SetPumpProgress(true, 2, "WATERING")

	p := tr.Snapshot().Pump
	if !p.Active || !p.Running || p.Attempts != 2 || p.Phase != "WATERING" {
		t.Errorf("Pump: got %+v", p)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Role: "station", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), DefaultConfig(), nil)

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	tr.SetNetwork(&NetworkInfo{IP: "1.1.1.1"})
	tr.SetConfig(RuntimeConfig{Threshold: 30, PumpSeconds: 3})

	snap1 := tr.Snapshot()

	tr.SetConfig(RuntimeConfig{Threshold: 70, PumpSeconds: 9})
	tr.SetNetwork(&NetworkInfo{IP: "2.2.2.2"})
	snap1.Network.IP = "mutated"

	if snap1.Config.Threshold != 30 {
		t.Error("snapshot should be a copy; Config was modified")
	}
	if got := tr.Snapshot().Network.IP; got != "2.2.2.2" {
		t.Errorf("tracker network modified through snapshot: got %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	temp := 22.5
	moist := 37
	snap := Snapshot{
		Config:        RuntimeConfig{Threshold: 40, PumpSeconds: 10, PlantName: "fern", PlantDate: "2026-01-01"},
		Reading:       SensorReading{OutsideTemp: &temp, Moisture: &moist},
		Pump:          PumpState{Active: true, Attempts: 1},
		Mode:          ModeInfo,
		Status:        "starting pump for 10s",
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
	}

	data := FormatJSON(snap)

	var parsed BackendJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Config.Threshold != 40 || parsed.Config.PumpSeconds != 10 {
		t.Errorf("Config: got %+v", parsed.Config)
	}
	if parsed.Plant.Name != "fern" || parsed.Plant.Date != "2026-01-01" {
		t.Errorf("Plant: got %+v", parsed.Plant)
	}
	if parsed.Readings.InsideMoisture == nil || *parsed.Readings.InsideMoisture != 37 {
		t.Errorf("InsideMoisture: got %v, want 37", parsed.Readings.InsideMoisture)
	}
	if parsed.Readings.OutsideHumidity != nil {
		t.Errorf("OutsideHumidity: got %v, want nil", *parsed.Readings.OutsideHumidity)
	}
	if !parsed.Pump.Active || parsed.Pump.Attempts != 1 {
		t.Errorf("Pump: got %+v", parsed.Pump)
	}
	if parsed.Mode != "info" {
		t.Errorf("Mode: got %q, want info", parsed.Mode)
	}
	if parsed.StatusMessage != "starting pump for 10s" {
		t.Errorf("StatusMessage: got %q", parsed.StatusMessage)
	}
	if parsed.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.UptimeSeconds)
	}
	if parsed.Timestamp != "2026-01-01T00:15:00Z" {
		t.Errorf("Timestamp: got %q", parsed.Timestamp)
	}
}

func TestFormatJSONNullReadings(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	readings := raw["readings"].(map[string]interface{})
	for _, key := range []string{"outside_temperature", "outside_humidity", "inside_moisture"} {
		v, exists := readings[key]
		if !exists {
			t.Errorf("%s: expected key to be present", key)
		}
		if v != nil {
			t.Errorf("%s: got %v, want null", key, v)
		}
	}
	if _, exists := raw["network"]; exists {
		t.Error("network should be omitted when nil")
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Role: "station", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed BackendJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Network.IP)
	}
	if parsed.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Network.SSID)
	}
}

func TestFormatSystemEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Config:    DefaultConfig(),
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
	}

	var parsed SystemJSON
	if err := json.Unmarshal(FormatSystemEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Event)
	}
	if parsed.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Reason)
	}
	if parsed.State.UptimeSeconds != 1800 {
		t.Errorf("UptimeSeconds: got %d, want 1800", parsed.State.UptimeSeconds)
	}
}

func TestFormatSystemEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	json.Unmarshal(FormatSystemEvent(snap, "STARTUP", ""), &raw)
	if _, exists := raw["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if raw["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", raw["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), DefaultConfig(), nil)
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetMoisture(i % 100)
			tr.SetConfig(RuntimeConfig{Threshold: i % 100, PumpSeconds: 1 + i%10})
			tr.ToggleActive()
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
