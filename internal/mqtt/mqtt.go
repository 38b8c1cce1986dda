// Package mqtt publishes controller telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic suffixes under plants/<device>/.
const (
	suffixReadings = "readings"
	suffixEvents   = "events"
	suffixSystem   = "system"
)

// Watering event names.
const (
	EventWateringStarted  = "WATERING_STARTED"
	EventWateringFinished = "WATERING_FINISHED"
	EventWateringAborted  = "WATERING_ABORTED"
	EventPumpDisabled     = "PUMP_DISABLED"
	EventPumpToggled      = "PUMP_TOGGLED"
)

// Topics holds the per-device topic names.
type Topics struct {
	Readings string
	Events   string
	System   string
}

// TopicsFor returns the topics for device.
func TopicsFor(device string) Topics {
	base := "plants/" + device + "/"
	return Topics{
		Readings: base + suffixReadings,
		Events:   base + suffixEvents,
		System:   base + suffixSystem,
	}
}

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishReading sends the latest sensor sample.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(r Reading) error

	// PublishEvent sends a watering or pump event.
	PublishEvent(e WateringEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Reading is one telemetry sample. Nil values were not available.
type Reading struct {
	Timestamp       time.Time
	OutsideTemp     *float64
	OutsideHumidity *float64
	Moisture        *int
	Active          bool
	Running         bool
}

// WateringEvent describes a step of a watering cycle.
type WateringEvent struct {
	Timestamp time.Time
	Event     string
	CycleID   string // groups the events of one cycle; empty for toggles
	Attempt   int
	Moisture  *int
	Detail    string
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, provisioning).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "PROVISIONING"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingPayload is the JSON body of a reading message.
type ReadingPayload struct {
	Timestamp       string   `json:"timestamp"`
	OutsideTemp     *float64 `json:"outside_temperature"`
	OutsideHumidity *float64 `json:"outside_humidity"`
	InsideMoisture  *int     `json:"inside_moisture"`
	PumpActive      bool     `json:"pump_active"`
	PumpRunning     bool     `json:"pump_running"`
}

// FormatReading creates the JSON payload for a reading.
func FormatReading(r Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339),
		OutsideTemp:     r.OutsideTemp,
		OutsideHumidity: r.OutsideHumidity,
		InsideMoisture:  r.Moisture,
		PumpActive:      r.Active,
		PumpRunning:     r.Running,
	})
}

// EventPayload is the JSON body of a watering event.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	CycleID   string `json:"cycle_id,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Moisture  *int   `json:"moisture,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// FormatEvent creates the JSON payload for a watering event.
func FormatEvent(e WateringEvent) ([]byte, error) {
	return json.Marshal(EventPayload{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Event:     e.Event,
		CycleID:   e.CycleID,
		Attempt:   e.Attempt,
		Moisture:  e.Moisture,
		Detail:    e.Detail,
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
