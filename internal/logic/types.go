// Package logic contains the pure control logic of the irrigation controller:
// button gesture detection and the watering state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time / time.Duration parameters.
package logic

import "time"

// Button identifies one of the two front-panel inputs.
type Button int

const (
	ButtonA Button = iota // pump enable toggle
	ButtonB               // page switch / long-press provisioning
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	}
	return "?"
}

// Edge is a single logical transition on a button line.
// Rising means the button went to the pressed state.
type Edge struct {
	Button    Button
	Rising    bool
	Timestamp time.Duration // monotonic hardware timestamp
}

// GestureEvent is a semantic input event derived from button edges.
type GestureEvent string

const (
	GesturePumpToggled GestureEvent = "PUMP_TOGGLED"
	GestureShortPress  GestureEvent = "SHORT_PRESS"
	GestureLongPress   GestureEvent = "LONG_PRESS"
)

// Phase is the current step of a watering cycle.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseWatering    Phase = "WATERING"
	PhaseSettling    Phase = "SETTLING"
	PhaseReverifying Phase = "REVERIFYING"
	PhaseDisabled    Phase = "DISABLED"
)

// DecisionKind is the outcome of a single Evaluate call.
type DecisionKind string

const (
	DecisionInactive DecisionKind = "INACTIVE" // pump not enabled
	DecisionBusy     DecisionKind = "BUSY"     // a cycle is already running
	DecisionUnknown  DecisionKind = "UNKNOWN"  // no valid moisture sample
	DecisionWet      DecisionKind = "WET"      // moisture above threshold, attempts reset
	DecisionStarted  DecisionKind = "STARTED"  // watering started
	DecisionDisabled DecisionKind = "DISABLED" // retry ceiling reached, pump disabled
)

// EvaluateInput is the view of shared state the pump controller decides on.
type EvaluateInput struct {
	Active      bool
	Moisture    *int // nil = not sampled or last read failed
	Threshold   int
	PumpSeconds int
}

// Decision describes what Evaluate did.
type Decision struct {
	Kind    DecisionKind
	Attempt int // attempt number for DecisionStarted / DecisionDisabled
	// Disable is set when the caller must clear the operator's enable flag.
	Disable bool
}

// Step describes what a single Advance call did.
type Step struct {
	Phase    Phase // phase after the call
	Measured bool  // a re-measurement was taken
	Moisture int   // valid when Measured
	Sample   int   // 1-based re-measurement index when Measured
	Finished bool  // the cycle completed on this call
}

// PumpState is the externally visible state of the pump controller.
type PumpState struct {
	Running  bool
	Attempts int
	Phase    Phase
}
