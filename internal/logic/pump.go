package logic

import (
	"fmt"
	"time"
)

// Watering policy constants. MaxAttempts is a safety bound, not a tunable:
// the evaluation after MaxAttempts consecutive dry waterings disables the pump.
const (
	MaxAttempts       = 2
	SettleTime        = 5 * time.Second
	Remeasurements    = 3
	RemeasureInterval = 3 * time.Second
)

// PumpOutput drives the physical pump.
type PumpOutput interface {
	SetPump(on bool) error
}

// PumpController is the bounded-retry watering state machine.
//
// A cycle is started by Evaluate and driven to completion by Advance:
//
//	Idle -> Watering(deadline) -> Settling(deadline) -> Reverifying(n, deadline) -> Idle
//
// Running is true from the Evaluate that starts a cycle until the Advance that
// ends it. Every exit path, including errors and panics in the read callback,
// leaves Running false and the pump output off.
type PumpController struct {
	out PumpOutput

	running  bool
	attempts int
	phase    Phase
	deadline time.Time
	sample   int

	status      string
	statusDirty bool
}

// NewPumpController creates an idle controller driving out.
func NewPumpController(out PumpOutput) *PumpController {
	return &PumpController{out: out, phase: PhaseIdle}
}

// Evaluate decides whether to start a watering cycle. Call it once per slow tick.
func (c *PumpController) Evaluate(now time.Time, in EvaluateInput) (Decision, error) {
	if c.running {
		return Decision{Kind: DecisionBusy}, nil
	}

	if !in.Active {
		c.phase = PhaseIdle
		c.setStatus("")
		return Decision{Kind: DecisionInactive}, nil
	}

	if in.Moisture == nil {
		// Failed or missing samples never count against the retry ceiling
		c.setStatus("")
		return Decision{Kind: DecisionUnknown}, nil
	}

	if *in.Moisture > in.Threshold {
		c.attempts = 0
		c.phase = PhaseIdle
		c.setStatus("")
		return Decision{Kind: DecisionWet}, nil
	}

	c.attempts++
	if c.attempts > MaxAttempts {
		attempt := c.attempts
		c.attempts = 0
		c.phase = PhaseDisabled
		c.setStatus(fmt.Sprintf("pump disabled: still dry after %d tries", MaxAttempts))
		return Decision{Kind: DecisionDisabled, Attempt: attempt, Disable: true}, nil
	}

	seconds := in.PumpSeconds
	if seconds <= 0 {
		seconds = 1
	}

	c.running = true
	c.phase = PhaseWatering
	c.deadline = now.Add(time.Duration(seconds) * time.Second)
	if err := c.out.SetPump(true); err != nil {
		c.abort()
		c.setStatus("pump error")
		return Decision{Kind: DecisionStarted, Attempt: c.attempts}, fmt.Errorf("start pump: %w", err)
	}
	c.setStatus(fmt.Sprintf("starting pump for %ds", seconds))

	return Decision{Kind: DecisionStarted, Attempt: c.attempts}, nil
}

// Advance drives a running cycle. Call it on every fast tick; it never blocks.
// read is called for each re-measurement and must return moisture in percent.
func (c *PumpController) Advance(now time.Time, read func() (int, error)) (Step, error) {
	if !c.running || now.Before(c.deadline) {
		return Step{Phase: c.phase}, nil
	}

	defer c.recoverAbort()

	switch c.phase {
	case PhaseWatering:
		if err := c.out.SetPump(false); err != nil {
			c.abort()
			c.setStatus("pump error")
			return Step{Phase: c.phase}, fmt.Errorf("stop pump: %w", err)
		}
		c.phase = PhaseSettling
		c.deadline = now.Add(SettleTime)
		c.setStatus(fmt.Sprintf("waiting for settle %ds", int(SettleTime/time.Second)))
		return Step{Phase: c.phase}, nil

	case PhaseSettling:
		c.phase = PhaseReverifying
		c.sample = 0
		return c.remeasure(now, read)

	case PhaseReverifying:
		return c.remeasure(now, read)
	}

	// Unknown phase while running: fail closed
	c.abort()
	return Step{Phase: c.phase}, fmt.Errorf("pump controller in unexpected phase %q", c.phase)
}

func (c *PumpController) remeasure(now time.Time, read func() (int, error)) (Step, error) {
	m, err := read()
	if err != nil {
		c.finish()
		c.setStatus("moisture read failed")
		return Step{Phase: c.phase}, fmt.Errorf("remeasure %d: %w", c.sample+1, err)
	}

	c.sample++
	c.setStatus(fmt.Sprintf("moisture %d%% (%d/%d)", m, c.sample, Remeasurements))

	step := Step{Measured: true, Moisture: m, Sample: c.sample}
	if c.sample >= Remeasurements {
		c.finish()
		step.Finished = true
	} else {
		c.deadline = now.Add(RemeasureInterval)
	}
	step.Phase = c.phase
	return step, nil
}

// Abort stops any running cycle and forces the pump output off.
func (c *PumpController) Abort() error {
	wasRunning := c.running
	c.finish()
	if err := c.out.SetPump(false); err != nil {
		return fmt.Errorf("stop pump: %w", err)
	}
	if wasRunning {
		c.setStatus("")
	}
	return nil
}

// recoverAbort leaves the controller stopped if the read callback panics.
func (c *PumpController) recoverAbort() {
	if r := recover(); r != nil {
		c.abort()
		panic(r)
	}
}

func (c *PumpController) abort() {
	c.finish()
	_ = c.out.SetPump(false)
}

func (c *PumpController) finish() {
	c.running = false
	c.phase = PhaseIdle
	c.deadline = time.Time{}
	c.sample = 0
}

func (c *PumpController) setStatus(s string) {
	if s == c.status {
		return
	}
	c.status = s
	c.statusDirty = true
}

// TakeStatus returns the status overlay text if it changed since the last call.
// An empty string means the controller cleared its message.
func (c *PumpController) TakeStatus() (string, bool) {
	if !c.statusDirty {
		return "", false
	}
	c.statusDirty = false
	return c.status, true
}

// Running reports whether a watering cycle is in progress.
func (c *PumpController) Running() bool {
	return c.running
}

// State returns the externally visible controller state.
func (c *PumpController) State() PumpState {
	return PumpState{
		Running:  c.running,
		Attempts: c.attempts,
		Phase:    c.phase,
	}
}
