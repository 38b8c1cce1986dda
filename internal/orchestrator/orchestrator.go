// Package orchestrator runs the controller's main loop: button edges, the
// fast tick that drives the watering state machine and the display, and the
// slow tick that samples sensors and decides whether to water.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/plant-irrigator/internal/display"
	"github.com/sweeney/plant-irrigator/internal/gpio"
	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/mqtt"
	"github.com/sweeney/plant-irrigator/internal/sensor"
	"github.com/sweeney/plant-irrigator/internal/state"
)

// Loop periods.
const (
	FastInterval = 500 * time.Millisecond
	SlowInterval = 5 * time.Second
)

// ErrProvisioning is returned by Run when the operator requested
// provisioning mode. The caller owns the takeover.
var ErrProvisioning = errors.New("provisioning requested")

// Deps are the collaborators of the loop. Metrics, MQTTStatus, Now and
// NewCycleID are optional.
type Deps struct {
	Tracker    *state.Tracker
	Sensors    sensor.Port
	Pump       logic.PumpOutput
	Outputs    gpio.Outputs
	Display    display.Display
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Metrics    *metrics.Metrics

	LongPress  time.Duration
	Now        func() time.Time
	NewCycleID func() string
}

// Ticks are the two loop clocks.
type Ticks struct {
	Fast <-chan time.Time
	Slow <-chan time.Time
}

// Orchestrator owns the gesture detector and pump controller. Run, HandleEdge,
// FastTick and SlowTick must be called from one goroutine; TogglePump may be
// called from any.
type Orchestrator struct {
	d        Deps
	gestures *logic.GestureDetector
	pump     *logic.PumpController

	outMu sync.Mutex // indicator writes from the loop and HTTP handlers

	cycleID    string
	displayErr string
}

// New creates an orchestrator.
func New(d Deps) *Orchestrator {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewCycleID == nil {
		d.NewCycleID = uuid.NewString
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Orchestrator{
		d:        d,
		gestures: logic.NewGestureDetector(d.LongPress),
		pump:     logic.NewPumpController(d.Pump),
	}
}

// Run processes edges and ticks until ctx is done or provisioning is
// requested. On return the pump is stopped.
func (o *Orchestrator) Run(ctx context.Context, ticks Ticks, edges <-chan logic.Edge) error {
	o.syncOutputs()
	o.render()

	for {
		select {
		case <-ctx.Done():
			log.Printf("orchestrator: stopping")
			o.Stop()
			return nil

		case e, ok := <-edges:
			if !ok {
				edges = nil
				continue
			}
			o.HandleEdge(e)

		case t := <-ticks.Fast:
			o.FastTick(t)

		case t := <-ticks.Slow:
			if err := o.SlowTick(t); err != nil {
				o.Stop()
				return err
			}
		}
	}
}

// HandleEdge runs one button edge through the gesture detector and applies
// the resulting event.
func (o *Orchestrator) HandleEdge(e logic.Edge) {
	ev, ok := o.gestures.Process(e, o.d.Tracker.APMode())
	if !ok {
		return
	}
	log.Printf("orchestrator: gesture %s (button %s)", ev, e.Button)

	switch ev {
	case logic.GesturePumpToggled:
		o.TogglePump()
	case logic.GestureShortPress:
		o.d.Tracker.ToggleMode()
		o.render()
	case logic.GestureLongPress:
		if o.d.Tracker.LatchAPMode() {
			log.Printf("orchestrator: provisioning mode requested")
			o.outMu.Lock()
			if err := o.d.Outputs.SetModeIndicator(true); err != nil {
				log.Printf("orchestrator: mode indicator: %v", err)
			}
			o.outMu.Unlock()
			o.render()
		}
	}
}

// TogglePump flips the operator's enable flag, drives the indicators and
// returns the new value. A running cycle is left to finish.
func (o *Orchestrator) TogglePump() bool {
	o.outMu.Lock()
	active := o.d.Tracker.ToggleActive()
	if err := o.d.Outputs.SetIndicators(active); err != nil {
		log.Printf("orchestrator: indicators: %v", err)
	}
	o.outMu.Unlock()

	log.Printf("orchestrator: pump active=%v", active)
	o.d.Metrics.PumpActive.Set(metrics.Bool(active))

	detail := "inactive"
	if active {
		detail = "active"
	}
	o.publishEvent(mqtt.WateringEvent{
		Timestamp: o.d.Now(),
		Event:     mqtt.EventPumpToggled,
		Detail:    detail,
	})
	return active
}

// FastTick advances a running watering cycle and refreshes the display.
func (o *Orchestrator) FastTick(now time.Time) {
	if o.pump.Running() {
		o.advance(now)
	}
	o.render()
}

func (o *Orchestrator) advance(now time.Time) {
	step, err := o.pump.Advance(now, o.d.Sensors.ReadMoisture)
	if err != nil {
		log.Printf("orchestrator: watering cycle aborted: %v", err)
		if errors.Is(err, sensor.ErrRead) {
			o.d.Tracker.SetMoistureFailed()
			o.d.Metrics.SensorErrors.WithLabelValues(metrics.SensorMoisture).Inc()
		} else {
			o.d.Metrics.PumpErrors.Inc()
		}
		o.publishEvent(mqtt.WateringEvent{
			Timestamp: now,
			Event:     mqtt.EventWateringAborted,
			CycleID:   o.cycleID,
			Attempt:   o.pump.State().Attempts,
			Detail:    err.Error(),
		})
		o.cycleID = ""
		o.syncPump()
		return
	}

	if step.Measured {
		log.Printf("orchestrator: re-measure %d/%d: %d%%", step.Sample, logic.Remeasurements, step.Moisture)
	}
	if step.Finished {
		o.d.Tracker.SetMoisture(step.Moisture)
		m := o.d.Tracker.Reading().Moisture
		o.publishEvent(mqtt.WateringEvent{
			Timestamp: now,
			Event:     mqtt.EventWateringFinished,
			CycleID:   o.cycleID,
			Attempt:   o.pump.State().Attempts,
			Moisture:  m,
		})
		o.cycleID = ""
	}
	o.syncPump()
}

// SlowTick samples the sensors, evaluates the watering policy and publishes
// a reading. It returns ErrProvisioning once provisioning was requested.
func (o *Orchestrator) SlowTick(now time.Time) error {
	o.sample()

	provisioning := o.d.Tracker.APMode()
	if !provisioning && !o.pump.Running() {
		o.evaluate(now)
	}
	o.syncPump()
	o.publishReading(now)

	if provisioning {
		return ErrProvisioning
	}
	return nil
}

func (o *Orchestrator) sample() {
	amb, err := o.d.Sensors.ReadAmbient()
	if err != nil {
		log.Printf("orchestrator: ambient read: %v", err)
		o.d.Tracker.SetAmbientFailed()
		o.d.Metrics.SensorErrors.WithLabelValues(metrics.SensorAmbient).Inc()
	} else {
		o.d.Tracker.SetAmbient(amb.TemperatureC, amb.Humidity)
		o.d.Metrics.OutsideTemp.Set(amb.TemperatureC)
	}

	// The probe sits in the pot; readings mid-cycle belong to the cycle.
	if o.pump.Running() {
		return
	}
	m, err := o.d.Sensors.ReadMoisture()
	if err != nil {
		log.Printf("orchestrator: moisture read: %v", err)
		o.d.Tracker.SetMoistureFailed()
		o.d.Metrics.SensorErrors.WithLabelValues(metrics.SensorMoisture).Inc()
		return
	}
	o.d.Tracker.SetMoisture(m)
}

func (o *Orchestrator) evaluate(now time.Time) {
	snap := o.d.Tracker.Snapshot()
	in := logic.EvaluateInput{
		Active:      snap.Pump.Active,
		Threshold:   snap.Config.Threshold,
		PumpSeconds: snap.Config.PumpSeconds,
	}
	if !snap.Reading.MoistureFailed {
		in.Moisture = snap.Reading.Moisture
	}

	dec, err := o.pump.Evaluate(now, in)
	if err != nil {
		log.Printf("orchestrator: %v", err)
		o.d.Metrics.PumpErrors.Inc()
		return
	}

	switch dec.Kind {
	case logic.DecisionStarted:
		o.cycleID = o.d.NewCycleID()
		log.Printf("orchestrator: watering attempt %d for %ds (moisture %d%%, threshold %d%%, cycle %s)",
			dec.Attempt, in.PumpSeconds, *in.Moisture, in.Threshold, o.cycleID)
		o.d.Metrics.WateringStarts.Inc()
		o.publishEvent(mqtt.WateringEvent{
			Timestamp: now,
			Event:     mqtt.EventWateringStarted,
			CycleID:   o.cycleID,
			Attempt:   dec.Attempt,
			Moisture:  in.Moisture,
		})

	case logic.DecisionDisabled:
		log.Printf("orchestrator: soil still dry after %d waterings, disabling pump", logic.MaxAttempts)
		o.outMu.Lock()
		o.d.Tracker.SetActive(false)
		if err := o.d.Outputs.SetIndicators(false); err != nil {
			log.Printf("orchestrator: indicators: %v", err)
		}
		o.outMu.Unlock()
		o.d.Metrics.CeilingTrips.Inc()
		o.d.Metrics.PumpActive.Set(0)
		o.publishEvent(mqtt.WateringEvent{
			Timestamp: now,
			Event:     mqtt.EventPumpDisabled,
			Attempt:   dec.Attempt,
			Moisture:  in.Moisture,
			Detail:    fmt.Sprintf("still dry after %d tries", logic.MaxAttempts),
		})
	}
}

// syncPump mirrors the controller into shared state and posts its status.
func (o *Orchestrator) syncPump() {
	ps := o.pump.State()
	o.d.Tracker.SetPumpProgress(ps.Running, ps.Attempts, string(ps.Phase))
	if msg, changed := o.pump.TakeStatus(); changed {
		o.d.Tracker.SetStatus(msg)
	}

	o.d.Metrics.PumpRunning.Set(metrics.Bool(ps.Running))
	o.d.Metrics.Attempts.Set(float64(ps.Attempts))
}

func (o *Orchestrator) syncOutputs() {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	active := o.d.Tracker.Active()
	if err := o.d.Outputs.SetIndicators(active); err != nil {
		log.Printf("orchestrator: indicators: %v", err)
	}
	if err := o.d.Outputs.SetModeIndicator(o.d.Tracker.APMode()); err != nil {
		log.Printf("orchestrator: mode indicator: %v", err)
	}
	o.d.Metrics.PumpActive.Set(metrics.Bool(active))
}

func (o *Orchestrator) render() {
	err := o.d.Display.Show(display.Build(o.d.Tracker.Snapshot()))
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	// log transitions only; the display refreshes twice a second
	if msg != o.displayErr {
		if err != nil {
			log.Printf("orchestrator: display: %v", err)
		} else {
			log.Printf("orchestrator: display recovered")
		}
		o.displayErr = msg
	}
}

func (o *Orchestrator) publishReading(now time.Time) {
	if o.d.MQTTStatus != nil {
		connected := o.d.MQTTStatus.IsConnected()
		o.d.Tracker.SetMQTTConnected(connected)
		o.d.Metrics.MQTTConnected.Set(metrics.Bool(connected))
	}

	snap := o.d.Tracker.Snapshot()
	r := snap.Reading
	if r.Moisture != nil {
		o.d.Metrics.Moisture.Set(float64(*r.Moisture))
	}
	reading := mqtt.Reading{
		Timestamp: now,
		Active:    snap.Pump.Active,
		Running:   snap.Pump.Running,
	}
	if !r.AmbientFailed {
		reading.OutsideTemp = r.OutsideTemp
		reading.OutsideHumidity = r.OutsideHumidity
	}
	if !r.MoistureFailed {
		reading.Moisture = r.Moisture
	}
	if err := o.d.Publisher.PublishReading(reading); err != nil {
		log.Printf("orchestrator: publish reading: %v", err)
	}
}

func (o *Orchestrator) publishEvent(e mqtt.WateringEvent) {
	if err := o.d.Publisher.PublishEvent(e); err != nil {
		log.Printf("orchestrator: publish %s: %v", e.Event, err)
	}
}

// Stop aborts any watering cycle and turns the pump off.
func (o *Orchestrator) Stop() {
	wasRunning := o.pump.Running()
	if err := o.pump.Abort(); err != nil {
		log.Printf("orchestrator: %v", err)
		o.d.Metrics.PumpErrors.Inc()
	}
	if wasRunning {
		o.publishEvent(mqtt.WateringEvent{
			Timestamp: o.d.Now(),
			Event:     mqtt.EventWateringAborted,
			CycleID:   o.cycleID,
			Attempt:   o.pump.State().Attempts,
			Detail:    "stopped",
		})
		o.cycleID = ""
	}
	o.syncPump()
}

// Running reports whether a watering cycle is in progress.
func (o *Orchestrator) Running() bool {
	return o.pump.Running()
}
