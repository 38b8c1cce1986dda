//go:build linux

package pwm

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio"
)

// RealPump drives the pump pin with hardware PWM.
type RealPump struct {
	mu  sync.Mutex
	pin rpio.Pin
	on  bool
}

// NewRealPump maps GPIO memory and configures pin for PWM, output off.
func NewRealPump(pin int) (*RealPump, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	// Clock frequency divided by cycle length gives the output frequency
	p.Freq(Frequency * DutyDen)
	p.DutyCycle(0, DutyDen)

	return &RealPump{pin: p}, nil
}

// SetPump sets the output to the fixed duty cycle or to zero.
func (r *RealPump) SetPump(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if on {
		r.pin.DutyCycle(DutyNum, DutyDen)
	} else {
		r.pin.DutyCycle(0, DutyDen)
	}
	r.on = on
	return nil
}

// Close turns the pump off, returns the pin to input and unmaps GPIO memory.
func (r *RealPump) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pin.DutyCycle(0, DutyDen)
	r.pin.Input()
	r.on = false
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
