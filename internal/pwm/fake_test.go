package pwm

import (
	"errors"
	"testing"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

var _ logic.PumpOutput = (*FakePump)(nil)
var _ Pump = (*FakePump)(nil)
var _ Pump = (*RealPump)(nil)

func TestFakePumpCountsStarts(t *testing.T) {
	f := NewFakePump()

	f.SetPump(true)
	f.SetPump(true) // already on, not a new start
	f.SetPump(false)
	f.SetPump(true)

	if f.Starts() != 2 {
		t.Errorf("Starts: got %d, want 2", f.Starts())
	}
	if !f.On() {
		t.Error("expected pump on")
	}
	if got := len(f.History()); got != 4 {
		t.Errorf("History length: got %d, want 4", got)
	}
}

func TestFakePumpSetError(t *testing.T) {
	f := NewFakePump()
	f.SetError = errors.New("bus fault")

	if err := f.SetPump(true); err == nil {
		t.Error("expected error")
	}
	if !f.On() {
		t.Error("state should still be recorded")
	}
}

func TestFakePumpCloseTurnsOff(t *testing.T) {
	f := NewFakePump()
	f.SetPump(true)
	f.Close()

	if f.On() {
		t.Error("expected pump off after Close")
	}
	if !f.Closed() {
		t.Error("expected Closed")
	}
}

func TestDutyCycle(t *testing.T) {
	// Matches 45000/65535 at 16-bit resolution
	duty := float64(DutyNum) / float64(DutyDen)
	if duty < 0.68 || duty > 0.70 {
		t.Errorf("duty: got %.3f, want ~0.69", duty)
	}
}
