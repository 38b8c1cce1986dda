// Package pwm drives the water pump through the SoC's hardware PWM block.
// The real implementation uses go-rpio register access and is Linux-only.
package pwm

// Pump output parameters. The duty is fixed: the pump is either off or
// running at DutyNum/DutyDen.
const (
	PinPump   = 18  // BCM, PWM0
	Frequency = 200 // Hz at the pin
	DutyNum   = 22
	DutyDen   = 32 // ~69%
)

// Pump switches the pump output. It satisfies logic.PumpOutput.
type Pump interface {
	SetPump(on bool) error
	Close() error
}
