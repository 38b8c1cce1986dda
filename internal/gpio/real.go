//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// ButtonDebounce filters contact bounce in the kernel.
const ButtonDebounce = 10 * time.Millisecond

// RealButtons watches both button lines and pushes logical edges to a queue.
// Buttons are wired active-low against the internal pull-up, so a falling
// line is a press.
type RealButtons struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealButtons requests both button lines with edge detection on both edges.
func NewRealButtons(pinA, pinB int, q *EdgeQueue) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	buttons := map[int]logic.Button{pinA: logic.ButtonA, pinB: logic.ButtonB}
	handler := func(evt gpiocdev.LineEvent) {
		b, ok := buttons[evt.Offset]
		if !ok {
			return
		}
		q.Push(logic.Edge{
			Button:    b,
			Rising:    evt.Type == gpiocdev.LineEventFallingEdge,
			Timestamp: evt.Timestamp,
		})
	}

	lines, err := chip.RequestLines([]int{pinA, pinB},
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(ButtonDebounce),
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pins %d,%d: %w", pinA, pinB, err)
	}

	return &RealButtons{chip: chip, lines: lines}, nil
}

// Close releases the button lines and stops event delivery.
func (r *RealButtons) Close() error {
	var errs []error
	if r.lines != nil {
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RealOutputs drives the two indicator lines and the mode line.
type RealOutputs struct {
	chip       *gpiocdev.Chip
	indicators *gpiocdev.Lines
	mode       *gpiocdev.Line
}

// NewRealOutputs requests the output lines, all initially low.
func NewRealOutputs(pin1, pin2, pinMode int) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	indicators, err := chip.RequestLines([]int{pin1, pin2}, gpiocdev.AsOutput(0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request indicator pins %d,%d: %w", pin1, pin2, err)
	}

	mode, err := chip.RequestLine(pinMode, gpiocdev.AsOutput(0))
	if err != nil {
		indicators.Close()
		chip.Close()
		return nil, fmt.Errorf("request mode pin %d: %w", pinMode, err)
	}

	return &RealOutputs{chip: chip, indicators: indicators, mode: mode}, nil
}

// SetIndicators lights indicator 1 when active and indicator 2 otherwise.
func (r *RealOutputs) SetIndicators(active bool) error {
	v1, v2 := 0, 1
	if active {
		v1, v2 = 1, 0
	}
	if err := r.indicators.SetValues([]int{v1, v2}); err != nil {
		return fmt.Errorf("set indicators: %w", err)
	}
	return nil
}

// SetModeIndicator switches the mode line.
func (r *RealOutputs) SetModeIndicator(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.mode.SetValue(v); err != nil {
		return fmt.Errorf("set mode indicator: %w", err)
	}
	return nil
}

// Close drives all outputs low, then returns the lines to inputs with
// pull-down (matching Pi boot defaults) before releasing them.
func (r *RealOutputs) Close() error {
	var errs []error

	if r.indicators != nil {
		if err := r.indicators.SetValues([]int{0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("clear indicators: %w", err))
		}
		if err := r.indicators.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure indicator pins: %w", err))
		}
		if err := r.indicators.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator pins: %w", err))
		}
	}
	if r.mode != nil {
		if err := r.mode.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear mode pin: %w", err))
		}
		if err := r.mode.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure mode pin: %w", err))
		}
		if err := r.mode.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mode pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
