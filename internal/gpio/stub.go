//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(pinA, pinB int, q *EdgeQueue) (*RealButtons, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealButtons) Close() error {
	return nil
}

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(pin1, pin2, pinMode int) (*RealOutputs, error) {
	return nil, errUnsupported
}

// SetIndicators is not implemented on non-Linux platforms.
func (r *RealOutputs) SetIndicators(active bool) error {
	return errors.New("gpio: not supported")
}

// SetModeIndicator is not implemented on non-Linux platforms.
func (r *RealOutputs) SetModeIndicator(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutputs) Close() error {
	return nil
}
