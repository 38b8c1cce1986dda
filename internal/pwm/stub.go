//go:build !linux

package pwm

import "errors"

// RealPump is not available on non-Linux platforms.
type RealPump struct{}

// NewRealPump returns an error on non-Linux platforms.
func NewRealPump(pin int) (*RealPump, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

// SetPump is not implemented on non-Linux platforms.
func (r *RealPump) SetPump(on bool) error {
	return errors.New("pwm: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPump) Close() error {
	return nil
}
