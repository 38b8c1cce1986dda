// Package strip drives the cosmetic RGB LED strip: a solid colour or a
// repeating rainbow animation. At most one animation runs at a time.
package strip

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Defaults for the panel strip.
const (
	DefaultPixels     = 8
	DefaultBrightness = 50
	RainbowInterval   = 42 * time.Millisecond
)

// RGB is one pixel colour.
type RGB struct {
	R, G, B uint8
}

// Off is black.
var Off = RGB{}

// Rainbow is the seven-colour palette spread across the strip.
var Rainbow = []RGB{
	{255, 0, 0},   // red
	{255, 50, 0},  // orange
	{255, 100, 0}, // yellow
	{0, 255, 0},   // green
	{0, 0, 255},   // blue
	{100, 0, 90},  // indigo
	{200, 0, 100}, // violet
}

// ParseRGB parses "r,g,b" with each component in 0..255.
func ParseRGB(s string) (RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("rgb %q: want r,g,b", s)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("rgb %q: component %d: %w", s, i, err)
		}
		v[i] = uint8(n)
	}
	return RGB{v[0], v[1], v[2]}, nil
}

// Driver writes a full frame of pixels to the hardware.
type Driver interface {
	Write(pixels []RGB) error
	Close() error
}

// Strip owns the driver and the animation goroutine.
type Strip struct {
	mu         sync.Mutex
	drv        Driver
	n          int
	brightness uint8
	color      RGB

	stop chan struct{}
	done chan struct{}

	wmu sync.Mutex // serialises driver writes
}

// New creates a Strip of n pixels. brightness scales every channel (0..255).
func New(drv Driver, n int, brightness uint8) *Strip {
	if n <= 0 {
		n = DefaultPixels
	}
	return &Strip{drv: drv, n: n, brightness: brightness}
}

// SetColor stops any animation and fills the strip with c.
func (s *Strip) SetColor(c RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.color = c
	return s.fill(c)
}

// TurnOff stops any animation and blanks the strip.
func (s *Strip) TurnOff() error {
	return s.SetColor(Off)
}

// RunRainbow stops any running animation and starts the rainbow, advancing
// one pixel per interval until stopped.
func (s *Strip) RunRainbow(interval time.Duration) {
	if interval <= 0 {
		interval = RainbowInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	frame := Gradient(Rainbow, s.n)
	go s.animate(frame, interval, stop, done)
}

func (s *Strip) animate(frame []RGB, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame = RotateRight(frame)
			if err := s.write(frame); err != nil {
				// A failing strip is cosmetic; keep the controller running
				return
			}
		}
	}
}

// Stop halts a running animation and waits for it to exit. The last frame stays lit.
func (s *Strip) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Strip) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}

// Animating reports whether an animation is running.
func (s *Strip) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Color returns the last solid colour set.
func (s *Strip) Color() RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

// Close stops any animation, blanks the strip and closes the driver.
func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	blankErr := s.fill(Off)
	if err := s.drv.Close(); err != nil {
		return fmt.Errorf("close strip driver: %w", err)
	}
	return blankErr
}

func (s *Strip) fill(c RGB) error {
	frame := make([]RGB, s.n)
	for i := range frame {
		frame[i] = c
	}
	return s.write(frame)
}

func (s *Strip) write(frame []RGB) error {
	scaled := make([]RGB, len(frame))
	for i, p := range frame {
		scaled[i] = scale(p, s.brightness)
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.drv.Write(scaled); err != nil {
		return fmt.Errorf("write strip: %w", err)
	}
	return nil
}

func scale(c RGB, b uint8) RGB {
	return RGB{
		R: uint8(uint16(c.R) * uint16(b) / 255),
		G: uint8(uint16(c.G) * uint16(b) / 255),
		B: uint8(uint16(c.B) * uint16(b) / 255),
	}
}

// Gradient spreads palette evenly over n pixels, interpolating linearly
// between neighbouring colours and wrapping from the last back to the first.
func Gradient(palette []RGB, n int) []RGB {
	out := make([]RGB, n)
	if len(palette) == 0 || n == 0 {
		return out
	}
	k := len(palette)
	for i := range out {
		pos := float64(i) * float64(k) / float64(n)
		idx := int(pos)
		frac := pos - float64(idx)
		a := palette[idx%k]
		b := palette[(idx+1)%k]
		out[i] = RGB{
			R: lerp(a.R, b.R, frac),
			G: lerp(a.G, b.G, frac),
			B: lerp(a.B, b.B, frac),
		}
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// RotateRight returns frame shifted one pixel towards the end, wrapping the last pixel to the front.
func RotateRight(frame []RGB) []RGB {
	n := len(frame)
	if n == 0 {
		return frame
	}
	out := make([]RGB, n)
	out[0] = frame[n-1]
	copy(out[1:], frame[:n-1])
	return out
}
