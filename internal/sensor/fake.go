package sensor

import (
	"fmt"
	"sync"
)

// MoistureSample is a scripted soil reading. A non-nil Err makes the read fail.
type MoistureSample struct {
	Percent int
	Err     error
}

// AmbientSample is a scripted ambient reading. A non-nil Err makes the read fail.
type AmbientSample struct {
	Ambient Ambient
	Err     error
}

// FakePort is a Port for testing. Scripted samples are consumed in order;
// once exhausted the last sample repeats.
type FakePort struct {
	mu       sync.Mutex
	moisture []MoistureSample
	ambient  []AmbientSample
	mIdx     int
	aIdx     int
	mReads   int
	aReads   int
	closed   bool
}

// NewFakePort creates a FakePort with the given scripts.
func NewFakePort(moisture []MoistureSample, ambient []AmbientSample) *FakePort {
	return &FakePort{moisture: moisture, ambient: ambient}
}

// SetMoisture replaces the moisture script with a single repeating value.
func (f *FakePort) SetMoisture(percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moisture = []MoistureSample{{Percent: percent}}
	f.mIdx = 0
}

// ReadMoisture returns the next scripted moisture sample.
func (f *FakePort) ReadMoisture() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mReads++
	if len(f.moisture) == 0 {
		return 0, fmt.Errorf("no moisture script: %w", ErrRead)
	}
	s := f.moisture[f.mIdx]
	if f.mIdx < len(f.moisture)-1 {
		f.mIdx++
	}
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Percent, nil
}

// ReadAmbient returns the next scripted ambient sample.
func (f *FakePort) ReadAmbient() (Ambient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aReads++
	if len(f.ambient) == 0 {
		return Ambient{}, fmt.Errorf("no ambient script: %w", ErrRead)
	}
	s := f.ambient[f.aIdx]
	if f.aIdx < len(f.ambient)-1 {
		f.aIdx++
	}
	return s.Ambient, s.Err
}

// MoistureReads returns how many times ReadMoisture was called.
func (f *FakePort) MoistureReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mReads
}

// AmbientReads returns how many times ReadAmbient was called.
func (f *FakePort) AmbientReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aReads
}

// Close marks the port closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
