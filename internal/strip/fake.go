package strip

import "sync"

// FakeDriver records frames written to it.
type FakeDriver struct {
	mu     sync.Mutex
	frames [][]RGB
	closed bool

	// WriteError, if set, will be returned by Write.
	WriteError error
}

// Write records a copy of pixels.
func (f *FakeDriver) Write(pixels []RGB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	frame := make([]RGB, len(pixels))
	copy(frame, pixels)
	f.frames = append(f.frames, frame)
	return nil
}

// Frames returns the number of frames written.
func (f *FakeDriver) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// Last returns the most recent frame, or nil if none.
func (f *FakeDriver) Last() []RGB {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// Close marks the driver closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDriver) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
