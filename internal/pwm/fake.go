package pwm

import "sync"

// FakePump records pump switching for tests.
type FakePump struct {
	mu      sync.Mutex
	on      bool
	starts  int
	history []bool
	closed  bool

	// SetError, if set, is returned by SetPump. The state is still recorded.
	SetError error
}

// NewFakePump creates a FakePump with the output off.
func NewFakePump() *FakePump {
	return &FakePump{}
}

// SetPump records the requested state.
func (f *FakePump) SetPump(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if on && !f.on {
		f.starts++
	}
	f.on = on
	f.history = append(f.history, on)
	return f.SetError
}

// On reports whether the output is currently on.
func (f *FakePump) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Starts returns how many off-to-on transitions were requested.
func (f *FakePump) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// History returns a copy of every requested state in order.
func (f *FakePump) History() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.history))
	copy(out, f.history)
	return out
}

// Close turns the output off and marks the pump closed.
func (f *FakePump) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakePump) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
