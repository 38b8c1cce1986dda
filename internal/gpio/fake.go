package gpio

import "sync"

// FakeOutputs is a test double recording indicator writes.
type FakeOutputs struct {
	mu sync.Mutex

	// Indicator1 and Indicator2 hold the current line levels.
	Indicator1 bool
	Indicator2 bool
	Mode       bool

	// Writes counts SetIndicators calls.
	Writes int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetIndicators and SetModeIndicator.
	SetError error
}

// NewFakeOutputs creates FakeOutputs with every line low.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetIndicators records the indicator levels.
func (f *FakeOutputs) SetIndicators(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Indicator1 = active
	f.Indicator2 = !active
	f.Writes++
	return nil
}

// SetModeIndicator records the mode line level.
func (f *FakeOutputs) SetModeIndicator(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Mode = on
	return nil
}

// Levels returns the current (indicator1, indicator2, mode) levels.
func (f *FakeOutputs) Levels() (bool, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Indicator1, f.Indicator2, f.Mode
}

// Close drives every line low and marks the outputs closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Indicator1, f.Indicator2, f.Mode = false, false, false
	f.Closed = true
	return nil
}
