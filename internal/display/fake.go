package display

import "sync"

// FakeDisplay records every model shown.
type FakeDisplay struct {
	mu     sync.Mutex
	frames []Model
	closed bool

	// ShowError, if set, will be returned by Show.
	ShowError error
}

// NewFakeDisplay creates an empty FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// Show records m.
func (f *FakeDisplay) Show(m Model) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ShowError != nil {
		return f.ShowError
	}
	f.frames = append(f.frames, m)
	return nil
}

// Frames returns the number of models shown.
func (f *FakeDisplay) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// Last returns the most recent model, or false if none was shown.
func (f *FakeDisplay) Last() (Model, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return Model{}, false
	}
	return f.frames[len(f.frames)-1], true
}

// Overlays returns the overlays shown, in order, with consecutive repeats collapsed.
func (f *FakeDisplay) Overlays() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, m := range f.frames {
		if len(m.Overlay) == 0 {
			continue
		}
		if n := len(out); n > 0 && equalLines(out[n-1], m.Overlay) {
			continue
		}
		out = append(out, m.Overlay)
	}
	return out
}

// Close marks the display closed.
func (f *FakeDisplay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDisplay) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
