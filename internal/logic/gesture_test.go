package logic

import (
	"testing"
	"time"
)

func press(d *GestureDetector, b Button, at, hold time.Duration, apMode bool) (GestureEvent, bool) {
	d.Process(Edge{Button: b, Rising: true, Timestamp: at}, apMode)
	return d.Process(Edge{Button: b, Rising: false, Timestamp: at + hold}, apMode)
}

func TestNewGestureDetectorDefaultThreshold(t *testing.T) {
	d := NewGestureDetector(0)
	if d.longPress != LongPressThreshold {
		t.Errorf("expected long press %v, got %v", LongPressThreshold, d.longPress)
	}
}

func TestButtonAFallingEdgeTogglesPump(t *testing.T) {
	d := NewGestureDetector(0)

	if ev, ok := d.Process(Edge{Button: ButtonA, Rising: true, Timestamp: 0}, false); ok {
		t.Errorf("expected no event on rising edge, got %s", ev)
	}

	ev, ok := d.Process(Edge{Button: ButtonA, Rising: false, Timestamp: 80 * time.Millisecond}, false)
	if !ok {
		t.Fatal("expected event on falling edge")
	}
	if ev != GesturePumpToggled {
		t.Errorf("expected %s, got %s", GesturePumpToggled, ev)
	}
}

func TestButtonBShortPressBoundary(t *testing.T) {
	d := NewGestureDetector(0)

	ev, ok := press(d, ButtonB, 10*time.Second, 2999*time.Millisecond, false)
	if !ok {
		t.Fatal("expected event for 2999ms press")
	}
	if ev != GestureShortPress {
		t.Errorf("2999ms: expected %s, got %s", GestureShortPress, ev)
	}
}

func TestButtonBLongPressBoundaryInclusive(t *testing.T) {
	d := NewGestureDetector(0)

	ev, ok := press(d, ButtonB, 10*time.Second, 3000*time.Millisecond, false)
	if !ok {
		t.Fatal("expected event for 3000ms press")
	}
	if ev != GestureLongPress {
		t.Errorf("3000ms: expected %s, got %s", GestureLongPress, ev)
	}
}

func TestButtonBReleaseWithoutPressIgnored(t *testing.T) {
	d := NewGestureDetector(0)

	if ev, ok := d.Process(Edge{Button: ButtonB, Rising: false, Timestamp: time.Second}, false); ok {
		t.Errorf("expected release without press to be ignored, got %s", ev)
	}
}

func TestButtonBRisingOnlyRecordsPress(t *testing.T) {
	d := NewGestureDetector(0)

	if _, ok := d.Process(Edge{Button: ButtonB, Rising: true, Timestamp: time.Second}, false); ok {
		t.Error("expected no event on press")
	}
	if !d.Pressing() {
		t.Error("expected Pressing() after rising edge")
	}
}

func TestAPModeIgnoresAllButtons(t *testing.T) {
	d := NewGestureDetector(0)

	if ev, ok := press(d, ButtonA, 0, 50*time.Millisecond, true); ok {
		t.Errorf("button A in AP mode: expected no event, got %s", ev)
	}
	if ev, ok := press(d, ButtonB, time.Second, 100*time.Millisecond, true); ok {
		t.Errorf("button B short in AP mode: expected no event, got %s", ev)
	}
	if ev, ok := press(d, ButtonB, 5*time.Second, 5*time.Second, true); ok {
		t.Errorf("button B long in AP mode: expected no event, got %s", ev)
	}
}

func TestAPModeDropsPressInProgress(t *testing.T) {
	d := NewGestureDetector(0)

	// Press starts before AP mode is latched
	d.Process(Edge{Button: ButtonB, Rising: true, Timestamp: 0}, false)
	d.Process(Edge{Button: ButtonA, Rising: false, Timestamp: time.Second}, true)

	if ev, ok := d.Process(Edge{Button: ButtonB, Rising: false, Timestamp: 4 * time.Second}, false); ok {
		t.Errorf("expected stale press to be dropped, got %s", ev)
	}
}

func TestInterleavedButtons(t *testing.T) {
	d := NewGestureDetector(0)

	d.Process(Edge{Button: ButtonB, Rising: true, Timestamp: 0}, false)

	// Button A pressed and released while B is held
	d.Process(Edge{Button: ButtonA, Rising: true, Timestamp: 500 * time.Millisecond}, false)
	ev, ok := d.Process(Edge{Button: ButtonA, Rising: false, Timestamp: 600 * time.Millisecond}, false)
	if !ok || ev != GesturePumpToggled {
		t.Errorf("expected %s from button A, got %s (ok=%v)", GesturePumpToggled, ev, ok)
	}

	ev, ok = d.Process(Edge{Button: ButtonB, Rising: false, Timestamp: 3500 * time.Millisecond}, false)
	if !ok || ev != GestureLongPress {
		t.Errorf("expected %s from button B, got %s (ok=%v)", GestureLongPress, ev, ok)
	}
}

func TestCustomLongPressThreshold(t *testing.T) {
	d := NewGestureDetector(time.Second)

	ev, _ := press(d, ButtonB, 0, time.Second, false)
	if ev != GestureLongPress {
		t.Errorf("expected %s, got %s", GestureLongPress, ev)
	}
}
