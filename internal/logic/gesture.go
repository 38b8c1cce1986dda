package logic

import "time"

// LongPressThreshold is the minimum Button B hold that requests provisioning mode.
const LongPressThreshold = 3000 * time.Millisecond

// GestureDetector turns raw button edges into semantic events.
// It is not safe for concurrent use; the orchestrator loop is its only caller.
type GestureDetector struct {
	longPress  time.Duration
	pressStart time.Duration
	pressing   bool
}

// NewGestureDetector creates a detector. A non-positive longPress selects LongPressThreshold.
func NewGestureDetector(longPress time.Duration) *GestureDetector {
	if longPress <= 0 {
		longPress = LongPressThreshold
	}
	return &GestureDetector{longPress: longPress}
}

// Process consumes one edge and returns the resulting event, if any.
// While apMode is set every edge is ignored: provisioning owns the panel.
func (d *GestureDetector) Process(e Edge, apMode bool) (GestureEvent, bool) {
	if apMode {
		d.pressing = false
		return "", false
	}

	switch e.Button {
	case ButtonA:
		if e.Rising {
			return "", false
		}
		return GesturePumpToggled, true

	case ButtonB:
		if e.Rising {
			d.pressStart = e.Timestamp
			d.pressing = true
			return "", false
		}
		if !d.pressing {
			// Release without a seen press (e.g. held across startup)
			return "", false
		}
		d.pressing = false
		if e.Timestamp-d.pressStart >= d.longPress {
			return GestureLongPress, true
		}
		return GestureShortPress, true
	}

	return "", false
}

// Pressing reports whether Button B is currently held.
func (d *GestureDetector) Pressing() bool {
	return d.pressing
}
