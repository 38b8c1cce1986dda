package gpio

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

var _ Outputs = (*FakeOutputs)(nil)
var _ Outputs = (*RealOutputs)(nil)

func TestFakeOutputsIndicators(t *testing.T) {
	f := NewFakeOutputs()

	if err := f.SetIndicators(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i1, i2, _ := f.Levels()
	if !i1 || i2 {
		t.Errorf("active: expected (true, false), got (%v, %v)", i1, i2)
	}

	f.SetIndicators(false)
	i1, i2, _ = f.Levels()
	if i1 || !i2 {
		t.Errorf("inactive: expected (false, true), got (%v, %v)", i1, i2)
	}
	if f.Writes != 2 {
		t.Errorf("Writes: got %d, want 2", f.Writes)
	}
}

func TestFakeOutputsError(t *testing.T) {
	f := NewFakeOutputs()
	f.SetError = errors.New("line busy")

	if err := f.SetIndicators(true); err == nil {
		t.Error("expected error from SetIndicators")
	}
	if err := f.SetModeIndicator(true); err == nil {
		t.Error("expected error from SetModeIndicator")
	}
}

func TestFakeOutputsClose(t *testing.T) {
	f := NewFakeOutputs()
	f.SetIndicators(true)
	f.SetModeIndicator(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	i1, i2, mode := f.Levels()
	if i1 || i2 || mode {
		t.Errorf("expected all lines low after Close, got (%v, %v, %v)", i1, i2, mode)
	}
	if !f.Closed {
		t.Error("expected Closed to be true")
	}
}

func TestEdgeQueueOrder(t *testing.T) {
	q := NewEdgeQueue(4, nil)

	q.Push(logic.Edge{Button: logic.ButtonB, Rising: true, Timestamp: time.Second})
	q.Push(logic.Edge{Button: logic.ButtonB, Rising: false, Timestamp: 2 * time.Second})

	first := <-q.C()
	second := <-q.C()
	if !first.Rising || first.Timestamp != time.Second {
		t.Errorf("first: got %+v", first)
	}
	if second.Rising || second.Timestamp != 2*time.Second {
		t.Errorf("second: got %+v", second)
	}
}

func TestEdgeQueueDropsWhenFull(t *testing.T) {
	drops := 0
	q := NewEdgeQueue(2, func() { drops++ })

	for i := 0; i < 5; i++ {
		q.Push(logic.Edge{Button: logic.ButtonA, Timestamp: time.Duration(i)})
	}

	if q.Dropped() != 3 {
		t.Errorf("Dropped: got %d, want 3", q.Dropped())
	}
	if drops != 3 {
		t.Errorf("onDrop calls: got %d, want 3", drops)
	}
	// Oldest edges are kept
	if e := <-q.C(); e.Timestamp != 0 {
		t.Errorf("expected first edge kept, got %+v", e)
	}
}

func TestEdgeQueueDefaultSize(t *testing.T) {
	q := NewEdgeQueue(0, nil)
	if cap(q.ch) != EdgeQueueSize {
		t.Errorf("capacity: got %d, want %d", cap(q.ch), EdgeQueueSize)
	}
}
