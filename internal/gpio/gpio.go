// Package gpio provides the front-panel buttons and indicator outputs.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"log"
	"sync/atomic"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// Pin definitions (BCM numbering)
const (
	PinButtonA    = 14 // pump enable toggle
	PinButtonB    = 15 // page switch / long press provisioning
	PinIndicator1 = 12 // lit while the pump is enabled
	PinIndicator2 = 13 // lit while the pump is disabled
	PinMode       = 6  // lit in provisioning mode
)

// EdgeQueueSize is the default capacity of the edge queue.
const EdgeQueueSize = 16

// Outputs drives the indicator and mode lines.
type Outputs interface {
	// SetIndicators lights indicator 1 when active and indicator 2 otherwise.
	SetIndicators(active bool) error
	SetModeIndicator(on bool) error
	Close() error
}

// EdgeQueue is a bounded single-producer queue between the GPIO event
// goroutine and the orchestrator loop. Push never blocks.
type EdgeQueue struct {
	ch      chan logic.Edge
	dropped atomic.Uint64
	onDrop  func()
}

// NewEdgeQueue creates a queue holding up to size edges. onDrop, if non-nil,
// is called for every edge discarded because the queue was full.
func NewEdgeQueue(size int, onDrop func()) *EdgeQueue {
	if size <= 0 {
		size = EdgeQueueSize
	}
	return &EdgeQueue{ch: make(chan logic.Edge, size), onDrop: onDrop}
}

// Push enqueues e, or drops it if the queue is full. Returns false on drop.
func (q *EdgeQueue) Push(e logic.Edge) bool {
	select {
	case q.ch <- e:
		return true
	default:
		n := q.dropped.Add(1)
		log.Printf("gpio: edge queue full, dropped button %s edge (total dropped: %d)", e.Button, n)
		if q.onDrop != nil {
			q.onDrop()
		}
		return false
	}
}

// C returns the receive side of the queue.
func (q *EdgeQueue) C() <-chan logic.Edge {
	return q.ch
}

// Dropped returns the number of edges discarded so far.
func (q *EdgeQueue) Dropped() uint64 {
	return q.dropped.Load()
}
