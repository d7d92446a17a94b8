package shadermap

import "sync"

// RenderQueue is the single-direction hand-off channel between the
// producing context and the consuming context. The producer enqueues
// commands; the consumer drains them at a frame boundary.
//
// All consumer-visible shader map reference swaps travel through this
// queue, so the consuming context only ever observes finalized artifacts
// and never an alias mutated from both sides.
type RenderQueue struct {
	mu   sync.Mutex
	cmds []func()
}

// NewRenderQueue creates an empty queue.
func NewRenderQueue() *RenderQueue {
	return &RenderQueue{}
}

// Enqueue schedules fn to run on the consuming context during the next
// drain. Safe from any goroutine.
func (q *RenderQueue) Enqueue(fn func()) {
	q.mu.Lock()
	q.cmds = append(q.cmds, fn)
	q.mu.Unlock()
}

// DrainFrame runs every queued command in enqueue order. Must be called
// from the consuming context only. Commands enqueued while draining run in
// the next drain, keeping one drain bounded to one frame's work.
func (q *RenderQueue) DrainFrame() int {
	q.mu.Lock()
	batch := q.cmds
	q.cmds = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of pending commands.
func (q *RenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
