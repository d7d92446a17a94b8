package uniform

import (
	"sync"
)

// Evaluator is the consuming-context service owning the render-proxy
// registry and the deferred recache queue.
//
// The queue is a set: membership matters, order does not, and insertion is
// idempotent. N parameter mutations on one proxy between two drains cost
// one recomputation, not N.
type Evaluator struct {
	mu       sync.Mutex
	deferred bool
	proxies  map[*RenderProxy]struct{}
	pending  map[*RenderProxy]struct{}
}

// NewEvaluator creates an evaluator. With deferred=false, invalidations
// recompute synchronously instead of queuing; useful for tooling that has
// no frame loop.
func NewEvaluator(deferred bool) *Evaluator {
	return &Evaluator{
		deferred: deferred,
		proxies:  make(map[*RenderProxy]struct{}),
		pending:  make(map[*RenderProxy]struct{}),
	}
}

// Register adds a proxy to the registry and adopts it for deferred
// recaching. A proxy belongs to at most one evaluator.
func (e *Evaluator) Register(p *RenderProxy) {
	e.mu.Lock()
	e.proxies[p] = struct{}{}
	e.mu.Unlock()
	p.eval = e
}

// unregister removes a proxy from the registry and the pending queue.
// Called from RenderProxy.Release.
func (e *Evaluator) unregister(p *RenderProxy) {
	e.mu.Lock()
	delete(e.proxies, p)
	delete(e.pending, p)
	e.mu.Unlock()
}

// enqueue marks a proxy for recache on the next drain, or recomputes
// immediately when deferral is disabled.
func (e *Evaluator) enqueue(p *RenderProxy) {
	if !e.deferred {
		e.evaluateAll(p)
		return
	}
	e.mu.Lock()
	e.pending[p] = struct{}{}
	e.mu.Unlock()
}

// Pending returns the number of proxies awaiting recache.
func (e *Evaluator) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Drain recomputes every queued proxy exactly once and empties the queue.
// Returns the number of proxies evaluated. Must run to completion before
// consumer code reads cache validity for the drained proxies.
func (e *Evaluator) Drain() int {
	e.mu.Lock()
	batch := make([]*RenderProxy, 0, len(e.pending))
	for p := range e.pending {
		batch = append(batch, p)
	}
	e.pending = make(map[*RenderProxy]struct{})
	e.mu.Unlock()

	n := 0
	for _, p := range batch {
		if p.released {
			continue
		}
		e.evaluateAll(p)
		n++
	}
	if n > 0 {
		logger().Debug("deferred recache drained", "proxies", n)
	}
	return n
}

// InvalidateAll sweeps the whole registry, marking every proxy stale.
// Used when a global state change (quality settings, feature level switch)
// invalidates all evaluated parameter buffers at once.
func (e *Evaluator) InvalidateAll(recreateBuffers bool) {
	e.mu.Lock()
	all := make([]*RenderProxy, 0, len(e.proxies))
	for p := range e.proxies {
		all = append(all, p)
	}
	e.mu.Unlock()

	for _, p := range all {
		p.Invalidate(recreateBuffers)
	}
}

// evaluateAll recomputes every feature level that has an artifact.
func (e *Evaluator) evaluateAll(p *RenderProxy) {
	for level := 0; level < NumFeatureLevels; level++ {
		p.EvaluateIfStale(level)
	}
}
