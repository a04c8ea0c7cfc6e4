// Package scheduler implements the discrete-event kernel the rest of the
// simulator is built on: a single-threaded, cooperative event loop driven
// by a time-ordered priority queue.
//
// There is no real concurrency here. A "task" is not a goroutine; it is a
// chain of callbacks that the Scheduler invokes one at a time, in strict
// virtual-time order, with ties broken by insertion order. Suspension is
// modeled explicitly: a task that wants to "wait" registers a resumption
// callback with Timeout and returns control to the caller; the Scheduler
// calls that callback back when virtual time reaches the requested point
// (or earlier, if something Interrupts the returned Suspension first).
package scheduler

import (
	"container/heap"
)

// VTime is a point in virtual simulated time, expressed in integer
// milliseconds. Zero is the start of the simulation.
type VTime int64

// Reason is an informational tag describing why a Suspension resumed
// early. Handlers must treat any non-empty Reason as "end the wait early
// without failure"; the tag exists for observability, not control flow.
type Reason string

// ElapsedNaturally is the Reason value delivered to a resumption callback
// when its Timeout elapsed on its own, with no Interrupt involved.
const ElapsedNaturally Reason = ""

// event is a single scheduled callback, ordered in the heap by (when, seq).
type event struct {
	when     VTime
	seq      uint64
	fn       func()
	resolved *bool
	index    int
}

// eventHeap implements heap.Interface over *event, min-heap on (when, seq).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is the event queue and virtual clock. It is not safe for
// concurrent use: every mutation happens from inside an event callback,
// which the Scheduler itself invokes one at a time.
type Scheduler struct {
	pq  eventHeap
	seq uint64
	now VTime
}

// New creates a Scheduler whose virtual clock starts at zero.
func New() *Scheduler {
	s := &Scheduler{pq: make(eventHeap, 0)}
	heap.Init(&s.pq)
	return s
}

// Now returns the current virtual time.
func (s *Scheduler) Now() VTime {
	return s.now
}

// Pending reports how many events are still queued.
func (s *Scheduler) Pending() int {
	return s.pq.Len()
}

// At schedules fn to run when virtual time reaches t. If t is not after
// the current time, fn is queued at the current time and run by the
// event loop (the RunUntil in progress, or else the next one) rather
// than immediately in place, preserving the invariant that observable
// state only mutates at event boundaries.
func (s *Scheduler) At(t VTime, fn func()) {
	if t < s.now {
		t = s.now
	}
	s.seq++
	heap.Push(&s.pq, &event{when: t, seq: s.seq, fn: fn})
}

// Timeout schedules resume(ElapsedNaturally) to run after d milliseconds
// of virtual time and returns a Suspension that the caller (or any other
// task executing before the timeout elapses) may Interrupt to resume
// early with a different Reason.
//
// Interrupting never removes the underlying heap entry: timeouts cannot
// be cancelled, they simply elapse. Interrupt instead resolves the
// Suspension immediately and marks the pending heap entry a no-op, so
// resume is invoked exactly once either way.
func (s *Scheduler) Timeout(d VTime, resume func(Reason)) *Suspension {
	if d < 0 {
		d = 0
	}
	resolved := new(bool)
	s.seq++
	ev := &event{when: s.now + d, seq: s.seq}
	ev.resolved = resolved
	ev.fn = func() {
		if *resolved {
			return
		}
		*resolved = true
		resume(ElapsedNaturally)
	}
	heap.Push(&s.pq, ev)
	return &Suspension{scheduler: s, resolved: resolved, resume: resume}
}

// RunUntil advances the queue, executing every event whose time is
// strictly before t, then advances the virtual clock to t. It is
// idempotent at a checkpoint boundary: calling RunUntil again with the
// same or an earlier t does no further work beyond clamping the clock.
func (s *Scheduler) RunUntil(t VTime) {
	for s.pq.Len() > 0 && s.pq[0].when < t {
		ev := heap.Pop(&s.pq).(*event)
		s.now = ev.when
		ev.fn()
	}
	if t > s.now {
		s.now = t
	}
}

// Suspension represents a task that is currently waiting on a Timeout.
// Another task executing before the Timeout elapses may Interrupt it to
// resume it early with an informational Reason.
type Suspension struct {
	scheduler *Scheduler
	resolved  *bool
	resume    func(Reason)
}

// Interrupt resumes the suspension immediately, at the scheduler's
// current virtual time, with the given reason. It is a no-op if the
// suspension has already resolved (naturally or via a previous
// Interrupt), so callers never need to guard against double-firing.
func (p *Suspension) Interrupt(reason Reason) {
	if p == nil || *p.resolved {
		return
	}
	*p.resolved = true
	p.resume(reason)
}

// Resolved reports whether the suspension has already resumed, either
// because its Timeout elapsed or because it was Interrupted.
func (p *Suspension) Resolved() bool {
	return p == nil || *p.resolved
}
