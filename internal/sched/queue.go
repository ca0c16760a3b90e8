package sched

import (
	"container/heap"
	"time"
)

// unit is one schedulable thing: a standalone task or a dependency-ready
// workflow step. All placement bookkeeping (remaining minutes, earliest
// permitted start) lives here, local to one scheduling run.
type unit struct {
	id         string
	originalID string // split linkage; equals id for steps
	name       string
	isStep     bool
	workflowID string
	stepIndex  int
	category   string
	total      int // active minutes required
	remaining  int // minutes still unplaced
	asyncWait  int
	score      float64
	deadline   *time.Time
	hard       bool
	deps       []string
	notBefore  time.Time // dependency/async gate; zero means unconstrained

	heapIndex int
}

// unitQueue is a max-priority heap of schedulable units with deterministic
// tie-breaking so identical inputs always produce identical schedules.
type unitQueue struct {
	mode  Mode
	units []*unit
}

func newUnitQueue(mode Mode) *unitQueue {
	q := &unitQueue{mode: mode}
	heap.Init(q)
	return q
}

func (q *unitQueue) Len() int { return len(q.units) }

func (q *unitQueue) Less(i, j int) bool {
	a, b := q.units[i], q.units[j]

	// Conservative mode starts the longest async waits first so their
	// external processes overlap with as much other work as possible.
	if q.mode == ModeConservative && a.asyncWait != b.asyncWait {
		return a.asyncWait > b.asyncWait
	}

	if a.score != b.score {
		return a.score > b.score
	}
	// Earlier deadline wins; a deadline beats no deadline.
	switch {
	case a.deadline != nil && b.deadline == nil:
		return true
	case a.deadline == nil && b.deadline != nil:
		return false
	case a.deadline != nil && b.deadline != nil && !a.deadline.Equal(*b.deadline):
		return a.deadline.Before(*b.deadline)
	}
	if a.stepIndex != b.stepIndex {
		return a.stepIndex < b.stepIndex
	}
	return a.id < b.id
}

func (q *unitQueue) Swap(i, j int) {
	q.units[i], q.units[j] = q.units[j], q.units[i]
	q.units[i].heapIndex = i
	q.units[j].heapIndex = j
}

func (q *unitQueue) Push(x any) {
	u := x.(*unit)
	u.heapIndex = len(q.units)
	q.units = append(q.units, u)
}

func (q *unitQueue) Pop() any {
	old := q.units
	n := len(old)
	u := old[n-1]
	old[n-1] = nil
	q.units = old[:n-1]
	return u
}

func (q *unitQueue) add(u *unit) { heap.Push(q, u) }

// takeBest pops units in priority order until one satisfies fit, then
// restores the rejects. Returns nil if no queued unit fits.
func (q *unitQueue) takeBest(fit func(*unit) bool) *unit {
	var rejected []*unit
	var chosen *unit

	for q.Len() > 0 {
		u := heap.Pop(q).(*unit)
		if fit(u) {
			chosen = u
			break
		}
		rejected = append(rejected, u)
	}
	for _, u := range rejected {
		heap.Push(q, u)
	}
	return chosen
}

// drain removes and returns all remaining units in priority order.
func (q *unitQueue) drain() []*unit {
	var out []*unit
	for q.Len() > 0 {
		out = append(out, heap.Pop(q).(*unit))
	}
	return out
}
