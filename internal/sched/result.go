package sched

import (
	"time"
)

// Item is one placement decision in the produced schedule. Each kind of
// entry is its own concrete type carrying only the fields relevant to it:
// TaskPlacement, StepPlacement, FixedEvent, and AsyncWait.
type Item interface {
	// Span returns the half-open [start, end) interval of the item.
	Span() (time.Time, time.Time)
	// Label returns a human-readable name for display layers.
	Label() string
}

// TaskPlacement is active work on a standalone task. When a task is split
// across blocks, each chunk keeps the same OriginalTaskID.
type TaskPlacement struct {
	TaskID         string
	OriginalTaskID string
	Name           string
	Category       string
	Start          time.Time
	End            time.Time
	Minutes        int
	Score          float64 // priority at scheduling time, for display metrics
}

func (p TaskPlacement) Span() (time.Time, time.Time) { return p.Start, p.End }
func (p TaskPlacement) Label() string                { return p.Name }

// StepPlacement is active work on one workflow step.
type StepPlacement struct {
	StepID     string
	WorkflowID string
	StepIndex  int
	Name       string
	Category   string
	Start      time.Time
	End        time.Time
	Minutes    int
	Score      float64
}

func (p StepPlacement) Span() (time.Time, time.Time) { return p.Start, p.End }
func (p StepPlacement) Label() string                { return p.Name }

// FixedEvent is a meeting or blocked interval. Never displaced by work.
type FixedEvent struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (e FixedEvent) Span() (time.Time, time.Time) { return e.Start, e.End }
func (e FixedEvent) Label() string                { return e.Name }

// AsyncWait is the non-working interval after a task or step during which
// an external process runs. Blocks dependents but consumes no capacity.
type AsyncWait struct {
	ForID string // id of the task/step whose wait this is
	Name  string
	Start time.Time
	End   time.Time
}

func (w AsyncWait) Span() (time.Time, time.Time) { return w.Start, w.End }
func (w AsyncWait) Label() string                { return w.Name }

// UnplacedReason explains why an item could not be scheduled.
type UnplacedReason string

const (
	// ReasonNoCapacity: no remaining capacity of the required category
	// anywhere in the horizon (or blocked behind a dependency that itself
	// ran out of capacity; Detail distinguishes).
	ReasonNoCapacity UnplacedReason = "no_capacity"
	// ReasonUnresolvedDependency: a dependsOn id does not resolve to any
	// existing task or sibling step.
	ReasonUnresolvedDependency UnplacedReason = "unresolved_dependency"
	// ReasonImpossibleDeadline: a hard deadline cannot be met with the
	// capacity remaining between the current time and the deadline.
	ReasonImpossibleDeadline UnplacedReason = "impossible_deadline"
)

// Unplaced identifies an item the engine could not place, and why.
type Unplaced struct {
	ID         string
	Name       string
	WorkflowID string // empty for standalone tasks
	Reason     UnplacedReason
	Detail     string
	Minutes    int // active minutes left unplaced
}

// DebugInfo carries diagnostics gathered when Config.Debug is set.
type DebugInfo struct {
	DaysExamined  int
	TotalCapacity map[string]int // net capacity seen per category across horizon
	Notes         []string
}

// Result is the engine's sole output. It is always well-formed: an internal
// failure yields an empty Result with a synthetic conflict, never nil.
type Result struct {
	Scheduled    []Item
	Unscheduled  []Unplaced
	Conflicts    []string
	TotalMinutes int // active work minutes placed
	Debug        *DebugInfo
}
