package task

import (
	"time"
)

// Status represents the lifecycle state of a task or workflow step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting" // active work done, async wait running
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// DeadlineKind distinguishes hard deadlines (must be met or reported
// infeasible) from soft deadlines (priority boost only).
type DeadlineKind int

const (
	DeadlineSoft DeadlineKind = iota
	DeadlineHard
)

// Task is a unit of schedulable work with no internal structure.
type Task struct {
	ID           string
	Name         string
	Duration     int    // active work, minutes, > 0
	Importance   int    // 1-10
	Urgency      int    // 1-10
	Category     string // work category tag, e.g. "focused", "admin"
	AsyncWait    int    // minutes the task waits on an external process after active work
	Deadline     *time.Time
	DeadlineKind DeadlineKind
	Completed    bool
	Dependencies []string // task IDs that must be completed first
	Locked       bool     // must start at exactly LockedStart
	LockedStart  *time.Time
	Complexity   int // cognitive complexity 1-5, advisory
}

// Step is one unit of work inside a workflow.
type Step struct {
	ID         string
	WorkflowID string
	Name       string
	Duration   int // minutes
	Category   string
	DependsOn  []string // sibling step IDs within the same workflow
	AsyncWait  int      // minutes
	Status     Status
	Percent    int // percent complete, 0-100
	Index      int // declared order; tie-break only, never an execution order
}

// Done reports whether the step no longer needs placement.
// Skipped steps satisfy dependents the same way completed ones do.
func (s *Step) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusSkipped
}

// Workflow is an ordered DAG of steps sharing one parent ID.
type Workflow struct {
	ID           string
	Name         string
	Steps        []*Step
	Importance   int
	Urgency      int
	Deadline     *time.Time
	DeadlineKind DeadlineKind
	Status       Status // overall status
}

// Duration returns the sum of all step durations in minutes.
func (w *Workflow) Duration() int {
	total := 0
	for _, s := range w.Steps {
		total += s.Duration
	}
	return total
}

// CriticalPathDuration approximates the minimum wall-clock span of the
// workflow as total duration plus the longest single step's async wait.
// This undercounts multi-step async chains; it is an estimate, not a true
// longest-path computation.
func (w *Workflow) CriticalPathDuration() int {
	maxWait := 0
	for _, s := range w.Steps {
		if s.AsyncWait > maxWait {
			maxWait = s.AsyncWait
		}
	}
	return w.Duration() + maxWait
}

// Step returns the step with the given ID, or nil.
func (w *Workflow) Step(id string) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
