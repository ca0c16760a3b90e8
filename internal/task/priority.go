package task

import (
	"time"
)

// Score computes a task's base priority as importance x urgency, boosted by
// deadline pressure. The boost grows as the deadline approaches so that a
// task due tomorrow outranks an otherwise-equal task due next month. Hard
// deadlines press roughly twice as hard as soft ones.
func Score(importance, urgency int, deadline *time.Time, kind DeadlineKind, now time.Time) float64 {
	score := float64(importance * urgency)
	if deadline == nil {
		return score
	}

	daysLeft := deadline.Sub(now).Hours() / 24
	if daysLeft < 0.25 {
		daysLeft = 0.25 // overdue or imminent: maximum pressure
	}

	boost := 100.0 / daysLeft
	if kind == DeadlineHard {
		boost *= 2
	}
	return score + boost
}

// Score returns the task's priority at the given evaluation time.
func (t *Task) Score(now time.Time) float64 {
	return Score(t.Importance, t.Urgency, t.Deadline, t.DeadlineKind, now)
}

// Score returns the workflow's priority, inherited by all of its steps.
func (w *Workflow) Score(now time.Time) float64 {
	return Score(w.Importance, w.Urgency, w.Deadline, w.DeadlineKind, now)
}
