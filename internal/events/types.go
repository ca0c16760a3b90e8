package events

import (
	"time"
)

// Topic routes events to interested subscribers.
type Topic string

const (
	// TopicInput carries mutations to scheduler inputs: tasks, workflows,
	// work patterns, settings.
	TopicInput Topic = "input"
	// TopicSchedule carries recompute outcomes.
	TopicSchedule Topic = "schedule"
)

// Event is the base interface for all events.
type Event interface {
	EventTopic() Topic
	Kind() string
}

// TaskChangedEvent is published when a task or workflow is created,
// updated, or deleted.
type TaskChangedEvent struct {
	ID        string // task or workflow id
	Timestamp time.Time
}

func (e TaskChangedEvent) EventTopic() Topic { return TopicInput }
func (e TaskChangedEvent) Kind() string      { return "input.task_changed" }

// PatternChangedEvent is published when a date's work pattern changes.
type PatternChangedEvent struct {
	Date      string // YYYY-MM-DD
	Timestamp time.Time
}

func (e PatternChangedEvent) EventTopic() Topic { return TopicInput }
func (e PatternChangedEvent) Kind() string      { return "input.pattern_changed" }

// SettingsChangedEvent is published when work settings change.
type SettingsChangedEvent struct {
	Timestamp time.Time
}

func (e SettingsChangedEvent) EventTopic() Topic { return TopicInput }
func (e SettingsChangedEvent) Kind() string      { return "input.settings_changed" }

// ScheduleRecomputedEvent is published after each engine run.
type ScheduleRecomputedEvent struct {
	Scheduled   int
	Unscheduled int
	Conflicts   []string
	Elapsed     time.Duration
	Timestamp   time.Time
}

func (e ScheduleRecomputedEvent) EventTopic() Topic { return TopicSchedule }
func (e ScheduleRecomputedEvent) Kind() string      { return "schedule.recomputed" }

// RecomputeFailedEvent is published when a recompute could not run, for
// example while the failure breaker is open.
type RecomputeFailedEvent struct {
	Reason    string
	Timestamp time.Time
}

func (e RecomputeFailedEvent) EventTopic() Topic { return TopicSchedule }
func (e RecomputeFailedEvent) Kind() string      { return "schedule.recompute_failed" }
