// Package display translates raw scheduling results into the shapes the
// presentation layers consume: items grouped by day plus aggregate metrics.
// It never mutates the Result it is given.
package display

import (
	"sort"
	"time"

	"github.com/aristath/tempo/internal/capacity"
	"github.com/aristath/tempo/internal/sched"
)

// EntryKind tags a day entry for rendering.
type EntryKind string

const (
	KindTask      EntryKind = "task"
	KindStep      EntryKind = "workflow-step"
	KindFixed     EntryKind = "meeting"
	KindAsyncWait EntryKind = "async-wait"
)

// Entry is one rendered row of the day view.
type Entry struct {
	Kind           EntryKind
	ID             string
	OriginalTaskID string // split linkage, preserved from the engine
	WorkflowID     string
	Name           string
	Category       string
	Start          time.Time
	End            time.Time
	Minutes        int
}

// DayGroup is all entries of one calendar date, in start order.
type DayGroup struct {
	Date    string
	Entries []Entry
}

// Metrics are the aggregate numbers shown alongside the schedule.
type Metrics struct {
	WorkMinutes      int
	CapacityMinutes  int
	Utilization      float64 // work / capacity, 0 when no capacity
	AveragePriority  float64 // mean priority score across work placements
	Efficiency       float64 // placed minutes / requested minutes
	ScheduledItems   int
	UnscheduledItems int
	Conflicts        int
}

// GroupByDay re-groups a result's items by calendar date. Split tasks keep
// their OriginalTaskID so consumers can re-link chunks across days.
func GroupByDay(res *sched.Result) []DayGroup {
	byDate := make(map[string][]Entry)
	for _, item := range res.Scheduled {
		e := toEntry(item)
		date := e.Start.Format(capacity.DateFormat)
		byDate[date] = append(byDate[date], e)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	groups := make([]DayGroup, 0, len(dates))
	for _, date := range dates {
		entries := byDate[date]
		sort.SliceStable(entries, func(i, j int) bool {
			if !entries[i].Start.Equal(entries[j].Start) {
				return entries[i].Start.Before(entries[j].Start)
			}
			return entries[i].Name < entries[j].Name
		})
		groups = append(groups, DayGroup{Date: date, Entries: entries})
	}
	return groups
}

func toEntry(item sched.Item) Entry {
	switch p := item.(type) {
	case sched.TaskPlacement:
		return Entry{
			Kind:           KindTask,
			ID:             p.TaskID,
			OriginalTaskID: p.OriginalTaskID,
			Name:           p.Name,
			Category:       p.Category,
			Start:          p.Start,
			End:            p.End,
			Minutes:        p.Minutes,
		}
	case sched.StepPlacement:
		return Entry{
			Kind:       KindStep,
			ID:         p.StepID,
			WorkflowID: p.WorkflowID,
			Name:       p.Name,
			Category:   p.Category,
			Start:      p.Start,
			End:        p.End,
			Minutes:    p.Minutes,
		}
	case sched.AsyncWait:
		return Entry{
			Kind:    KindAsyncWait,
			ID:      p.ForID,
			Name:    p.Name,
			Start:   p.Start,
			End:     p.End,
			Minutes: int(p.End.Sub(p.Start) / time.Minute),
		}
	default:
		start, end := item.Span()
		return Entry{
			Kind:    KindFixed,
			Name:    item.Label(),
			Start:   start,
			End:     end,
			Minutes: int(end.Sub(start) / time.Minute),
		}
	}
}

// ComputeMetrics derives aggregate numbers from a result and the total
// capacity the horizon offered (as reported by the capacity model).
// Efficiency relates placed minutes to the minutes all items asked for;
// average priority is the mean score across work placements.
func ComputeMetrics(res *sched.Result, capacityMinutes int) Metrics {
	m := Metrics{
		WorkMinutes:      res.TotalMinutes,
		CapacityMinutes:  capacityMinutes,
		ScheduledItems:   len(res.Scheduled),
		UnscheduledItems: len(res.Unscheduled),
		Conflicts:        len(res.Conflicts),
	}
	if capacityMinutes > 0 {
		m.Utilization = float64(res.TotalMinutes) / float64(capacityMinutes)
	}

	scoreSum, placements := 0.0, 0
	for _, item := range res.Scheduled {
		switch p := item.(type) {
		case sched.TaskPlacement:
			scoreSum += p.Score
			placements++
		case sched.StepPlacement:
			scoreSum += p.Score
			placements++
		}
	}
	if placements > 0 {
		m.AveragePriority = scoreSum / float64(placements)
	}

	requested := res.TotalMinutes
	for _, u := range res.Unscheduled {
		requested += u.Minutes
	}
	if requested > 0 {
		m.Efficiency = float64(res.TotalMinutes) / float64(requested)
	}
	return m
}
