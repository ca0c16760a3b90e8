package sched

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aristath/tempo/internal/capacity"
	"github.com/aristath/tempo/internal/task"
)

// mustTime parses "2006-01-02 15:04" in UTC or fails the test.
func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return parsed
}

func timePtr(v time.Time) *time.Time { return &v }

// focusedDay builds a single-block pattern offering the span to "focused".
func focusedDay(date, start, end string) *capacity.WorkPattern {
	return &capacity.WorkPattern{
		Date: date,
		Blocks: []*capacity.Block{
			{ID: date + "-work", Start: start, End: end, Kind: capacity.KindSingle, Category: "focused"},
		},
	}
}

// workItems filters the schedule down to task/step placements.
func workItems(res *Result) []Item {
	var out []Item
	for _, item := range res.Scheduled {
		switch item.(type) {
		case TaskPlacement, StepPlacement:
			out = append(out, item)
		}
	}
	return out
}

// verifyNoOverlap asserts that no two work placements overlap in time.
func verifyNoOverlap(t *testing.T, res *Result) {
	t.Helper()
	items := workItems(res)
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			si, ei := items[i].Span()
			sj, ej := items[j].Span()
			if si.Before(ej) && sj.Before(ei) {
				t.Errorf("placements overlap: %s [%v,%v) and %s [%v,%v)",
					items[i].Label(), si, ei, items[j].Label(), sj, ej)
			}
		}
	}
}

func TestScheduleUrgentFeatureAcrossDays(t *testing.T) {
	// 480 min of work, hard deadline Monday 17:00, invoked Friday 09:00
	// with 420 min of capacity each workday. Must split across Friday and
	// Monday and finish before the deadline.
	now := mustTime(t, "2025-06-06 09:00") // Friday
	deadline := mustTime(t, "2025-06-09 17:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Urgent Feature", Duration: 480,
		Importance: 8, Urgency: 9, Category: "focused",
		Deadline: timePtr(deadline), DeadlineKind: task.DeadlineHard,
	}}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "16:00"),
		"2025-06-09": focusedDay("2025-06-09", "09:00", "16:00"),
	}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Unscheduled) != 0 {
		t.Fatalf("expected everything scheduled, got unscheduled: %+v", res.Unscheduled)
	}
	if res.TotalMinutes != 480 {
		t.Errorf("expected 480 min placed, got %d", res.TotalMinutes)
	}

	items := workItems(res)
	if len(items) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(items))
	}
	var last time.Time
	total := 0
	for _, item := range items {
		p := item.(TaskPlacement)
		if p.OriginalTaskID != "t1" {
			t.Errorf("chunk lost originalTaskId linkage: %+v", p)
		}
		total += p.Minutes
		if p.End.After(last) {
			last = p.End
		}
	}
	if total != 480 {
		t.Errorf("chunk durations sum to %d, want 480", total)
	}
	if last.After(deadline) {
		t.Errorf("finished %v, after deadline %v", last, deadline)
	}
	verifyNoOverlap(t, res)
}

func TestScheduleImpossibleDeadline(t *testing.T) {
	// 600 min of work but only 420 min of capacity before the hard
	// deadline: reported as impossible, not silently placed late.
	now := mustTime(t, "2025-06-06 09:00")
	deadline := mustTime(t, "2025-06-07 00:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Impossible Task", Duration: 600,
		Importance: 8, Urgency: 9, Category: "focused",
		Deadline: timePtr(deadline), DeadlineKind: task.DeadlineHard,
	}}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "16:00"),
	}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Unscheduled) != 1 {
		t.Fatalf("expected 1 unscheduled, got %d", len(res.Unscheduled))
	}
	if got := res.Unscheduled[0].Reason; got != ReasonImpossibleDeadline {
		t.Errorf("reason = %q, want %q", got, ReasonImpossibleDeadline)
	}
	found := false
	for _, c := range res.Conflicts {
		if strings.Contains(c, "Impossible Task") {
			found = true
		}
	}
	if !found {
		t.Errorf("conflicts should mention the task name, got %v", res.Conflicts)
	}
	if len(workItems(res)) != 0 {
		t.Errorf("impossible task must not be partially scheduled")
	}
}

func TestScheduleDependencyOrderWithAsyncWait(t *testing.T) {
	// Step B depends on step A, and A carries a 120-minute async wait.
	// B must not start before A's end plus the wait.
	now := mustTime(t, "2025-06-06 09:00")

	wf := &task.Workflow{
		ID: "wf1", Name: "Deploy", Importance: 6, Urgency: 6,
		Steps: []*task.Step{
			{ID: "a", WorkflowID: "wf1", Name: "Build", Duration: 60, Category: "focused", AsyncWait: 120, Status: task.StatusPending, Index: 0},
			{ID: "b", WorkflowID: "wf1", Name: "Verify", Duration: 60, Category: "focused", DependsOn: []string{"a"}, Status: task.StatusPending, Index: 1},
		},
	}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00"),
	}

	res, err := New().ScheduleForDisplay(nil, []*task.Workflow{wf},
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Unscheduled) != 0 {
		t.Fatalf("expected everything scheduled, got %+v", res.Unscheduled)
	}

	var aEnd, bStart time.Time
	var sawWait bool
	for _, item := range res.Scheduled {
		switch p := item.(type) {
		case StepPlacement:
			if p.StepID == "a" {
				aEnd = p.End
			}
			if p.StepID == "b" {
				bStart = p.Start
			}
		case AsyncWait:
			if p.ForID == "a" {
				sawWait = true
			}
		}
	}
	if !sawWait {
		t.Error("expected an async-wait item after step a")
	}
	gate := aEnd.Add(120 * time.Minute)
	if bStart.Before(gate) {
		t.Errorf("step b starts %v, before a's wait elapses at %v", bStart, gate)
	}
	verifyNoOverlap(t, res)
}

func TestScheduleCompletedItemsNeverPlaced(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{
		{ID: "done", Name: "Done", Duration: 60, Importance: 9, Urgency: 9, Category: "focused", Completed: true},
		{ID: "todo", Name: "Todo", Duration: 60, Importance: 1, Urgency: 1, Category: "focused"},
	}
	wf := &task.Workflow{
		ID: "wf1", Name: "WF", Importance: 5, Urgency: 5,
		Steps: []*task.Step{
			{ID: "s1", Name: "Finished", Duration: 60, Category: "focused", Status: task.StatusCompleted, Index: 0},
			{ID: "s2", Name: "Next", Duration: 60, Category: "focused", DependsOn: []string{"s1"}, Status: task.StatusPending, Index: 1},
		},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00")}

	res, err := New().ScheduleForDisplay(tasks, []*task.Workflow{wf},
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, item := range res.Scheduled {
		switch p := item.(type) {
		case TaskPlacement:
			if p.TaskID == "done" {
				t.Error("completed task was scheduled")
			}
		case StepPlacement:
			if p.StepID == "s1" {
				t.Error("completed step was scheduled")
			}
		}
	}
	for _, u := range res.Unscheduled {
		if u.ID == "done" || u.ID == "s1" {
			t.Errorf("completed item reported unscheduled: %+v", u)
		}
	}
}

func TestScheduleSplitLinkage(t *testing.T) {
	// 300 minutes across two 180-minute days: chunks share the original
	// task id and sum to the full duration.
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Long Task", Duration: 300,
		Importance: 5, Urgency: 5, Category: "focused",
	}}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "12:00"),
		"2025-06-07": focusedDay("2025-06-07", "09:00", "12:00"),
	}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Unscheduled) != 0 {
		t.Fatalf("expected everything scheduled, got %+v", res.Unscheduled)
	}

	items := workItems(res)
	if len(items) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(items))
	}
	total := 0
	for _, item := range items {
		p := item.(TaskPlacement)
		if p.OriginalTaskID != "t1" {
			t.Errorf("chunk has originalTaskId %q, want t1", p.OriginalTaskID)
		}
		total += p.Minutes
	}
	if total != 300 {
		t.Errorf("chunks sum to %d, want 300", total)
	}
}

func TestScheduleNoSplittingDefersWholeTask(t *testing.T) {
	// Realistic mode: a 300-minute task cannot split into a 180-minute
	// day, so it lands whole on the first day that fits.
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Long Task", Duration: 300,
		Importance: 5, Urgency: 5, Category: "focused",
	}}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "12:00"),
		"2025-06-07": focusedDay("2025-06-07", "09:00", "15:00"),
	}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := workItems(res)
	if len(items) != 1 {
		t.Fatalf("expected 1 whole placement, got %d", len(items))
	}
	p := items[0].(TaskPlacement)
	if p.Start.Day() != 7 {
		t.Errorf("expected placement on the 7th, got %v", p.Start)
	}
	if p.Minutes != 300 {
		t.Errorf("expected whole 300-minute placement, got %d", p.Minutes)
	}
}

func TestScheduleIdempotent(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	build := func() ([]*task.Task, []*task.Workflow, PatternMap) {
		tasks := []*task.Task{
			{ID: "t1", Name: "Alpha", Duration: 120, Importance: 5, Urgency: 5, Category: "focused"},
			{ID: "t2", Name: "Beta", Duration: 120, Importance: 5, Urgency: 5, Category: "focused"},
			{ID: "t3", Name: "Gamma", Duration: 60, Importance: 7, Urgency: 4, Category: "admin"},
		}
		wf := &task.Workflow{
			ID: "wf1", Name: "Flow", Importance: 6, Urgency: 6,
			Steps: []*task.Step{
				{ID: "s1", Name: "One", Duration: 30, Category: "focused", Status: task.StatusPending, Index: 0},
				{ID: "s2", Name: "Two", Duration: 30, Category: "focused", DependsOn: []string{"s1"}, Status: task.StatusPending, Index: 1},
			},
		}
		patterns := PatternMap{
			"2025-06-06": {
				Date: "2025-06-06",
				Blocks: []*capacity.Block{
					{ID: "am", Start: "09:00", End: "12:00", Kind: capacity.KindSingle, Category: "focused"},
					{ID: "pm", Start: "13:00", End: "15:00", Kind: capacity.KindCombo, Allocations: map[string]int{"focused": 60, "admin": 60}},
				},
			},
			"2025-06-07": focusedDay("2025-06-07", "09:00", "12:00"),
		}
		return tasks, []*task.Workflow{wf}, patterns
	}

	tasks1, wfs1, pats1 := build()
	res1, err := New().ScheduleForDisplay(tasks1, wfs1, &Context{Now: now, Patterns: pats1}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	tasks2, wfs2, pats2 := build()
	res2, err := New().ScheduleForDisplay(tasks2, wfs2, &Context{Now: now, Patterns: pats2}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(res1.Scheduled, res2.Scheduled) {
		t.Errorf("identical inputs produced different schedules:\n%+v\nvs\n%+v",
			res1.Scheduled, res2.Scheduled)
	}
	verifyNoOverlap(t, res1)
}

func TestScheduleCycleRejected(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	wf := &task.Workflow{
		ID: "wf1", Name: "Cyclic", Importance: 5, Urgency: 5,
		Steps: []*task.Step{
			{ID: "a", Name: "A", Duration: 30, Category: "focused", DependsOn: []string{"b"}, Status: task.StatusPending, Index: 0},
			{ID: "b", Name: "B", Duration: 30, Category: "focused", DependsOn: []string{"a"}, Status: task.StatusPending, Index: 1},
		},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00")}

	_, err := New().ScheduleForDisplay(nil, []*task.Workflow{wf},
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if cycleErr.WorkflowID != "wf1" {
		t.Errorf("cycle error names workflow %q, want wf1", cycleErr.WorkflowID)
	}
}

func TestScheduleUnresolvedDependencies(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Orphan", Duration: 60, Importance: 5, Urgency: 5,
		Category: "focused", Dependencies: []string{"ghost"},
	}}
	wf := &task.Workflow{
		ID: "wf1", Name: "WF", Importance: 5, Urgency: 5,
		Steps: []*task.Step{
			{ID: "s1", Name: "Dangling", Duration: 30, Category: "focused", DependsOn: []string{"missing"}, Status: task.StatusPending, Index: 0},
			{ID: "s2", Name: "Behind", Duration: 30, Category: "focused", DependsOn: []string{"s1"}, Status: task.StatusPending, Index: 1},
		},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00")}

	res, err := New().ScheduleForDisplay(tasks, []*task.Workflow{wf},
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reasons := make(map[string]UnplacedReason)
	for _, u := range res.Unscheduled {
		reasons[u.ID] = u.Reason
	}
	for _, id := range []string{"t1", "s1", "s2"} {
		if reasons[id] != ReasonUnresolvedDependency {
			t.Errorf("%s reason = %q, want %q", id, reasons[id], ReasonUnresolvedDependency)
		}
	}
	if len(workItems(res)) != 0 {
		t.Errorf("nothing should be placed, got %d items", len(workItems(res)))
	}
}

func TestScheduleMissingPatternMeansZeroCapacity(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Homeless", Duration: 60, Importance: 5, Urgency: 5, Category: "focused",
	}}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: PatternMap{}, HorizonDays: 7}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Unscheduled) != 1 || res.Unscheduled[0].Reason != ReasonNoCapacity {
		t.Fatalf("expected one no_capacity entry, got %+v", res.Unscheduled)
	}
}

func TestScheduleMeetingsNeverDisplaced(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{{
		ID: "t1", Name: "Around Meetings", Duration: 480,
		Importance: 5, Urgency: 5, Category: "focused",
	}}
	p := focusedDay("2025-06-06", "09:00", "17:00")
	p.Meetings = []capacity.Meeting{{Name: "Standup", Start: "12:00", End: "13:00"}}
	patterns := PatternMap{"2025-06-06": p}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns, HorizonDays: 1}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meetingStart := mustTime(t, "2025-06-06 12:00")
	meetingEnd := mustTime(t, "2025-06-06 13:00")
	placedMinutes := 0
	for _, item := range workItems(res) {
		start, end := item.Span()
		if start.Before(meetingEnd) && meetingStart.Before(end) {
			t.Errorf("placement %s [%v,%v) overlaps the meeting", item.Label(), start, end)
		}
		placedMinutes += int(end.Sub(start) / time.Minute)
	}
	// 8h block minus the 1h meeting leaves 420 schedulable minutes.
	if placedMinutes != 420 {
		t.Errorf("placed %d min, want 420", placedMinutes)
	}
	if len(res.Unscheduled) != 1 {
		t.Fatalf("expected the 60-minute shortfall reported, got %+v", res.Unscheduled)
	}
}

func TestScheduleLockedTaskFixedPlacement(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")
	lockedStart := mustTime(t, "2025-06-06 10:00")

	tasks := []*task.Task{
		{ID: "locked", Name: "Dentist Prep", Duration: 60, Importance: 2, Urgency: 2,
			Category: "focused", Locked: true, LockedStart: timePtr(lockedStart)},
		{ID: "filler", Name: "Filler", Duration: 300, Importance: 9, Urgency: 9, Category: "focused"},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "16:00")}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns, HorizonDays: 1}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Unscheduled) != 0 {
		t.Fatalf("expected everything scheduled, got %+v", res.Unscheduled)
	}

	var lockedPlaced *TaskPlacement
	for _, item := range workItems(res) {
		p := item.(TaskPlacement)
		if p.TaskID == "locked" {
			cp := p
			lockedPlaced = &cp
		}
	}
	if lockedPlaced == nil {
		t.Fatal("locked task missing from schedule")
	}
	if !lockedPlaced.Start.Equal(lockedStart) {
		t.Errorf("locked task starts %v, want %v", lockedPlaced.Start, lockedStart)
	}
	verifyNoOverlap(t, res)
}

func TestScheduleConservativeStartsAsyncWorkFirst(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{
		{ID: "plain", Name: "Plain", Duration: 60, Importance: 5, Urgency: 5, Category: "focused"},
		{ID: "async", Name: "Kick Off CI", Duration: 60, Importance: 5, Urgency: 5, Category: "focused", AsyncWait: 240},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00")}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeConservative))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var asyncStart, plainStart time.Time
	for _, item := range workItems(res) {
		p := item.(TaskPlacement)
		if p.TaskID == "async" {
			asyncStart = p.Start
		} else {
			plainStart = p.Start
		}
	}
	if !asyncStart.Before(plainStart) {
		t.Errorf("async task starts %v, should precede plain task at %v", asyncStart, plainStart)
	}
}

func TestScheduleSoftDeadlineBoostsPriority(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")
	soon := mustTime(t, "2025-06-07 17:00")

	tasks := []*task.Task{
		{ID: "later", Name: "No Deadline", Duration: 60, Importance: 5, Urgency: 5, Category: "focused"},
		{ID: "soon", Name: "Due Tomorrow", Duration: 60, Importance: 5, Urgency: 5,
			Category: "focused", Deadline: timePtr(soon), DeadlineKind: task.DeadlineSoft},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00")}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns}, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var soonStart, laterStart time.Time
	for _, item := range workItems(res) {
		p := item.(TaskPlacement)
		if p.TaskID == "soon" {
			soonStart = p.Start
		} else {
			laterStart = p.Start
		}
	}
	if !soonStart.Before(laterStart) {
		t.Errorf("deadline-boosted task starts %v, should precede %v", soonStart, laterStart)
	}
}

func TestScheduleRecoversFromInternalFailure(t *testing.T) {
	// A nil context is a caller bug the boundary converts into an empty
	// result with a synthetic conflict rather than a panic.
	res, err := New().ScheduleForDisplay(nil, nil, nil, DefaultConfig(ModeRealistic))
	if err != nil {
		t.Fatalf("boundary must not surface the failure as an error, got %v", err)
	}
	if res == nil {
		t.Fatal("result must never be nil")
	}
	if len(res.Conflicts) == 0 {
		t.Error("expected a synthetic conflict describing the failure")
	}
}

func TestScheduleCapacityConservation(t *testing.T) {
	// Three 180-minute tasks against one 420-minute block: placements per
	// category never exceed the block's capacity.
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{
		{ID: "t1", Name: "One", Duration: 180, Importance: 5, Urgency: 5, Category: "focused"},
		{ID: "t2", Name: "Two", Duration: 180, Importance: 5, Urgency: 5, Category: "focused"},
		{ID: "t3", Name: "Three", Duration: 180, Importance: 5, Urgency: 5, Category: "focused"},
	}
	patterns := PatternMap{"2025-06-06": focusedDay("2025-06-06", "09:00", "16:00")}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns, HorizonDays: 1}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.TotalMinutes > 420 {
		t.Errorf("placed %d min into a 420-minute block", res.TotalMinutes)
	}
	verifyNoOverlap(t, res)
}

func TestScheduleAccumulatedConsumptionReducesCapacity(t *testing.T) {
	now := mustTime(t, "2025-06-06 09:00")

	p := focusedDay("2025-06-06", "09:00", "16:00")
	p.Accumulated = map[string]int{"focused": 360}
	tasks := []*task.Task{{
		ID: "t1", Name: "Big", Duration: 120, Importance: 5, Urgency: 5, Category: "focused",
	}}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: PatternMap{"2025-06-06": p}, HorizonDays: 1},
		DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 420-minute block with 360 consumed leaves 60: a partial chunk plus
	// a reported shortfall.
	if res.TotalMinutes != 60 {
		t.Errorf("placed %d min, want 60", res.TotalMinutes)
	}
	if len(res.Unscheduled) != 1 || res.Unscheduled[0].Reason != ReasonNoCapacity {
		t.Fatalf("expected a no_capacity shortfall, got %+v", res.Unscheduled)
	}
}

func TestScheduleWithdrawnDeadlineCascadesToDependents(t *testing.T) {
	// An incident fix monopolizes the morning, pushing a hard-deadline
	// build past 16:00. The build passed the static precheck, so it is
	// withdrawn by the post-pass; the announcement that depends on it was
	// admitted when the build finished and must be withdrawn with it
	// rather than left scheduled against work that will never happen.
	now := mustTime(t, "2025-06-06 09:00")

	tasks := []*task.Task{
		{
			ID: "fix", Name: "Incident Fix", Duration: 300,
			Importance: 10, Urgency: 10, Category: "focused",
			Deadline: timePtr(mustTime(t, "2025-06-06 14:00")), DeadlineKind: task.DeadlineHard,
		},
		{
			ID: "build", Name: "Release Build", Duration: 180,
			Importance: 5, Urgency: 5, Category: "focused",
			Deadline: timePtr(mustTime(t, "2025-06-06 16:00")), DeadlineKind: task.DeadlineHard,
		},
		{
			ID: "announce", Name: "Release Announcement", Duration: 60,
			Importance: 5, Urgency: 5, Category: "focused",
			Dependencies: []string{"build"},
		},
	}
	patterns := PatternMap{
		"2025-06-06": focusedDay("2025-06-06", "09:00", "17:00"),
		"2025-06-07": focusedDay("2025-06-07", "09:00", "10:00"),
	}

	res, err := New().ScheduleForDisplay(tasks, nil,
		&Context{Now: now, Patterns: patterns, HorizonDays: 2}, DefaultConfig(ModeOptimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the fix survives: the build ran 14:00-17:00 and missed its
	// deadline, and the announcement falls with it.
	items := workItems(res)
	if len(items) != 1 {
		t.Fatalf("expected 1 placement, got %d: %+v", len(items), items)
	}
	if p := items[0].(TaskPlacement); p.TaskID != "fix" {
		t.Fatalf("surviving placement is %q, want the incident fix", p.TaskID)
	}
	if res.TotalMinutes != 300 {
		t.Errorf("TotalMinutes = %d, want 300", res.TotalMinutes)
	}

	unplaced := make(map[string]Unplaced)
	for _, u := range res.Unscheduled {
		unplaced[u.ID] = u
	}
	build, ok := unplaced["build"]
	if !ok || build.Reason != ReasonImpossibleDeadline {
		t.Fatalf("build should be unscheduled with impossible_deadline, got %+v", res.Unscheduled)
	}
	announce, ok := unplaced["announce"]
	if !ok {
		t.Fatalf("announcement still scheduled despite withdrawn dependency: %+v", res.Unscheduled)
	}
	if announce.Reason != ReasonNoCapacity || !strings.Contains(announce.Detail, `"build"`) {
		t.Errorf("announcement = %+v, want no_capacity naming the build", announce)
	}
	verifyNoOverlap(t, res)
}
