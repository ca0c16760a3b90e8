package sched

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/tempo/internal/capacity"
	"github.com/aristath/tempo/internal/task"
)

// Scheduler is the unified placement engine. It holds no state across
// calls; every invocation is a pure computation over its inputs, so the
// same inputs always produce the same schedule.
type Scheduler struct{}

// New creates a Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// run is the per-invocation state of one scheduling pass.
type run struct {
	cfg   cfgResolved
	now   time.Time
	res   *Result
	queue *unitQueue

	waiting  []*unit              // units gated behind unfinished dependencies
	done     map[string]bool      // task/step id -> work finished (or pre-completed)
	finishAt map[string]time.Time // id -> time dependents may start (end + async wait)
	unplaced map[string]bool      // ids reported in res.Unscheduled
	placed   map[string][]int     // unit id -> indexes into res.Scheduled
}

type cfgResolved struct {
	Config
	start time.Time
}

// ScheduleForDisplay places the given tasks and workflows into the capacity
// calendar and returns the resulting schedule.
//
// The returned error is non-nil only for structural caller errors: a cyclic
// step graph (*CycleError), malformed block times (*capacity.ClockError),
// or combo allocations that do not cover their span
// (*capacity.AllocationError). Legitimate scheduling failures (no
// capacity, unreachable hard deadlines, unresolved references) are
// reported inside the Result, never as errors. An unexpected internal
// failure is recovered at this boundary and converted into an empty Result
// carrying a synthetic conflict.
func (s *Scheduler) ScheduleForDisplay(tasks []*task.Task, workflows []*task.Workflow, sctx *Context, cfg Config) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = &Result{Conflicts: []string{fmt.Sprintf("scheduler: internal failure: %v", r)}}
			err = nil
		}
	}()

	now := sctx.Now
	start := now
	if cfg.StartDate != "" {
		parsed, perr := time.ParseInLocation(capacity.DateFormat, cfg.StartDate, now.Location())
		if perr != nil {
			return nil, fmt.Errorf("config start date %q: %w", cfg.StartDate, perr)
		}
		start = parsed
	}

	r := &run{
		cfg:      cfgResolved{Config: cfg, start: start},
		now:      now,
		res:      &Result{},
		queue:    newUnitQueue(cfg.Mode),
		done:     make(map[string]bool),
		finishAt: make(map[string]time.Time),
		unplaced: make(map[string]bool),
		placed:   make(map[string][]int),
	}

	units, lockedUses, err := r.collect(tasks, workflows)
	if err != nil {
		return nil, err
	}

	days, err := r.buildDays(sctx, lockedUses)
	if err != nil {
		return nil, err
	}

	units = r.rejectImpossibleDeadlines(units, days)

	// Partition into the ready queue and the dependency-gated backlog.
	for _, u := range units {
		if r.depsDone(u) {
			u.notBefore = r.gate(u)
			r.queue.add(u)
		} else {
			r.waiting = append(r.waiting, u)
		}
	}

	r.walk(days)
	r.verifyHardDeadlines(units)
	r.reportLeftovers()
	r.finish(cfg, days)

	return r.res, nil
}

// collect validates the inputs and turns every incomplete task and
// dependency-resolvable step into a schedulable unit. Locked tasks are
// pre-placed at their fixed time and returned as capacity carve-outs.
func (r *run) collect(tasks []*task.Task, workflows []*task.Workflow) ([]*unit, map[string][]fixedUse, error) {
	taskByID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
		if t.Completed {
			// Completed work is fixed: never placed, and it satisfies
			// dependents immediately.
			r.done[t.ID] = true
			r.finishAt[t.ID] = r.now
		}
	}

	lockedUses := make(map[string][]fixedUse)
	var units []*unit

	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if t.Duration <= 0 {
			return nil, nil, fmt.Errorf("task %q: duration must be positive", t.ID)
		}

		if t.Locked && t.LockedStart != nil {
			r.placeLocked(t, lockedUses)
			continue
		}

		dangling := ""
		for _, depID := range t.Dependencies {
			if _, ok := taskByID[depID]; !ok {
				dangling = depID
				break
			}
		}
		if dangling != "" {
			r.addUnplaced(Unplaced{
				ID:      t.ID,
				Name:    t.Name,
				Reason:  ReasonUnresolvedDependency,
				Detail:  fmt.Sprintf("depends on unknown task %q", dangling),
				Minutes: t.Duration,
			})
			continue
		}

		units = append(units, &unit{
			id:         t.ID,
			originalID: t.ID,
			name:       t.Name,
			category:   t.Category,
			total:      t.Duration,
			remaining:  t.Duration,
			asyncWait:  t.AsyncWait,
			score:      t.Score(r.now),
			deadline:   t.Deadline,
			hard:       t.Deadline != nil && t.DeadlineKind == task.DeadlineHard,
			deps:       t.Dependencies,
		})
	}

	for _, w := range workflows {
		g := NewGraph(w)
		if _, err := g.Validate(); err != nil {
			return nil, nil, err
		}

		for _, s := range w.Steps {
			// Steps whose active work is finished never get re-placed: a
			// waiting step's external process is already running, so its
			// dependents are gated at now, conservatively.
			if s.Done() || s.Status == task.StatusWaiting || s.Percent >= 100 {
				r.done[s.ID] = true
				r.finishAt[s.ID] = r.now
			}
		}

		blocked := make(map[string]bool)
		for _, id := range g.Blocked() {
			blocked[id] = true
			s := w.Step(id)
			r.addUnplaced(Unplaced{
				ID:         s.ID,
				Name:       s.Name,
				WorkflowID: w.ID,
				Reason:     ReasonUnresolvedDependency,
				Detail:     "dependency does not resolve to a sibling step",
				Minutes:    stepRemaining(s),
			})
		}

		score := w.Score(r.now)
		for _, s := range w.Steps {
			if r.done[s.ID] || blocked[s.ID] {
				continue
			}
			// Partially-logged work only needs its remaining minutes.
			dur := stepRemaining(s)
			units = append(units, &unit{
				id:         s.ID,
				originalID: s.ID,
				name:       s.Name,
				isStep:     true,
				workflowID: w.ID,
				stepIndex:  s.Index,
				category:   s.Category,
				total:      dur,
				remaining:  dur,
				asyncWait:  s.AsyncWait,
				score:      score,
				deadline:   w.Deadline,
				hard:       w.Deadline != nil && w.DeadlineKind == task.DeadlineHard,
				deps:       s.DependsOn,
			})
		}
	}

	return units, lockedUses, nil
}

// stepRemaining is the active minutes a step still needs, scaled by its
// logged percent and floored at one minute.
func stepRemaining(s *task.Step) int {
	dur := s.Duration * (100 - s.Percent) / 100
	if dur < 1 {
		dur = 1
	}
	return dur
}

// placeLocked emits a fixed placement for a locked task at its exact start
// time. Locked work takes precedence over everything else; the carve-out is
// subtracted from block capacity like a meeting.
func (r *run) placeLocked(t *task.Task, lockedUses map[string][]fixedUse) {
	start := *t.LockedStart
	end := start.Add(time.Duration(t.Duration) * time.Minute)

	r.appendItem(t.ID, TaskPlacement{
		TaskID:         t.ID,
		OriginalTaskID: t.ID,
		Name:           t.Name,
		Category:       t.Category,
		Start:          start,
		End:            end,
		Minutes:        t.Duration,
		Score:          t.Score(r.now),
	})
	r.res.TotalMinutes += t.Duration

	date := start.Format(capacity.DateFormat)
	lockedUses[date] = append(lockedUses[date], fixedUse{
		iv:       interval{start, end},
		category: t.Category,
	})

	finish := end
	if t.AsyncWait > 0 {
		finish = end.Add(time.Duration(t.AsyncWait) * time.Minute)
		r.res.Scheduled = append(r.res.Scheduled, AsyncWait{
			ForID: t.ID,
			Name:  t.Name + " (waiting)",
			Start: end,
			End:   finish,
		})
	}
	r.done[t.ID] = true
	r.finishAt[t.ID] = finish
}

// buildDays resolves the full horizon of work patterns onto the calendar.
// Dates without a pattern stay nil: zero capacity, no implicit defaults.
func (r *run) buildDays(sctx *Context, lockedUses map[string][]fixedUse) ([]*day, error) {
	days := make([]*day, sctx.horizon())
	for i := range days {
		date := r.cfg.start.AddDate(0, 0, i).Format(capacity.DateFormat)
		p, ok := sctx.Patterns.Pattern(date)
		if !ok || p == nil {
			continue
		}
		d, err := buildDay(p, r.now, r.cfg.RespectMeetings, lockedUses[date])
		if err != nil {
			return nil, err
		}
		days[i] = d
		for _, m := range d.meetings {
			r.res.Scheduled = append(r.res.Scheduled, m)
		}
	}
	return days, nil
}

// rejectImpossibleDeadlines removes hard-deadline units whose duration
// exceeds the capacity available between now and the deadline. These are
// reported as impossible rather than silently placed late.
func (r *run) rejectImpossibleDeadlines(units []*unit, days []*day) []*unit {
	kept := units[:0]
	for _, u := range units {
		if !u.hard || u.deadline == nil {
			kept = append(kept, u)
			continue
		}
		available := 0
		for _, d := range days {
			if d == nil {
				continue
			}
			available += d.available(u.category, *u.deadline)
		}
		if u.total > available {
			r.res.Conflicts = append(r.res.Conflicts, fmt.Sprintf(
				"impossible_deadline: %q needs %d min of %q capacity before %s, only %d available",
				u.name, u.total, u.category, u.deadline.Format("2006-01-02 15:04"), available))
			r.addUnplaced(Unplaced{
				ID:         u.id,
				Name:       u.name,
				WorkflowID: u.workflowID,
				Reason:     ReasonImpossibleDeadline,
				Detail: fmt.Sprintf("needs %d min before deadline, %d available",
					u.total, available),
				Minutes: u.total,
			})
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// walk is the placement loop: day by day, block by block, free segment by
// free segment, greedily assigning the highest-priority eligible unit.
func (r *run) walk(days []*day) {
	for _, d := range days {
		if r.queue.Len() == 0 && len(r.waiting) == 0 {
			return
		}
		if d == nil {
			continue
		}
		for _, db := range d.blocks {
			r.fillBlock(db)
		}
	}
}

// fillBlock consumes a block's free segments. Segments are processed as a
// worklist so that a unit starting mid-segment (held back by an async-wait
// gate) leaves the gap before it available to other units.
func (r *run) fillBlock(db *dayBlock) {
	segs := append([]interval(nil), db.free...)

	for len(segs) > 0 {
		seg := segs[0]
		segs = segs[1:]
		cursor := seg.start

		for cursor.Before(seg.end) {
			u := r.queue.takeBest(func(u *unit) bool {
				return r.fits(u, db, cursor, seg.end)
			})
			if u == nil {
				break
			}

			start := cursor
			if u.notBefore.After(start) {
				start = u.notBefore
			}
			avail := int(seg.end.Sub(start) / time.Minute)
			if avail > db.remaining[u.category] {
				avail = db.remaining[u.category]
			}
			chunk := u.remaining
			if chunk > avail {
				chunk = avail
			}
			end := start.Add(time.Duration(chunk) * time.Minute)

			r.place(u, start, end, chunk)
			db.remaining[u.category] -= chunk

			if start.After(cursor) {
				// Reclaim the skipped gap for lower-priority units.
				segs = append(segs, interval{cursor, start})
			}
			cursor = end
		}
	}
}

// fits reports whether a unit can receive any work in [cursor, segEnd)
// given the block's remaining capacity and the unit's gates.
func (r *run) fits(u *unit, db *dayBlock, cursor, segEnd time.Time) bool {
	if db.remaining[u.category] <= 0 {
		return false
	}
	start := cursor
	if u.notBefore.After(start) {
		start = u.notBefore
	}
	if !start.Before(segEnd) {
		return false
	}
	if u.hard && u.deadline != nil && !start.Before(*u.deadline) {
		// Past the hard deadline: more work here cannot help.
		return false
	}
	avail := int(segEnd.Sub(start) / time.Minute)
	if avail > db.remaining[u.category] {
		avail = db.remaining[u.category]
	}
	if avail <= 0 {
		return false
	}
	if !r.cfg.AllowSplitting && avail < u.remaining {
		return false
	}
	return true
}

// place records one chunk of work for a unit. Completing a unit inserts its
// async-wait entry, marks it done, and admits newly-ready dependents.
func (r *run) place(u *unit, start, end time.Time, chunk int) {
	if u.isStep {
		r.appendItem(u.id, StepPlacement{
			StepID:     u.id,
			WorkflowID: u.workflowID,
			StepIndex:  u.stepIndex,
			Name:       u.name,
			Category:   u.category,
			Start:      start,
			End:        end,
			Minutes:    chunk,
			Score:      u.score,
		})
	} else {
		r.appendItem(u.id, TaskPlacement{
			TaskID:         u.id,
			OriginalTaskID: u.originalID,
			Name:           u.name,
			Category:       u.category,
			Start:          start,
			End:            end,
			Minutes:        chunk,
			Score:          u.score,
		})
	}
	r.res.TotalMinutes += chunk
	u.remaining -= chunk

	if u.remaining > 0 {
		// Remainder competes again for a later block.
		r.queue.add(u)
		return
	}

	finish := end
	if u.asyncWait > 0 {
		finish = end.Add(time.Duration(u.asyncWait) * time.Minute)
		r.res.Scheduled = append(r.res.Scheduled, AsyncWait{
			ForID: u.id,
			Name:  u.name + " (waiting)",
			Start: end,
			End:   finish,
		})
	}
	r.done[u.id] = true
	r.finishAt[u.id] = finish
	r.admitReady()
}

// admitReady moves units whose dependencies have all finished from the
// backlog into the priority queue, gated by the latest dependency finish
// time (which includes async waits).
func (r *run) admitReady() {
	remaining := r.waiting[:0]
	for _, u := range r.waiting {
		if r.depsDone(u) {
			u.notBefore = r.gate(u)
			r.queue.add(u)
		} else {
			remaining = append(remaining, u)
		}
	}
	r.waiting = remaining
}

func (r *run) depsDone(u *unit) bool {
	for _, depID := range u.deps {
		if !r.done[depID] {
			return false
		}
	}
	return true
}

// gate returns the earliest time a unit may start: the latest finish (plus
// async wait) among its dependencies.
func (r *run) gate(u *unit) time.Time {
	var gate time.Time
	for _, depID := range u.deps {
		if at, ok := r.finishAt[depID]; ok && at.After(gate) {
			gate = at
		}
	}
	return gate
}

// verifyHardDeadlines is the post-pass for hard-deadline units that the
// static precheck admitted but competition pushed past their deadline.
// Their chunks are withdrawn and the miss is reported as a conflict.
// Withdrawal cascades: dependents were admitted when the unit finished,
// so any placed unit depending on a withdrawn one is withdrawn too.
func (r *run) verifyHardDeadlines(units []*unit) {
	withdrawn := make(map[string]bool)
	for _, u := range units {
		if !u.hard || u.deadline == nil || r.unplaced[u.id] {
			continue
		}
		if u.remaining == 0 && !r.lastEnd(u).After(*u.deadline) {
			continue // fully placed in time
		}

		r.unplace(u, withdrawn)
		r.res.Conflicts = append(r.res.Conflicts, fmt.Sprintf(
			"impossible_deadline: %q could not be completed before %s",
			u.name, u.deadline.Format("2006-01-02 15:04")))
		r.addUnplaced(Unplaced{
			ID:         u.id,
			Name:       u.name,
			WorkflowID: u.workflowID,
			Reason:     ReasonImpossibleDeadline,
			Detail:     "higher-priority work consumed the capacity before the deadline",
			Minutes:    u.total,
		})
	}
	if len(withdrawn) == 0 {
		return
	}

	// Fixed-point cascade over placed dependents of withdrawn units.
	for changed := true; changed; {
		changed = false
		for _, u := range units {
			if r.unplaced[u.id] || len(r.placed[u.id]) == 0 {
				continue
			}
			dep := ""
			for _, depID := range u.deps {
				if withdrawn[depID] {
					dep = depID
					break
				}
			}
			if dep == "" {
				continue
			}
			r.unplace(u, withdrawn)
			r.addUnplaced(Unplaced{
				ID:         u.id,
				Name:       u.name,
				WorkflowID: u.workflowID,
				Reason:     ReasonNoCapacity,
				Detail:     fmt.Sprintf("blocked behind unscheduled dependency %q", dep),
				Minutes:    u.total,
			})
			changed = true
		}
	}
}

// unplace withdraws a unit's chunks and undoes its completion bookkeeping
// so nothing downstream treats the work as done.
func (r *run) unplace(u *unit, withdrawn map[string]bool) {
	r.withdraw(u.id)
	withdrawn[u.id] = true
	delete(r.done, u.id)
	delete(r.finishAt, u.id)
}

// lastEnd returns the latest end among a unit's placed chunks.
func (r *run) lastEnd(u *unit) time.Time {
	var last time.Time
	for _, i := range r.placed[u.id] {
		if r.res.Scheduled[i] == nil {
			continue
		}
		_, end := r.res.Scheduled[i].Span()
		if end.After(last) {
			last = end
		}
	}
	return last
}

// withdraw removes a unit's placed chunks (and async wait) from the output.
func (r *run) withdraw(id string) {
	for _, i := range r.placed[id] {
		if p, ok := r.res.Scheduled[i].(TaskPlacement); ok {
			r.res.TotalMinutes -= p.Minutes
		}
		if p, ok := r.res.Scheduled[i].(StepPlacement); ok {
			r.res.TotalMinutes -= p.Minutes
		}
		r.res.Scheduled[i] = nil
	}
	delete(r.placed, id)

	kept := r.res.Scheduled[:0]
	for _, item := range r.res.Scheduled {
		if item == nil {
			continue
		}
		if w, ok := item.(AsyncWait); ok && w.ForID == id {
			continue
		}
		kept = append(kept, item)
	}
	r.res.Scheduled = kept
	r.reindex()
}

// reindex rebuilds the unit id -> item index map after a withdrawal.
func (r *run) reindex() {
	r.placed = make(map[string][]int)
	for i, item := range r.res.Scheduled {
		switch p := item.(type) {
		case TaskPlacement:
			r.placed[p.TaskID] = append(r.placed[p.TaskID], i)
		case StepPlacement:
			r.placed[p.StepID] = append(r.placed[p.StepID], i)
		}
	}
}

// reportLeftovers files everything still unplaced at horizon end.
func (r *run) reportLeftovers() {
	for _, u := range r.queue.drain() {
		if r.unplaced[u.id] {
			continue // already reported (missed hard deadline)
		}
		if u.remaining < u.total {
			// Partially placed work stays in the schedule; the shortfall
			// is what gets reported.
			r.addUnplaced(Unplaced{
				ID:         u.id,
				Name:       u.name,
				WorkflowID: u.workflowID,
				Reason:     ReasonNoCapacity,
				Detail: fmt.Sprintf("only %d of %d min fit in the horizon",
					u.total-u.remaining, u.total),
				Minutes: u.remaining,
			})
			continue
		}
		r.addUnplaced(Unplaced{
			ID:         u.id,
			Name:       u.name,
			WorkflowID: u.workflowID,
			Reason:     ReasonNoCapacity,
			Detail:     fmt.Sprintf("no %q capacity available in horizon", u.category),
			Minutes:    u.remaining,
		})
	}

	for _, u := range r.waiting {
		if r.unplaced[u.id] {
			continue
		}
		detail := "dependency did not complete within the horizon"
		for _, depID := range u.deps {
			if r.unplaced[depID] {
				detail = fmt.Sprintf("blocked behind unscheduled dependency %q", depID)
				break
			}
		}
		r.addUnplaced(Unplaced{
			ID:         u.id,
			Name:       u.name,
			WorkflowID: u.workflowID,
			Reason:     ReasonNoCapacity,
			Detail:     detail,
			Minutes:    u.remaining,
		})
	}
}

func (r *run) addUnplaced(u Unplaced) {
	r.res.Unscheduled = append(r.res.Unscheduled, u)
	r.unplaced[u.ID] = true
}

func (r *run) appendItem(unitID string, item Item) {
	r.placed[unitID] = append(r.placed[unitID], len(r.res.Scheduled))
	r.res.Scheduled = append(r.res.Scheduled, item)
}

// finish sorts the output chronologically and attaches debug diagnostics.
func (r *run) finish(cfg Config, days []*day) {
	sort.SliceStable(r.res.Scheduled, func(i, j int) bool {
		si, _ := r.res.Scheduled[i].Span()
		sj, _ := r.res.Scheduled[j].Span()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return r.res.Scheduled[i].Label() < r.res.Scheduled[j].Label()
	})

	if !cfg.Debug {
		return
	}
	debug := &DebugInfo{TotalCapacity: make(map[string]int)}
	for _, d := range days {
		if d == nil {
			continue
		}
		debug.DaysExamined++
		for _, b := range d.blocks {
			for category, minutes := range b.remaining {
				debug.TotalCapacity[category] += minutes
			}
		}
	}
	debug.Notes = append(debug.Notes, fmt.Sprintf("mode=%s splitting=%t", cfg.Mode, cfg.AllowSplitting))
	r.res.Debug = debug
}
