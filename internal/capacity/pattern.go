package capacity

import (
	"fmt"
	"sort"
	"time"
)

// DateFormat is the calendar-date key used throughout: YYYY-MM-DD.
const DateFormat = "2006-01-02"

// Meeting is a fixed, non-negotiable occupied interval within one day.
// Sleep and other blocked placeholders are represented the same way.
type Meeting struct {
	Name  string
	Start string // HH:mm
	End   string // HH:mm
}

// WorkPattern declares one calendar day's capacity blocks, fixed meetings,
// and minutes already consumed per category.
type WorkPattern struct {
	Date        string // YYYY-MM-DD
	Blocks      []*Block
	Meetings    []Meeting
	Accumulated map[string]int // category -> minutes already consumed
}

// Validate checks that every block parses and that no two blocks overlap.
func (p *WorkPattern) Validate() error {
	if _, err := time.Parse(DateFormat, p.Date); err != nil {
		return fmt.Errorf("pattern date %q: %w", p.Date, err)
	}

	type span struct {
		id         string
		start, end int
	}
	spans := make([]span, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if _, err := b.Capacity(); err != nil {
			return err
		}
		start, _ := ParseClock(b.Start)
		end, _ := ParseClock(b.End)
		spans = append(spans, span{id: b.ID, start: start, end: end})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return fmt.Errorf("pattern %s: blocks %q and %q overlap",
				p.Date, spans[i-1].id, spans[i].id)
		}
	}

	for _, m := range p.Meetings {
		if _, err := ParseClock(m.Start); err != nil {
			return err
		}
		if _, err := ParseClock(m.End); err != nil {
			return err
		}
	}
	return nil
}

// TotalCapacity sums the per-category capacity of all blocks, net of
// accumulated consumption. Meetings are not subtracted here; the scheduler
// subtracts them per block because they may straddle block boundaries.
func (p *WorkPattern) TotalCapacity() (map[string]int, error) {
	total := make(map[string]int)
	for _, b := range p.Blocks {
		cap, err := b.Capacity()
		if err != nil {
			return nil, err
		}
		for category, minutes := range cap {
			total[category] += minutes
		}
	}
	for category, used := range p.Accumulated {
		total[category] -= used
		if total[category] < 0 {
			total[category] = 0
		}
	}
	return total, nil
}

// DayTemplate is a reusable set of blocks applied to dates by weekday.
// Work settings hold one default template plus per-weekday overrides.
type DayTemplate struct {
	Blocks []*Block
}

// FromTemplate instantiates a work pattern for a date from a day template.
// A nil template means a day with no declared capacity.
func FromTemplate(date string, tpl *DayTemplate) *WorkPattern {
	p := &WorkPattern{Date: date, Accumulated: make(map[string]int)}
	if tpl == nil {
		return p
	}
	for _, b := range tpl.Blocks {
		cp := *b
		if b.Allocations != nil {
			cp.Allocations = make(map[string]int, len(b.Allocations))
			for k, v := range b.Allocations {
				cp.Allocations[k] = v
			}
		}
		p.Blocks = append(p.Blocks, &cp)
	}
	return p
}
