package sched

import (
	"sort"
	"time"

	"github.com/aristath/tempo/internal/capacity"
)

// interval is a half-open [start, end) time range.
type interval struct {
	start, end time.Time
}

func (iv interval) minutes() int {
	return int(iv.end.Sub(iv.start) / time.Minute)
}

// fixedUse is a pre-placed interval (a locked task) that both occupies
// clock time and consumes capacity of its category.
type fixedUse struct {
	iv       interval
	category string
}

// dayBlock is one capacity block resolved onto the calendar: absolute
// bounds, per-category minutes remaining, and the free sub-intervals left
// after meetings and locked placements are carved out.
type dayBlock struct {
	start     time.Time
	end       time.Time
	remaining map[string]int
	free      []interval
}

// day is one calendar date's resolved schedule state.
type day struct {
	date     string
	blocks   []*dayBlock
	meetings []FixedEvent
}

// buildDay resolves a work pattern onto absolute time. now clips away the
// already-elapsed part of today; busy holds fixed intervals (locked
// placements) that must not receive other work. Returns a structural error
// for malformed blocks; a day with no pattern is simply a nil day.
func buildDay(p *capacity.WorkPattern, now time.Time, respectMeetings bool, busy []fixedUse) (*day, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	date, _ := time.ParseInLocation(capacity.DateFormat, p.Date, now.Location())
	d := &day{date: p.Date}

	// Fixed meeting entries are part of the display output even though
	// they never consume block capacity.
	var meetingSpans []interval
	if respectMeetings {
		for _, m := range p.Meetings {
			ms, _ := capacity.ParseClock(m.Start)
			me, _ := capacity.ParseClock(m.End)
			iv := interval{capacity.ClockAt(date, ms), capacity.ClockAt(date, me)}
			meetingSpans = append(meetingSpans, iv)
			d.meetings = append(d.meetings, FixedEvent{Name: m.Name, Start: iv.start, End: iv.end})
		}
	}

	// Accumulated consumption decrements the earliest blocks offering the
	// category. The pattern only records day-level totals, so this is the
	// deterministic reading of "already consumed".
	accLeft := make(map[string]int, len(p.Accumulated))
	for category, minutes := range p.Accumulated {
		accLeft[category] = minutes
	}

	blocks := append([]*capacity.Block(nil), p.Blocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })

	for _, b := range blocks {
		cap, err := b.Capacity()
		if err != nil {
			return nil, err
		}
		if len(cap) == 0 {
			continue // system block or zero length
		}

		bs, _ := capacity.ParseClock(b.Start)
		be, _ := capacity.ParseClock(b.End)
		db := &dayBlock{
			start:     capacity.ClockAt(date, bs),
			end:       capacity.ClockAt(date, be),
			remaining: make(map[string]int, len(cap)),
		}
		for category, minutes := range cap {
			used := accLeft[category]
			if used > minutes {
				used = minutes
			}
			accLeft[category] -= used
			db.remaining[category] = minutes - used
		}

		// Free time starts at the block start, or now for today's blocks.
		start := db.start
		if start.Before(now) {
			start = now
		}
		if !start.Before(db.end) {
			continue // block fully elapsed
		}
		db.free = []interval{{start, db.end}}
		for _, m := range meetingSpans {
			db.free = subtract(db.free, m)
		}
		for _, u := range busy {
			db.free = subtract(db.free, u.iv)
			// A locked placement inside this block also consumes its
			// category's minutes.
			overlap := intersect(interval{db.start, db.end}, u.iv).minutes()
			if overlap > 0 && db.remaining[u.category] > 0 {
				db.remaining[u.category] -= overlap
				if db.remaining[u.category] < 0 {
					db.remaining[u.category] = 0
				}
			}
		}
		if len(db.free) == 0 {
			continue
		}
		d.blocks = append(d.blocks, db)
	}

	return d, nil
}

// intersect returns the overlap of two intervals; zero-length if disjoint.
func intersect(a, b interval) interval {
	start := a.start
	if b.start.After(start) {
		start = b.start
	}
	end := a.end
	if b.end.Before(end) {
		end = b.end
	}
	if end.Before(start) {
		end = start
	}
	return interval{start, end}
}

// subtract removes iv from each interval in the set, splitting as needed.
func subtract(set []interval, iv interval) []interval {
	var out []interval
	for _, s := range set {
		if !iv.start.Before(s.end) || !s.start.Before(iv.end) {
			out = append(out, s) // no overlap
			continue
		}
		if s.start.Before(iv.start) {
			out = append(out, interval{s.start, iv.start})
		}
		if iv.end.Before(s.end) {
			out = append(out, interval{iv.end, s.end})
		}
	}
	return out
}

// available sums the minutes of the given category that this day can still
// offer before the cutoff. Constrained by both remaining category minutes
// and free clock time.
func (d *day) available(category string, cutoff time.Time) int {
	total := 0
	for _, b := range d.blocks {
		rem := b.remaining[category]
		if rem == 0 {
			continue
		}
		free := 0
		for _, iv := range b.free {
			clipped := iv
			if clipped.end.After(cutoff) {
				clipped.end = cutoff
			}
			if clipped.start.Before(clipped.end) {
				free += clipped.minutes()
			}
		}
		if free < rem {
			total += free
		} else {
			total += rem
		}
	}
	return total
}
