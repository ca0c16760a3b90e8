package sched

import (
	"time"

	"github.com/aristath/tempo/internal/capacity"
)

// Mode selects the optimization strategy for a scheduling run.
type Mode int

const (
	// ModeOptimal packs for earliest completion: splitting is on by
	// default and every free minute is fair game.
	ModeOptimal Mode = iota
	// ModeRealistic respects natural block boundaries: no splitting by
	// default, which leaves headroom for a sustainable pace.
	ModeRealistic
	// ModeConservative starts the longest async waits first so external
	// processes overlap with as much other work as possible.
	ModeConservative
)

func (m Mode) String() string {
	switch m {
	case ModeOptimal:
		return "optimal"
	case ModeRealistic:
		return "realistic"
	case ModeConservative:
		return "conservative"
	}
	return "unknown"
}

// Config controls one scheduling run.
type Config struct {
	StartDate       string // YYYY-MM-DD; empty means the current date
	AllowSplitting  bool
	RespectMeetings bool
	Mode            Mode
	Debug           bool
}

// DefaultConfig returns the conventional configuration for a mode:
// splitting on for optimal, off otherwise; meetings always respected.
func DefaultConfig(mode Mode) Config {
	return Config{
		AllowSplitting:  mode == ModeOptimal,
		RespectMeetings: true,
		Mode:            mode,
	}
}

// PatternSource supplies work patterns by date. A missing pattern means
// zero capacity for that date; no implicit defaults.
type PatternSource interface {
	Pattern(date string) (*capacity.WorkPattern, bool)
}

// PatternMap is an in-memory PatternSource keyed by YYYY-MM-DD.
type PatternMap map[string]*capacity.WorkPattern

func (m PatternMap) Pattern(date string) (*capacity.WorkPattern, bool) {
	p, ok := m[date]
	return p, ok
}

// Context is the read-only snapshot a scheduling run operates over. The
// horizon begins at Now and extends HorizonDays across the pattern source.
type Context struct {
	Now         time.Time
	Patterns    PatternSource
	HorizonDays int // defaults to 30
}

func (c *Context) horizon() int {
	if c.HorizonDays <= 0 {
		return 30
	}
	return c.HorizonDays
}
