// Package recompute owns the single "recompute the schedule" operation.
// Consumers never call the engine directly: every input mutation funnels
// through Trigger, which coalesces rapid-fire changes into one engine run.
package recompute

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/tempo/internal/capacity"
	"github.com/aristath/tempo/internal/config"
	"github.com/aristath/tempo/internal/events"
	"github.com/aristath/tempo/internal/persistence"
	"github.com/aristath/tempo/internal/sched"
)

// Config controls trigger coalescing.
type Config struct {
	Debounce       time.Duration // quiet period before a triggered run (default 250ms)
	RapidThreshold int           // triggers within one window that count as rapid-fire (default 5)
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 250 * time.Millisecond
	}
	if c.RapidThreshold <= 0 {
		c.RapidThreshold = 5
	}
	return c
}

// Service recomputes the schedule from store snapshots and publishes the
// outcome on the event bus.
type Service struct {
	store    persistence.Store
	bus      *events.Bus
	settings *config.Settings
	engine   *sched.Scheduler
	cfg      Config
	now      func() time.Time

	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group

	mu           sync.Mutex
	timer        *time.Timer
	triggerCount int
	last         *sched.Result
	lastCapacity int
}

// New creates a recompute service. now is injectable for deterministic
// tests; nil means time.Now.
func New(store persistence.Store, bus *events.Bus, settings *config.Settings, cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{
		store:    store,
		bus:      bus,
		settings: settings,
		engine:   sched.New(),
		cfg:      cfg.withDefaults(),
		now:      now,
	}

	// Repeated engine failures indicate a systemic problem (corrupt
	// store data, a bug); the breaker stops hammering the store until
	// things settle.
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "recompute",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("recompute breaker %q: %s -> %s", name, from, to)
		},
	})
	return s
}

// Trigger requests a recompute after the debounce window. Multiple
// triggers inside one window coalesce into a single engine run; rapid-fire
// triggering beyond the threshold is logged as a likely caller bug.
func (s *Service) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.triggerCount++
	if s.triggerCount == s.cfg.RapidThreshold {
		log.Printf("recompute: %d triggers within one debounce window; callers should batch input changes", s.triggerCount)
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.mu.Lock()
		s.triggerCount = 0
		s.timer = nil
		s.mu.Unlock()

		if _, err := s.Recompute(context.Background()); err != nil {
			log.Printf("recompute: %v", err)
		}
	})
}

// Recompute runs the engine immediately over a fresh store snapshot.
// Concurrent callers share one run; the result is also retained for Last.
func (s *Service) Recompute(ctx context.Context) (*sched.Result, error) {
	v, err, _ := s.group.Do("recompute", func() (any, error) {
		return s.breaker.Execute(func() (any, error) {
			return s.run(ctx)
		})
	})
	if err != nil {
		s.bus.Publish(events.RecomputeFailedEvent{
			Reason:    err.Error(),
			Timestamp: s.now(),
		})
		return nil, err
	}

	res := v.(*sched.Result)
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// CycleMode advances the optimization mode optimal -> realistic ->
// conservative -> optimal and returns the new mode's name. The change is
// in-memory only; persisting settings stays with the owner of the config.
func (s *Service) CycleMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ParseMode(s.settings.DefaultMode) {
	case sched.ModeOptimal:
		s.settings.DefaultMode = "realistic"
	case sched.ModeRealistic:
		s.settings.DefaultMode = "conservative"
	default:
		s.settings.DefaultMode = "optimal"
	}
	return s.settings.DefaultMode
}

// Last returns the most recent result, or nil before the first run.
func (s *Service) Last() *sched.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// LastCapacity returns the total schedulable minutes the horizon offered
// during the most recent run, or zero before the first run. Presentation
// layers combine it with Last to derive utilization metrics.
func (s *Service) LastCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCapacity
}

func (s *Service) run(ctx context.Context) (*sched.Result, error) {
	started := s.now()

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	workflows, err := s.store.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading workflows: %w", err)
	}
	patterns, err := s.snapshotPatterns(ctx, started)
	if err != nil {
		return nil, fmt.Errorf("loading work patterns: %w", err)
	}

	mode := ParseMode(s.settings.DefaultMode)
	res, err := s.engine.ScheduleForDisplay(tasks, workflows, &sched.Context{
		Now:         started,
		Patterns:    patterns,
		HorizonDays: s.settings.Horizon(),
	}, sched.DefaultConfig(mode))
	if err != nil {
		return nil, fmt.Errorf("scheduling: %w", err)
	}

	capacityMinutes, err := horizonCapacity(patterns, started, s.settings.Horizon())
	if err != nil {
		return nil, fmt.Errorf("totalling capacity: %w", err)
	}
	s.mu.Lock()
	s.lastCapacity = capacityMinutes
	s.mu.Unlock()

	s.bus.Publish(events.ScheduleRecomputedEvent{
		Scheduled:   len(res.Scheduled),
		Unscheduled: len(res.Unscheduled),
		Conflicts:   res.Conflicts,
		Elapsed:     s.now().Sub(started),
		Timestamp:   s.now(),
	})
	return res, nil
}

// snapshotPatterns assembles the horizon's work patterns: stored patterns
// where the user declared one, work-hour templates everywhere else. The
// engine itself never fabricates defaults; that construction happens here,
// on the adapter side.
func (s *Service) snapshotPatterns(ctx context.Context, now time.Time) (sched.PatternMap, error) {
	patterns := make(sched.PatternMap)

	stored, err := s.store.ListWorkPatterns(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		patterns[p.Date] = p
	}

	for i := 0; i < s.settings.Horizon(); i++ {
		day := now.AddDate(0, 0, i)
		date := day.Format(capacity.DateFormat)
		if _, ok := patterns[date]; ok {
			continue
		}
		tpl, err := s.settings.TemplateFor(day.Weekday())
		if err != nil {
			return nil, err
		}
		patterns[date] = capacity.FromTemplate(date, tpl)
	}
	return patterns, nil
}

// horizonCapacity totals the schedulable minutes the horizon's patterns
// offer, across all work categories.
func horizonCapacity(patterns sched.PatternMap, now time.Time, horizon int) (int, error) {
	total := 0
	for i := 0; i < horizon; i++ {
		date := now.AddDate(0, 0, i).Format(capacity.DateFormat)
		p, ok := patterns[date]
		if !ok || p == nil {
			continue
		}
		perCategory, err := p.TotalCapacity()
		if err != nil {
			return 0, err
		}
		for _, minutes := range perCategory {
			total += minutes
		}
	}
	return total, nil
}

// ParseMode maps a settings string to an optimization mode, defaulting to
// realistic.
func ParseMode(mode string) sched.Mode {
	switch mode {
	case "optimal":
		return sched.ModeOptimal
	case "conservative":
		return sched.ModeConservative
	default:
		return sched.ModeRealistic
	}
}
