package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/tempo/internal/capacity"
)

// BlockConfig is the JSON shape of one declared capacity block.
type BlockConfig struct {
	ID          string         `json:"id,omitempty"`
	Start       string         `json:"start"` // HH:mm
	End         string         `json:"end"`   // HH:mm
	Kind        string         `json:"kind"`  // "system", "single", or "combo"
	Category    string         `json:"category,omitempty"`    // single-type blocks
	Allocations map[string]int `json:"allocations,omitempty"` // combo blocks
}

// DayHours is a reusable set of blocks applied to calendar dates.
type DayHours struct {
	Blocks []BlockConfig `json:"blocks"`
}

// Settings is the top-level user configuration: work-hour templates plus
// scheduling defaults.
type Settings struct {
	DefaultWorkHours DayHours            `json:"default_work_hours"`
	CustomWorkHours  map[string]DayHours `json:"custom_work_hours,omitempty"` // keyed by lowercase weekday name
	DefaultMode      string              `json:"default_mode,omitempty"`      // "optimal", "realistic", "conservative"
	HorizonDays      int                 `json:"horizon_days,omitempty"`
	DatabasePath     string              `json:"database_path,omitempty"`
}

// Template converts a day's block configs into the capacity model's shape.
func (d DayHours) Template() (*capacity.DayTemplate, error) {
	tpl := &capacity.DayTemplate{}
	for i, bc := range d.Blocks {
		var kind capacity.BlockKind
		switch bc.Kind {
		case "system":
			kind = capacity.KindSystem
		case "single", "":
			kind = capacity.KindSingle
		case "combo":
			kind = capacity.KindCombo
		default:
			return nil, fmt.Errorf("block %d: unknown kind %q", i, bc.Kind)
		}
		id := bc.ID
		if id == "" {
			id = fmt.Sprintf("block-%d", i)
		}
		tpl.Blocks = append(tpl.Blocks, &capacity.Block{
			ID:          id,
			Start:       bc.Start,
			End:         bc.End,
			Kind:        kind,
			Category:    bc.Category,
			Allocations: bc.Allocations,
		})
	}
	return tpl, nil
}

// TemplateFor returns the template for a weekday: the custom override if
// one is configured, otherwise the default work hours.
func (s *Settings) TemplateFor(weekday time.Weekday) (*capacity.DayTemplate, error) {
	if d, ok := s.CustomWorkHours[strings.ToLower(weekday.String())]; ok {
		return d.Template()
	}
	return s.DefaultWorkHours.Template()
}

// Horizon returns the configured scheduling horizon, defaulting to 30 days.
func (s *Settings) Horizon() int {
	if s.HorizonDays <= 0 {
		return 30
	}
	return s.HorizonDays
}
