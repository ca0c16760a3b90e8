package capacity

import (
	"reflect"
	"strings"
	"testing"
)

func TestWorkPatternValidate(t *testing.T) {
	tests := []struct {
		name        string
		pattern     *WorkPattern
		wantErr     bool
		errContains string
	}{
		{
			name: "adjacent blocks are fine",
			pattern: &WorkPattern{
				Date: "2025-06-06",
				Blocks: []*Block{
					{ID: "am", Start: "09:00", End: "12:00", Kind: KindSingle, Category: "focused"},
					{ID: "pm", Start: "12:00", End: "17:00", Kind: KindSingle, Category: "admin"},
				},
			},
		},
		{
			name: "overlapping blocks rejected",
			pattern: &WorkPattern{
				Date: "2025-06-06",
				Blocks: []*Block{
					{ID: "am", Start: "09:00", End: "12:00", Kind: KindSingle, Category: "focused"},
					{ID: "pm", Start: "11:00", End: "17:00", Kind: KindSingle, Category: "admin"},
				},
			},
			wantErr:     true,
			errContains: "overlap",
		},
		{
			name:        "bad date rejected",
			pattern:     &WorkPattern{Date: "06/06/2025"},
			wantErr:     true,
			errContains: "pattern date",
		},
		{
			name: "bad meeting time rejected",
			pattern: &WorkPattern{
				Date:     "2025-06-06",
				Meetings: []Meeting{{Name: "standup", Start: "9am", End: "10:00"}},
			},
			wantErr:     true,
			errContains: "malformed clock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWorkPatternTotalCapacity(t *testing.T) {
	p := &WorkPattern{
		Date: "2025-06-06",
		Blocks: []*Block{
			{ID: "am", Start: "09:00", End: "12:00", Kind: KindSingle, Category: "focused"},
			{ID: "lunch", Start: "12:00", End: "13:00", Kind: KindSystem},
			{ID: "pm", Start: "13:00", End: "15:00", Kind: KindCombo,
				Allocations: map[string]int{"focused": 30, "admin": 90}},
		},
		Accumulated: map[string]int{"focused": 60, "admin": 200},
	}

	got, err := p.TotalCapacity()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// focused: 180+30-60; admin: 90-200 floored at zero.
	want := map[string]int{"focused": 150, "admin": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TotalCapacity() = %v, want %v", got, want)
	}
}

func TestFromTemplate(t *testing.T) {
	tpl := &DayTemplate{Blocks: []*Block{
		{ID: "am", Start: "09:00", End: "12:00", Kind: KindSingle, Category: "focused"},
		{ID: "pm", Start: "13:00", End: "15:00", Kind: KindCombo,
			Allocations: map[string]int{"focused": 60, "admin": 60}},
	}}

	p := FromTemplate("2025-06-06", tpl)
	if p.Date != "2025-06-06" {
		t.Errorf("date = %q", p.Date)
	}
	if len(p.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(p.Blocks))
	}

	// The instantiated pattern must be independent of the template.
	p.Blocks[0].Category = "changed"
	p.Blocks[1].Allocations["focused"] = 999
	if tpl.Blocks[0].Category != "focused" {
		t.Error("template block mutated through the pattern")
	}
	if tpl.Blocks[1].Allocations["focused"] != 60 {
		t.Error("template allocations mutated through the pattern")
	}

	if empty := FromTemplate("2025-06-07", nil); len(empty.Blocks) != 0 {
		t.Errorf("nil template should yield no blocks, got %d", len(empty.Blocks))
	}
}
