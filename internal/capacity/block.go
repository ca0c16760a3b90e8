package capacity

import (
	"fmt"
)

// BlockKind determines how a block's span is converted into capacity.
type BlockKind int

const (
	// KindSystem marks sleep/blocked placeholders. Zero schedulable capacity.
	KindSystem BlockKind = iota
	// KindSingle offers the block's entire span to one category.
	KindSingle
	// KindCombo splits the span across named categories by explicit minutes.
	KindCombo
)

// Block is a time-bounded span within one day offering schedulable minutes
// of one or more work categories.
type Block struct {
	ID          string
	Start       string // HH:mm
	End         string // HH:mm
	Kind        BlockKind
	Category    string         // KindSingle: the one category offered
	Allocations map[string]int // KindCombo: category -> minutes
}

// AllocationError reports combo allocations that do not sum to the block's
// span. Historically this passed silently; it is now rejected outright.
type AllocationError struct {
	BlockID   string
	Span      int
	Allocated int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("block %q: combo allocations total %d min, span is %d min",
		e.BlockID, e.Allocated, e.Span)
}

// Span returns the block's length in minutes.
func (b *Block) Span() (int, error) {
	start, err := ParseClock(b.Start)
	if err != nil {
		return 0, err
	}
	end, err := ParseClock(b.End)
	if err != nil {
		return 0, err
	}
	if end < start {
		return 0, fmt.Errorf("block %q: end %s before start %s", b.ID, b.End, b.Start)
	}
	return end - start, nil
}

// Capacity converts the block into per-category available minutes.
// A zero-length block yields zero capacity for all categories, not an error.
func (b *Block) Capacity() (map[string]int, error) {
	span, err := b.Span()
	if err != nil {
		return nil, err
	}

	cap := make(map[string]int)
	if span == 0 {
		return cap, nil
	}

	switch b.Kind {
	case KindSystem:
		// sleep/blocked: offers nothing
	case KindSingle:
		if b.Category == "" {
			return nil, fmt.Errorf("block %q: single-type block has no category", b.ID)
		}
		cap[b.Category] = span
	case KindCombo:
		total := 0
		for category, minutes := range b.Allocations {
			if minutes < 0 {
				return nil, fmt.Errorf("block %q: negative allocation for %q", b.ID, category)
			}
			cap[category] = minutes
			total += minutes
		}
		if total != span {
			return nil, &AllocationError{BlockID: b.ID, Span: span, Allocated: total}
		}
	default:
		return nil, fmt.Errorf("block %q: unknown kind %d", b.ID, b.Kind)
	}
	return cap, nil
}
