package sched

import (
	"fmt"
	"sort"

	"github.com/gammazero/toposort"

	"github.com/aristath/tempo/internal/task"
)

// CycleError reports a dependency cycle among a workflow's steps. A cyclic
// workflow is a caller bug: it must be rejected, never partially scheduled.
type CycleError struct {
	WorkflowID string
	Err        error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow %q: dependency cycle: %v", e.WorkflowID, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// Graph resolves execution order and readiness for one workflow's steps.
// It is built per scheduling run; all state is local to the invocation.
type Graph struct {
	workflowID string
	steps      map[string]*task.Step
	ordered    []*task.Step // declared order, for deterministic iteration
}

// NewGraph indexes a workflow's steps for dependency resolution.
func NewGraph(w *task.Workflow) *Graph {
	g := &Graph{
		workflowID: w.ID,
		steps:      make(map[string]*task.Step, len(w.Steps)),
	}
	ordered := append([]*task.Step(nil), w.Steps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, s := range ordered {
		g.steps[s.ID] = s
	}
	g.ordered = ordered
	return g
}

// Validate runs a topological sort over the step graph and returns the
// sorted step IDs, or a *CycleError if the graph contains a cycle.
// Edges to nonexistent step IDs are ignored here; they cannot form a cycle
// and are reported separately via Blocked.
func (g *Graph) Validate() ([]string, error) {
	var edges []toposort.Edge
	for _, s := range g.ordered {
		deps := 0
		for _, depID := range s.DependsOn {
			if _, exists := g.steps[depID]; exists {
				edges = append(edges, toposort.Edge{depID, s.ID})
				deps++
			}
		}
		if deps == 0 {
			// Keep dependency-free steps in the sort output.
			edges = append(edges, toposort.Edge{nil, s.ID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &CycleError{WorkflowID: g.workflowID, Err: err}
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// Blocked returns the IDs of steps that can never become ready: steps with
// a dependsOn id that resolves to no sibling step, plus every step behind
// them. These are reported as unresolved, not silently skipped.
func (g *Graph) Blocked() []string {
	blocked := make(map[string]bool)

	// Seed with directly dangling references, then propagate until fixed.
	for changed := true; changed; {
		changed = false
		for _, s := range g.ordered {
			if blocked[s.ID] || s.Done() {
				continue
			}
			for _, depID := range s.DependsOn {
				if _, exists := g.steps[depID]; !exists || blocked[depID] {
					blocked[s.ID] = true
					changed = true
					break
				}
			}
		}
	}

	var ids []string
	for _, s := range g.ordered {
		if blocked[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Ready returns the readiness frontier: steps that are not done, not
// blocked, and whose dependencies all satisfy the given predicate. Order
// follows the declared step index; the priority queue applies scoring on
// top of that.
func (g *Graph) Ready(done func(id string) bool) []*task.Step {
	blocked := make(map[string]bool)
	for _, id := range g.Blocked() {
		blocked[id] = true
	}

	var ready []*task.Step
	for _, s := range g.ordered {
		if s.Done() || blocked[s.ID] {
			continue
		}
		all := true
		for _, depID := range s.DependsOn {
			if !done(depID) {
				all = false
				break
			}
		}
		if all {
			ready = append(ready, s)
		}
	}
	return ready
}
