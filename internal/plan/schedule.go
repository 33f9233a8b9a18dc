package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDependencyCycle indicates the task graph contains a dependency cycle.
// It is a pre-flight failure: no external call may have been made when it
// is returned.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// ErrDuplicateTask indicates two tasks in a graph share an id.
var ErrDuplicateTask = errors.New("duplicate task id")

// Order returns the graph's tasks in an order where every task appears
// after all tasks it depends on, using Kahn's algorithm. Independent tasks
// keep their input order.
//
// Dependency ids that reference no task in the graph are ignored as absent
// edges rather than rejected.
func Order(g Graph) ([]Task, error) {
	byID := make(map[string]Task, len(g.Tasks))
	for _, t := range g.Tasks {
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, t.ID)
		}
		byID[t.ID] = t
	}

	// inDegree counts edges from resolvable dependencies only.
	inDegree := make(map[string]int, len(g.Tasks))
	dependents := make(map[string][]string, len(g.Tasks))
	for _, t := range g.Tasks {
		inDegree[t.ID] += 0
		for _, dep := range t.Dependencies {
			if _, known := byID[dep]; !known {
				continue
			}
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	// Seed the ready queue in input order so independent tasks are stable.
	var ready []string
	for _, t := range g.Tasks {
		if inDegree[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}

	ordered := make([]Task, 0, len(g.Tasks))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[id])

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) < len(g.Tasks) {
		return nil, fmt.Errorf("%w: unresolved tasks [%s]", ErrDependencyCycle,
			strings.Join(unordered(g, ordered), ", "))
	}
	return ordered, nil
}

// unordered lists the task ids left out of a partial order, in input order.
func unordered(g Graph, ordered []Task) []string {
	seen := make(map[string]bool, len(ordered))
	for _, t := range ordered {
		seen[t.ID] = true
	}
	var missing []string
	for _, t := range g.Tasks {
		if !seen[t.ID] {
			missing = append(missing, t.ID)
		}
	}
	return missing
}
