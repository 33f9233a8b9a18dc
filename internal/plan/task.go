// Package plan models code-change task graphs and schedules them.
//
// A Graph is an ordered collection of tasks with declared dependencies.
// Order produces a linear execution order via Kahn's algorithm and fails
// fast on cycles, before any external side effect.
package plan

// Task is a single code-change task. Tasks are created at run start and
// read-only thereafter.
type Task struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Graph is an ordered collection of tasks. Invariants: task ids are unique
// and the dependency edges are acyclic. Dependency ids that do not resolve
// to a task in the same graph are treated as absent edges; callers should
// not rely on this behavior.
type Graph struct {
	Tasks []Task `json:"tasks"`
}

// Len returns the number of tasks in the graph.
func (g Graph) Len() int {
	return len(g.Tasks)
}

// IDs returns the task ids in input order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
