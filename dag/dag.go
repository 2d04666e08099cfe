package dag

import (
	"fmt"

	"github.com/skillsenselab/flowkit/errors"
	"github.com/skillsenselab/flowkit/pipeline"
)

// DAG is the dependency graph derived from a pipeline definition. It is
// read-only after Build; the executor copies the counters it mutates.
type DAG struct {
	def        *pipeline.Definition
	order      []string
	levels     [][]string
	dependents map[string][]string
	inDegree   map[string]int
	index      map[string]int // declaration order
}

// Build derives the DAG for a definition. It fails on duplicate task ids,
// with UnknownDependency if a task references a missing id, and with
// CyclicDependency, naming the cycle's task ids, if the graph contains a
// cycle. No partial DAG is ever returned.
func Build(def *pipeline.Definition) (*DAG, error) {
	index := make(map[string]int, len(def.Tasks))
	for i, t := range def.Tasks {
		if _, ok := index[t.ID]; ok {
			return nil, errors.Validation(fmt.Sprintf("duplicate task id %q", t.ID))
		}
		index[t.ID] = i
	}

	dependents := make(map[string][]string, len(def.Tasks))
	inDegree := make(map[string]int, len(def.Tasks))
	for _, t := range def.Tasks {
		inDegree[t.ID] = 0
	}
	for _, t := range def.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, errors.UnknownDependency(t.ID, dep)
			}
			dependents[dep] = append(dependents[dep], t.ID)
			inDegree[t.ID]++
		}
	}

	d := &DAG{
		def:        def,
		dependents: dependents,
		inDegree:   inDegree,
		index:      index,
	}

	if cycle := d.findCycle(); cycle != nil {
		return nil, errors.CyclicDependency(cycle)
	}

	d.order = d.topologicalOrder()
	d.levels = d.buildLevels()
	return d, nil
}

// Definition returns the definition this DAG was built from.
func (d *DAG) Definition() *pipeline.Definition { return d.def }

// Order returns the topological execution order. Every dependency appears
// before its dependents; ties follow declaration order.
func (d *DAG) Order() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Levels groups tasks by dependency depth; tasks within a level have no
// dependency relationship and may run in parallel.
func (d *DAG) Levels() [][]string {
	out := make([][]string, len(d.levels))
	for i, level := range d.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// Dependents returns the direct dependents of a task.
func (d *DAG) Dependents(id string) []string {
	return append([]string(nil), d.dependents[id]...)
}

// InDegrees returns a mutable copy of the per-task in-degree counters.
func (d *DAG) InDegrees() map[string]int {
	out := make(map[string]int, len(d.inDegree))
	for id, deg := range d.inDegree {
		out[id] = deg
	}
	return out
}

// TransitiveDependents returns the transitive closure of a task's
// dependents, in topological order. This is the skip-cascade blast radius of
// a terminal failure.
func (d *DAG) TransitiveDependents(id string) []string {
	reached := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range d.dependents[cur] {
			if !reached[dep] {
				reached[dep] = true
				walk(dep)
			}
		}
	}
	walk(id)

	var out []string
	for _, task := range d.order {
		if reached[task] {
			out = append(out, task)
		}
	}
	return out
}

// --- construction internals ---

const (
	white = iota // unvisited
	gray         // on the current DFS path
	black        // fully explored
)

// findCycle runs a three-color depth-first traversal. A back-edge to a gray
// node closes a cycle; the returned slice names the cycle's task ids in path
// order with the entry id repeated at the end.
func (d *DAG) findCycle() []string {
	color := make(map[string]int, len(d.def.Tasks))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)

		for _, dep := range d.dependents[id] {
			switch color[dep] {
			case gray:
				// Back-edge: slice the current path from dep onward.
				for i, p := range path {
					if p == dep {
						cycle = append(append([]string(nil), path[i:]...), dep)
						return true
					}
				}
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, t := range d.def.Tasks {
		if color[t.ID] == white && visit(t.ID) {
			return cycle
		}
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm, always picking the ready task with
// the smallest declaration index.
func (d *DAG) topologicalOrder() []string {
	inDeg := d.InDegrees()

	var ready []string
	for _, t := range d.def.Tasks {
		if inDeg[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}

	order := make([]string, 0, len(d.def.Tasks))
	for len(ready) > 0 {
		// ready is kept sorted by declaration index; take the head.
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range d.dependents[next] {
			inDeg[dep]--
			if inDeg[dep] == 0 {
				ready = insertByIndex(ready, dep, d.index)
			}
		}
	}
	return order
}

// buildLevels groups tasks by dependency depth. Tasks within a level are
// mutually independent.
func (d *DAG) buildLevels() [][]string {
	inDeg := d.InDegrees()

	var current []string
	for _, t := range d.def.Tasks {
		if inDeg[t.ID] == 0 {
			current = append(current, t.ID)
		}
	}

	var levels [][]string
	for len(current) > 0 {
		levels = append(levels, current)

		var next []string
		for _, id := range current {
			for _, dep := range d.dependents[id] {
				inDeg[dep]--
				if inDeg[dep] == 0 {
					next = insertByIndex(next, dep, d.index)
				}
			}
		}
		current = next
	}
	return levels
}

// insertByIndex inserts id into a slice kept sorted by declaration index.
func insertByIndex(ids []string, id string, index map[string]int) []string {
	pos := len(ids)
	for i, existing := range ids {
		if index[id] < index[existing] {
			pos = i
			break
		}
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}
