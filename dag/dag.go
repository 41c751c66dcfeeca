// Package dag implements the directed acyclic graph used to order
// workflow steps. Nodes are registered under a unique ID and connected
// with directed edges; TopoSort validates acyclicity and reports the
// offending cycle when one exists.
//
// A Graph is not safe for concurrent mutation. The intended usage is
// to build it fully, validate it with TopoSort, and treat it as
// read-only afterwards; concurrent reads of a frozen graph are safe.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateNode is returned when a node ID is registered twice.
	ErrDuplicateNode = errors.New("node already exists")

	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrSelfReference is returned when a node is connected to itself.
	ErrSelfReference = errors.New("node cannot depend on itself")
)

// CycleError reports a dependency cycle found during TopoSort.
// Cycle holds the member node IDs in edge order, starting from the
// earliest-registered member and ending where it began.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Graph is a directed graph of items indexed by string ID.
type Graph[T any] struct {
	nodes map[string]T
	order []string // insertion order of node IDs

	// Adjacency in both directions: out[from][to] and in[to][from].
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}
}

// New creates an empty Graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		nodes: make(map[string]T),
		out:   make(map[string]map[string]struct{}),
		in:    make(map[string]map[string]struct{}),
	}
}

// AddNode registers item under id. Returns ErrDuplicateNode if the ID
// is already taken.
func (g *Graph[T]) AddNode(id string, item T) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	g.nodes[id] = item
	g.order = append(g.order, id)
	g.out[id] = make(map[string]struct{})
	g.in[id] = make(map[string]struct{})
	return nil
}

// Node returns the item registered under id.
func (g *Graph[T]) Node(id string) (T, bool) {
	item, ok := g.nodes[id]
	return item, ok
}

// Len returns the number of registered nodes.
func (g *Graph[T]) Len() int {
	return len(g.nodes)
}

// NodeIDs returns all node IDs in insertion order.
func (g *Graph[T]) NodeIDs() []string {
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Connect adds a directed edge from -> to. Both nodes must exist and
// must differ. Connecting the same pair twice is a no-op.
func (g *Graph[T]) Connect(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %q", ErrSelfReference, from)
	}
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, to)
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	return nil
}

// DependenciesOf returns the IDs with an edge into id, sorted.
func (g *Graph[T]) DependenciesOf(id string) []string {
	return sortedKeys(g.in[id])
}

// DependentsOf returns the IDs id has an edge into, sorted.
func (g *Graph[T]) DependentsOf(id string) []string {
	return sortedKeys(g.out[id])
}

// Indegrees returns a fresh map of node ID to the number of inbound
// edges. Callers may mutate the returned map freely.
func (g *Graph[T]) Indegrees() map[string]int {
	degrees := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		degrees[id] = len(g.in[id])
	}
	return degrees
}

// TopoSort returns the node IDs in a valid topological order using
// Kahn's algorithm. Nodes become eligible in insertion order, so the
// result is deterministic for a given construction sequence. If the
// graph contains a cycle, a *CycleError naming its members is
// returned.
func (g *Graph[T]) TopoSort() ([]string, error) {
	degrees := g.Indegrees()

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if degrees[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		// Release dependents in insertion order for determinism.
		for _, id := range g.order {
			if _, ok := g.out[current][id]; !ok {
				continue
			}
			degrees[id]--
			if degrees[id] == 0 {
				queue = append(queue, id)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.findCycle(degrees)}
	}
	return sorted, nil
}

// findCycle extracts one concrete cycle from the nodes left with a
// nonzero indegree after Kahn's algorithm ran to completion. Every
// such node kept an inbound edge from another one (the sort releases
// any node whose remaining predecessors run out), so walking
// predecessors within the remaining set never dead-ends and must
// eventually revisit a node. A successor walk has no such guarantee:
// a node fed by the cycle can remain without any outgoing edge.
func (g *Graph[T]) findCycle(degrees map[string]int) []string {
	remaining := make(map[string]bool, len(degrees))
	var start string
	for _, id := range g.order {
		if degrees[id] > 0 {
			remaining[id] = true
			if start == "" {
				start = id
			}
		}
	}
	if start == "" {
		return nil
	}

	seen := map[string]int{start: 0}
	path := []string{start}
	for {
		current := path[len(path)-1]

		prev := ""
		for _, id := range g.order {
			if _, ok := g.in[current][id]; ok && remaining[id] {
				prev = id
				break
			}
		}
		if prev == "" {
			// Cannot happen: a remaining node with no remaining
			// predecessor would have been sorted.
			return nil
		}

		if at, ok := seen[prev]; ok {
			return g.closeCycle(path[at:])
		}
		seen[prev] = len(path)
		path = append(path, prev)
	}
}

// closeCycle converts a predecessor-walk segment, which lists cycle
// members in reverse edge order, into a closed cycle that starts at
// the earliest-registered member and ends where it began.
func (g *Graph[T]) closeCycle(segment []string) []string {
	members := make(map[string]int, len(segment))
	flipped := make([]string, len(segment))
	for i, id := range segment {
		at := len(segment) - 1 - i
		flipped[at] = id
		members[id] = at
	}

	start := 0
	for _, id := range g.order {
		if at, ok := members[id]; ok {
			start = at
			break
		}
	}

	cycle := make([]string, 0, len(flipped)+1)
	cycle = append(cycle, flipped[start:]...)
	cycle = append(cycle, flipped[:start]...)
	return append(cycle, cycle[0])
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
