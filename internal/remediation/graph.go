package remediation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// ErrSelfLoop is returned when a node is made to depend on itself.
var ErrSelfLoop = errors.New("self-referencing dependency")

// NodeID is a stable index into a Graph's node arena.
type NodeID int

// Graph is a dependency graph over string-keyed nodes. deps[n] lists the
// nodes n depends on, in insertion order.
type Graph struct {
	keys  []string
	index map[string]NodeID
	deps  [][]NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]NodeID)}
}

// AddNode inserts key if missing and returns its id.
func (g *Graph) AddNode(key string) NodeID {
	if id, ok := g.index[key]; ok {
		return id
	}
	id := NodeID(len(g.keys))
	g.keys = append(g.keys, key)
	g.deps = append(g.deps, nil)
	g.index[key] = id
	return id
}

// Lookup returns the id for key.
func (g *Graph) Lookup(key string) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// Key returns the key of id.
func (g *Graph) Key(id NodeID) string {
	return g.keys[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.keys)
}

// AddDependency records that node depends on dep. Duplicate edges are ignored
// and the return value reports whether a new edge was added.
func (g *Graph) AddDependency(node, dep NodeID) (bool, error) {
	if node == dep {
		return false, fmt.Errorf("%s: %w", g.keys[node], ErrSelfLoop)
	}
	if g.HasDependency(node, dep) {
		return false, nil
	}
	g.deps[node] = append(g.deps[node], dep)
	return true, nil
}

// HasDependency reports whether node directly depends on dep.
func (g *Graph) HasDependency(node, dep NodeID) bool {
	for _, d := range g.deps[node] {
		if d == dep {
			return true
		}
	}
	return false
}

// Dependencies returns the direct dependencies of node.
func (g *Graph) Dependencies(node NodeID) []NodeID {
	return g.deps[node]
}

// CycleError reports a circular dependency along Path (first node repeated last).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return models.ErrCycleDetected
}

type visitState uint8

const (
	unvisited visitState = iota
	onStack
	done
)

// TopologicalOrder returns every node after all of its dependencies. Nodes
// are visited in insertion order, so the result is deterministic. A node seen
// again while still on the recursion stack yields a *CycleError.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	state := make([]visitState, len(g.keys))
	order := make([]NodeID, 0, len(g.keys))
	stack := make([]NodeID, 0, len(g.keys))

	var visit func(n NodeID) error
	visit = func(n NodeID) error {
		switch state[n] {
		case done:
			return nil
		case onStack:
			return g.cycleFrom(stack, n)
		}
		state[n] = onStack
		stack = append(stack, n)
		for _, dep := range g.deps[n] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		order = append(order, n)
		return nil
	}

	for n := range g.keys {
		if err := visit(NodeID(n)); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// FindCycle returns the first cycle found, or nil for an acyclic graph.
func (g *Graph) FindCycle() []string {
	_, err := g.TopologicalOrder()
	var cycle *CycleError
	if errors.As(err, &cycle) {
		return cycle.Path
	}
	return nil
}

func (g *Graph) cycleFrom(stack []NodeID, repeat NodeID) error {
	start := 0
	for i, n := range stack {
		if n == repeat {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, n := range stack[start:] {
		path = append(path, g.keys[n])
	}
	path = append(path, g.keys[repeat])
	return &CycleError{Path: path}
}
