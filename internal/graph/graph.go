// Package graph builds validated vertex-adjacency views for the theory
// propagators that reason about topology (spec.md §4.3: connectivity,
// circuit, graph division). Construction goes through
// github.com/katalvlaran/lvlath/core so that malformed edge lists are
// rejected the same way the rest of the pack validates graph topology,
// then the result is flattened to plain [][]int adjacency for the hot
// propagation loop, which has no business paying for lvlath's string-keyed
// vertex map on every propagate call.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/katalvlaran/lvlath/core"
)

// ErrInvalidEdge is returned when an edge references a vertex outside
// [0, numVertices).
var ErrInvalidEdge = errors.New("graph: invalid edge")

// Graph is an immutable, 0-indexed undirected adjacency list built and
// validated once at propagator-initialization time.
type Graph struct {
	numVertices int
	adjacency   [][]int
	edges       [][2]int
}

// New validates edges against numVertices via a scratch lvlath core.Graph
// (catching out-of-range or malformed references the way csp.Validate does
// for the rest of the IR) and returns a compact adjacency view.
//
// Complexity: O(V + E) to build, O(E log E) to sort adjacency rows.
func New(numVertices int, edges [][2]int) (*Graph, error) {
	if numVertices < 0 {
		return nil, fmt.Errorf("%w: negative vertex count %d", ErrInvalidEdge, numVertices)
	}

	g := core.NewGraph(core.WithDirected(false))
	for i := 0; i < numVertices; i++ {
		if err := g.AddVertex(vertexID(i)); err != nil {
			return nil, fmt.Errorf("graph: adding vertex %d: %w", i, err)
		}
	}
	for _, e := range edges {
		if e[0] < 0 || e[0] >= numVertices || e[1] < 0 || e[1] >= numVertices {
			return nil, fmt.Errorf("%w: edge (%d, %d) out of range for %d vertices", ErrInvalidEdge, e[0], e[1], numVertices)
		}
		if _, err := g.AddEdge(vertexID(e[0]), vertexID(e[1]), 0); err != nil {
			return nil, fmt.Errorf("graph: adding edge (%d, %d): %w", e[0], e[1], err)
		}
	}

	adjacency := make([][]int, numVertices)
	for i := 0; i < numVertices; i++ {
		neighborIDs, err := g.NeighborIDs(vertexID(i))
		if err != nil {
			return nil, fmt.Errorf("graph: neighbors of %d: %w", i, err)
		}
		row := make([]int, 0, len(neighborIDs))
		for _, id := range neighborIDs {
			v, err := strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("graph: malformed vertex id %q: %w", id, err)
			}
			row = append(row, v)
		}
		sort.Ints(row)
		adjacency[i] = row
	}

	edgesCopy := make([][2]int, len(edges))
	copy(edgesCopy, edges)

	return &Graph{numVertices: numVertices, adjacency: adjacency, edges: edgesCopy}, nil
}

func vertexID(v int) string {
	return strconv.Itoa(v)
}

// NumVertices returns the vertex count the graph was built with.
func (g *Graph) NumVertices() int {
	return g.numVertices
}

// Neighbors returns the sorted adjacency row for vertex v. The returned
// slice must not be mutated by the caller.
func (g *Graph) Neighbors(v int) []int {
	return g.adjacency[v]
}

// Edges returns the edge list the graph was built from, in input order.
func (g *Graph) Edges() [][2]int {
	return g.edges
}

// EdgeIndex returns a map from an endpoint pair, in either orientation, to
// the index of that edge in Edges().
func (g *Graph) EdgeIndex() map[[2]int]int {
	idx := make(map[[2]int]int, len(g.edges))
	for i, e := range g.edges {
		idx[e] = i
		idx[[2]int{e[1], e[0]}] = i
	}
	return idx
}

// ConnectedComponents partitions the vertices reachable within the induced
// subgraph on active (active[v] == true) into components, returning a
// component id per vertex (-1 for inactive vertices). Used by the
// connectivity propagator to test "all definitely-active vertices share one
// component".
//
// Complexity: O(V + E).
func (g *Graph) ConnectedComponents(active []bool) (comp []int, numComponents int) {
	comp = make([]int, g.numVertices)
	for i := range comp {
		comp[i] = -1
	}
	stack := make([]int, 0, g.numVertices)
	id := 0
	for v := 0; v < g.numVertices; v++ {
		if !active[v] || comp[v] != -1 {
			continue
		}
		stack = append(stack[:0], v)
		comp[v] = id
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range g.adjacency[u] {
				if active[w] && comp[w] == -1 {
					comp[w] = id
					stack = append(stack, w)
				}
			}
		}
		id++
	}
	return comp, id
}
