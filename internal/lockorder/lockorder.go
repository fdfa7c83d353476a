// Package lockorder turns the port's observed gate acquisition order into a
// graph. A cycle means two code paths take the same gates in opposite order
// and can deadlock across cores.
package lockorder

import (
	"fmt"
	"io"

	"github.com/aclements/go-moremath/graph"
	"github.com/aclements/go-moremath/graph/graphalg"

	"smpcore/smp"
)

// Graph has one node per gate and an edge a -> b when b was claimed while a
// was held. It satisfies graph.Graph.
type Graph struct {
	To [][]int
}

// FromOrder builds the graph from a Port.LockOrder snapshot.
func FromOrder(order [smp.NumGates]uint32) *Graph {
	g := &Graph{To: make([][]int, smp.NumGates)}
	for a, set := range order {
		for b := 0; b < smp.NumGates; b++ {
			if set&(1<<b) != 0 {
				g.To[a] = append(g.To[a], b)
			}
		}
	}
	return g
}

func (g *Graph) NumNodes() int   { return len(g.To) }
func (g *Graph) Out(i int) []int { return g.To[i] }

// NumEdges returns how many distinct orderings were observed.
func (g *Graph) NumEdges() int {
	n := 0
	for _, out := range g.To {
		n += len(out)
	}
	return n
}

// Cycles returns the gates and edges that lie on a cycle.
func Cycles(g graph.Graph) (nodes []int, edges []graph.Edge) {
	// Gates on a cycle are the ones in non-trivial strongly connected
	// components.
	scc := graphalg.SCC(g, graphalg.SCCSubnodeComponent)
	marks := graphalg.NewNodeMarks()
	for cid := 0; cid < scc.NumNodes(); cid++ {
		nids := scc.Subnodes(cid)
		if len(nids) <= 1 {
			continue
		}
		for _, nid := range nids {
			marks.Mark(nid)
		}
	}

	for nid := marks.Next(-1); nid >= 0; nid = marks.Next(nid) {
		nodes = append(nodes, nid)
	}
	for _, nid := range nodes {
		cid := scc.SubnodeComponent(nid)
		for eid, n2id := range g.Out(nid) {
			if scc.SubnodeComponent(n2id) == cid {
				edges = append(edges, graph.Edge{Node: nid, Edge: eid})
			}
		}
	}
	return nodes, edges
}

// Summary is a one-line description of g for the run report.
func Summary(g *Graph) string {
	nodes, _ := Cycles(g)
	if len(nodes) == 0 {
		return fmt.Sprintf("lock order: %d edges, no cycles", g.NumEdges())
	}
	return fmt.Sprintf("lock order: %d edges, cycle through gates %v", g.NumEdges(), nodes)
}

// WriteText writes every observed edge, marking those on a cycle.
func WriteText(w io.Writer, g *Graph) {
	_, cyc := Cycles(g)
	onCycle := make(map[graph.Edge]bool, len(cyc))
	for _, e := range cyc {
		onCycle[e] = true
	}
	for a, out := range g.To {
		for eid, b := range out {
			mark := ""
			if onCycle[graph.Edge{Node: a, Edge: eid}] {
				mark = "  (cycle)"
			}
			fmt.Fprintf(w, "gate %d -> gate %d%s\n", a, b, mark)
		}
	}
}
