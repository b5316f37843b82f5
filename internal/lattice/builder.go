// Package lattice renders a closed-itemset collection as a node/edge graph
// (the Hasse diagram of the containment order) for visualization and export.
package lattice

import (
	"sort"

	"github.com/cfiminer/miner/pkg/itemset"
	"github.com/cfiminer/miner/pkg/model"
)

// SupportFunc returns the current support of x, as exposed by
// engine.SlidingWindowAlgorithm.Support.
type SupportFunc func(x itemset.Itemset[string]) int

// Build renders closed as a model.LatticeGraph: one node per closed itemset
// and one edge per immediate closed-subset/closed-superset pair (the Hasse
// diagram of the closed-itemset collection ordered by containment). An edge
// A->B exists when A is a proper subset of B and no other closed itemset C
// in the collection strictly separates them (A ⊊ C ⊊ B).
func Build(engine model.EngineKind, closed []itemset.Itemset[string], support SupportFunc) *model.LatticeGraph {
	g := &model.LatticeGraph{
		Engine: engine,
		Nodes:  make([]model.LatticeNode, 0, len(closed)),
		Edges:  make([]model.LatticeEdge, 0),
	}

	ordered := make([]itemset.Itemset[string], len(closed))
	copy(ordered, closed)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Compare(ordered[j]) < 0
	})

	for _, x := range ordered {
		g.Nodes = append(g.Nodes, model.LatticeNode{
			ID:      x.Key(),
			Items:   x.Items(),
			Support: support(x),
		})
	}

	for i, a := range ordered {
		for j, b := range ordered {
			if i == j || !a.IsProperSubsetOf(b) {
				continue
			}
			if hasIntermediate(ordered, a, b) {
				continue
			}
			g.Edges = append(g.Edges, model.LatticeEdge{From: a.Key(), To: b.Key()})
		}
	}

	return g
}

// hasIntermediate reports whether some closed itemset in all strictly sits
// between a and b in the subset order, making a->b a non-immediate relation.
func hasIntermediate(all []itemset.Itemset[string], a, b itemset.Itemset[string]) bool {
	for _, c := range all {
		if c.Equal(a) || c.Equal(b) {
			continue
		}
		if a.IsProperSubsetOf(c) && c.IsProperSubsetOf(b) {
			return true
		}
	}
	return false
}
