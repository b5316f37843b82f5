// Package diu implements the Direct Update closure tree engine: a tree of
// closed itemsets, keyed by the order items first appeared in the stream,
// updated in place as transactions are added to and evicted from the
// sliding window.
package diu

import (
	"fmt"
	"sort"

	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/pkg/collections"
	"github.com/cfiminer/miner/pkg/itemset"
)

type node[T itemset.Ordered] struct {
	id       int
	itemset  itemset.Itemset[T]
	support  int
	count    int
	parent   int
	children []int // child ids, kept sorted by history order ascending
}

// Engine is the DIU closure tree. The zero value is not usable; construct
// with New.
type Engine[T itemset.Ordered] struct {
	nodes   map[int]*node[T]
	byKey   map[string]int // itemset key -> node id
	history *itemset.History[T]
	nextID  int
	rootID  int
}

// New returns an empty DIU engine over item domain T.
func New[T itemset.Ordered]() *Engine[T] {
	e := &Engine[T]{
		nodes:   make(map[int]*node[T]),
		byKey:   make(map[string]int),
		history: itemset.NewHistory[T](),
	}
	root := &node[T]{id: 0, parent: -1}
	e.nodes[0] = root
	e.rootID = 0
	e.nextID = 1
	return e
}

func (e *Engine[T]) newNode(its itemset.Itemset[T]) *node[T] {
	n := &node[T]{id: e.nextID, itemset: its, parent: -1}
	e.nextID++
	return n
}

func (e *Engine[T]) find(key string) (*node[T], bool) {
	id, ok := e.byKey[key]
	if !ok {
		return nil, false
	}
	return e.nodes[id], true
}

// Add implements SlidingWindowAlgorithm.Add.
func (e *Engine[T]) Add(x itemset.Itemset[T]) error {
	if x.IsEmpty() {
		return fmt.Errorf("%w: empty transaction", engine.ErrPrecondition)
	}
	e.history.ObserveAll(x)

	if n, ok := e.find(x.Key()); ok {
		n.count++
		n.support++
		for _, c := range e.candidatesExcluding(x, x) {
			if cn, ok := e.find(c.Key()); ok {
				cn.support++
			}
		}
		return nil
	}

	sup := e.supportIfNotContained(x)
	x0 := e.newNode(x)
	x0.support = sup + 1
	x0.count = 1
	newNodes := []*node[T]{x0}

	if x.Size() > 1 {
		for _, c := range e.candidatesExcluding(x, x) {
			if cn, ok := e.find(c.Key()); ok {
				cn.support++
				continue
			}
			supC := e.supportIfNotContained(c)
			if supC > 0 {
				if !e.closureCheckForAdd(c, x0) {
					continue
				}
				cn := e.newNode(c)
				cn.support = supC + 1
				newNodes = append(newNodes, cn)
			} else {
				cn := e.newNode(c)
				cn.support = 1
				newNodes = append(newNodes, cn)
			}
		}
	}

	sort.SliceStable(newNodes, func(i, j int) bool {
		return newNodes[i].itemset.Size() > newNodes[j].itemset.Size()
	})
	for _, n := range newNodes {
		e.nodes[n.id] = n
		e.byKey[n.itemset.Key()] = n.id
		e.insertNode(n)
	}
	return nil
}

// closureCheckForAdd: let M be a minimum-size superset of C in the tree;
// pass iff no item of M\C is present in X0.itemset.
func (e *Engine[T]) closureCheckForAdd(c itemset.Itemset[T], x0 *node[T]) bool {
	var m *itemset.Itemset[T]
	for _, n := range e.nodes {
		if n.id == e.rootID || n.itemset.IsEmpty() {
			continue
		}
		if !c.IsProperSubsetOf(n.itemset) {
			continue
		}
		if m == nil || n.itemset.Size() < m.Size() {
			cp := n.itemset
			m = &cp
		}
	}
	if m == nil {
		return true
	}
	var extra itemset.Itemset[T]
	for _, it := range m.Items() {
		if !c.Contains(it) {
			extra.Add(it)
		}
	}
	for _, it := range extra.Items() {
		if x0.itemset.Contains(it) {
			return false
		}
	}
	return true
}

// supportIfNotContained sums support over the immediate supersets of x in
// the tree (nodes whose itemset is a superset of x with no other superset
// node strictly between).
func (e *Engine[T]) supportIfNotContained(x itemset.Itemset[T]) int {
	var supersets []*node[T]
	for _, n := range e.nodes {
		if n.id == e.rootID || n.itemset.IsEmpty() {
			continue
		}
		if x.IsProperSubsetOf(n.itemset) {
			supersets = append(supersets, n)
		}
	}
	total := 0
	for _, n := range supersets {
		immediate := true
		for _, other := range supersets {
			if other.id == n.id {
				continue
			}
			if x.IsProperSubsetOf(other.itemset) && other.itemset.IsProperSubsetOf(n.itemset) {
				immediate = false
				break
			}
		}
		if immediate {
			total += n.support
		}
	}
	return total
}

// candidatesExcluding computes {node.itemset ∩ x : node ∈ tree}, excluding
// the empty intersection and excluding the result equal to exclude, sorted
// by size descending. A pruned DFS over the history-ordered tree can skip
// whole sibling runs here; this engine computes the set directly by scanning
// every node, which produces the identical candidate set.
func (e *Engine[T]) candidatesExcluding(x, exclude itemset.Itemset[T]) []itemset.Itemset[T] {
	seen := make(map[string]itemset.Itemset[T])
	for _, n := range e.nodes {
		if n.id == e.rootID || n.itemset.IsEmpty() {
			continue
		}
		inter := n.itemset.Intersection(x)
		if inter.IsEmpty() || inter.Equal(exclude) {
			continue
		}
		seen[inter.Key()] = inter
	}
	out := make([]itemset.Itemset[T], 0, len(seen))
	for _, its := range seen {
		out = append(out, its)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size() != out[j].Size() {
			return out[i].Size() > out[j].Size()
		}
		return out[i].Compare(out[j]) < 0
	})
	return out
}

// insertNode finds the deepest existing node P with P.itemset ⊂ n.itemset
// and P.itemset ≤h n.itemset, reparents any of P's children that are now
// strict supersets of n under n, then inserts n among P's children in
// history order.
func (e *Engine[T]) insertNode(n *node[T]) {
	parent := e.nodes[e.rootID]
	for _, candidate := range e.nodes {
		if candidate.id == n.id || candidate.id == e.rootID {
			continue
		}
		if !candidate.itemset.IsProperSubsetOf(n.itemset) {
			continue
		}
		if itemset.CompareHistory(e.history, candidate.itemset, n.itemset) > 0 {
			continue
		}
		if candidate.itemset.Size() > parent.itemset.Size() || parent.id == e.rootID {
			parent = candidate
		}
	}
	n.parent = parent.id

	var reparented []int
	var kept []int
	for _, cid := range parent.children {
		c := e.nodes[cid]
		if n.itemset.IsProperSubsetOf(c.itemset) && itemset.CompareHistory(e.history, n.itemset, c.itemset) < 0 {
			reparented = append(reparented, cid)
		} else {
			kept = append(kept, cid)
		}
	}
	parent.children = kept
	for _, cid := range reparented {
		e.nodes[cid].parent = n.id
	}
	n.children = append(n.children, reparented...)
	e.sortChildren(n)

	idx := sort.Search(len(parent.children), func(i int) bool {
		return itemset.CompareHistory(e.history, e.nodes[parent.children[i]].itemset, n.itemset) >= 0
	})
	parent.children = append(parent.children, 0)
	copy(parent.children[idx+1:], parent.children[idx:])
	parent.children[idx] = n.id
}

func (e *Engine[T]) sortChildren(n *node[T]) {
	sort.SliceStable(n.children, func(i, j int) bool {
		a, b := e.nodes[n.children[i]], e.nodes[n.children[j]]
		return itemset.CompareHistory(e.history, a.itemset, b.itemset) < 0
	})
}

// Delete implements SlidingWindowAlgorithm.Delete.
func (e *Engine[T]) Delete(x itemset.Itemset[T]) error {
	n, ok := e.find(x.Key())
	if !ok {
		return fmt.Errorf("%w: delete of itemset not in window", engine.ErrPrecondition)
	}

	if n.count >= 2 {
		n.count--
		for _, s := range e.subsetsOf(x) {
			s.support--
		}
		return nil
	}

	n.count--
	subsets := e.subsetsOf(x)
	sort.SliceStable(subsets, func(i, j int) bool {
		return subsets[i].itemset.Size() > subsets[j].itemset.Size()
	})

	// obsolete tracks node ids marked for removal. Node ids are dense,
	// sequentially assigned integers, so a bitset fits tighter than a map.
	obsolete := collections.NewBitset(e.nextID)
	for _, s := range subsets {
		if s.count >= 2 {
			s.support--
			continue
		}
		strictSupersets := e.strictSupersetsExcluding(s.itemset, obsolete)
		var m *itemset.Itemset[T]
		for _, f := range strictSupersets {
			if m == nil {
				cp := f.itemset
				m = &cp
			} else {
				inter := m.Intersection(f.itemset)
				m = &inter
			}
		}
		// With no remaining strict supersets the intersection is empty, so
		// a zero-count node cannot still be closed.
		keep := s.count > 0 || (m != nil && m.Equal(s.itemset))
		if keep {
			s.support--
		} else {
			obsolete.Set(s.id)
		}
	}

	// Remove obsolete nodes, deepest first, reparenting their children.
	var order []*node[T]
	obsolete.Iterate(func(id int) bool {
		order = append(order, e.nodes[id])
		return true
	})
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].itemset.Size() > order[j].itemset.Size()
	})
	for _, o := range order {
		e.removeNode(o)
	}
	return nil
}

func (e *Engine[T]) strictSupersetsExcluding(x itemset.Itemset[T], excluded *collections.Bitset) []*node[T] {
	var out []*node[T]
	for _, n := range e.nodes {
		if n.id == e.rootID || excluded.Test(n.id) {
			continue
		}
		if x.IsProperSubsetOf(n.itemset) {
			out = append(out, n)
		}
	}
	return out
}

func (e *Engine[T]) subsetsOf(x itemset.Itemset[T]) []*node[T] {
	var out []*node[T]
	for _, n := range e.nodes {
		if n.id == e.rootID {
			continue
		}
		if n.itemset.IsSubsetOf(x) {
			out = append(out, n)
		}
	}
	return out
}

func (e *Engine[T]) removeNode(o *node[T]) {
	parent, ok := e.nodes[o.parent]
	if !ok {
		return
	}
	kept := parent.children[:0:0]
	for _, cid := range parent.children {
		if cid != o.id {
			kept = append(kept, cid)
		}
	}
	parent.children = kept

	children := o.children
	delete(e.nodes, o.id)
	delete(e.byKey, o.itemset.Key())

	for _, cid := range children {
		c := e.nodes[cid]
		c.parent = -1
		e.insertNode(c)
	}
}

// Support implements SlidingWindowAlgorithm.Support.
func (e *Engine[T]) Support(x itemset.Itemset[T]) int {
	if n, ok := e.find(x.Key()); ok {
		return n.support
	}
	return e.supportIfNotContained(x)
}

// ClosedItemsets implements SlidingWindowAlgorithm.ClosedItemsets.
func (e *Engine[T]) ClosedItemsets() []itemset.Itemset[T] {
	out := make([]itemset.Itemset[T], 0, len(e.nodes))
	for _, n := range e.nodes {
		if n.id == e.rootID {
			continue
		}
		out = append(out, n.itemset)
	}
	return out
}

// ClosedFrequent implements SlidingWindowAlgorithm.ClosedFrequent.
func (e *Engine[T]) ClosedFrequent(t int) []itemset.Itemset[T] {
	var out []itemset.Itemset[T]
	for _, n := range e.nodes {
		if n.id == e.rootID {
			continue
		}
		if n.support >= t {
			out = append(out, n.itemset)
		}
	}
	return out
}
