// Package streamfci implements the StreamFCI engine: a dynamic
// frequent-pattern tree (DFP-tree) whose node order is continuously
// rebalanced by item support, plus the header table that indexes it.
package streamfci

import (
	"fmt"
	"sort"

	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/pkg/collections"
	"github.com/cfiminer/miner/pkg/itemset"
)

type node[T itemset.Ordered] struct {
	id       int
	item     T
	count    int
	parent   int
	children map[T]int
}

type headerEntry struct {
	support int
	head    int // node id, -1 if empty
}

// Engine is the StreamFCI DFP-tree engine. The zero value is not usable;
// construct with New.
type Engine[T itemset.Ordered] struct {
	nodes        map[int]*node[T]
	nodeLinkNext map[int]int
	header       map[T]*headerEntry
	nextID       int
	rootID       int
}

// New returns an empty StreamFCI engine over item domain T.
func New[T itemset.Ordered]() *Engine[T] {
	e := &Engine[T]{
		nodes:        make(map[int]*node[T]),
		nodeLinkNext: make(map[int]int),
		header:       make(map[T]*headerEntry),
	}
	root := &node[T]{id: 0, parent: -1, children: make(map[T]int)}
	e.nodes[0] = root
	e.rootID = 0
	e.nextID = 1
	return e
}

func (e *Engine[T]) orderItems(x itemset.Itemset[T]) []T {
	items := append([]T{}, x.Items()...)
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := 0, 0
		if h, ok := e.header[items[i]]; ok {
			si = h.support
		}
		if h, ok := e.header[items[j]]; ok {
			sj = h.support
		}
		if si != sj {
			return si > sj
		}
		return items[i] < items[j]
	})
	return items
}

// Add implements SlidingWindowAlgorithm.Add.
func (e *Engine[T]) Add(x itemset.Itemset[T]) error {
	if x.IsEmpty() {
		return fmt.Errorf("%w: empty transaction", engine.ErrPrecondition)
	}
	cur := e.nodes[e.rootID]
	for _, item := range e.orderItems(x) {
		if childID, ok := cur.children[item]; ok {
			child := e.nodes[childID]
			child.count++
			e.header[item].support++
			cur = child
			continue
		}
		n := &node[T]{id: e.nextID, item: item, count: 1, parent: cur.id, children: make(map[T]int)}
		e.nextID++
		e.nodes[n.id] = n
		cur.children[item] = n.id
		if _, ok := e.header[item]; !ok {
			e.header[item] = &headerEntry{head: -1}
		}
		e.appendToHeaderChain(item, n.id)
		e.header[item].support++
		cur = n
	}
	e.adjust()
	return nil
}

// Delete implements SlidingWindowAlgorithm.Delete.
func (e *Engine[T]) Delete(x itemset.Itemset[T]) error {
	cur := e.nodes[e.rootID]
	var path []*node[T]
	for _, item := range e.orderItems(x) {
		childID, ok := cur.children[item]
		if !ok {
			return fmt.Errorf("%w: delete of itemset not in window", engine.ErrPrecondition)
		}
		child := e.nodes[childID]
		child.count--
		e.header[item].support--
		path = append(path, child)
		cur = child
	}
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if h, ok := e.header[n.item]; ok && h.support == 0 {
			delete(e.header, n.item)
		}
		if n.count == 0 {
			e.removeZeroCountNode(n)
		}
	}
	e.adjust()
	return nil
}

func (e *Engine[T]) removeZeroCountNode(n *node[T]) {
	parent := e.nodes[n.parent]
	delete(parent.children, n.item)
	e.spliceFromHeaderChain(n.item, n.id)
	children := n.children
	delete(e.nodes, n.id)
	for _, cid := range children {
		c := e.nodes[cid]
		e.merge(parent, c)
	}
}

func (e *Engine[T]) appendToHeaderChain(item T, id int) {
	h := e.header[item]
	if h.head == -1 {
		h.head = id
		e.nodeLinkNext[id] = -1
		return
	}
	tail := h.head
	for e.nodeLinkNext[tail] != -1 {
		tail = e.nodeLinkNext[tail]
	}
	e.nodeLinkNext[tail] = id
	e.nodeLinkNext[id] = -1
}

func (e *Engine[T]) spliceFromHeaderChain(item T, id int) {
	h, ok := e.header[item]
	if !ok {
		delete(e.nodeLinkNext, id)
		return
	}
	if h.head == id {
		h.head = e.nodeLinkNext[id]
	} else {
		prev := h.head
		for prev != -1 && e.nodeLinkNext[prev] != id {
			prev = e.nodeLinkNext[prev]
		}
		if prev != -1 {
			e.nodeLinkNext[prev] = e.nodeLinkNext[id]
		}
	}
	delete(e.nodeLinkNext, id)
}

// merge attaches node as a child of target, or if target already has a
// child for node's item, accumulates node's count into it and recursively
// merges node's own children into that child.
func (e *Engine[T]) merge(target, n *node[T]) {
	if existingID, ok := target.children[n.item]; ok {
		existing := e.nodes[existingID]
		existing.count += n.count
		e.spliceFromHeaderChain(n.item, n.id)
		for _, cid := range n.children {
			e.merge(existing, e.nodes[cid])
		}
		delete(e.nodes, n.id)
		return
	}
	target.children[n.item] = n.id
	n.parent = target.id
}

// adjust repeatedly finds an inverse pair (a parent whose header support
// order is violated by one of its children) and swaps them, until the tree
// respects non-increasing header support (ties broken by item order) on
// every root-to-leaf path.
func (e *Engine[T]) adjust() {
	for {
		x, y := e.findInversePair()
		if x == nil {
			return
		}
		e.swap(x, y)
	}
}

func (e *Engine[T]) findInversePair() (*node[T], *node[T]) {
	ids := make([]int, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		y := e.nodes[id]
		if y.id == e.rootID || y.parent == e.rootID {
			continue
		}
		x := e.nodes[y.parent]
		sx, sy := e.header[x.item].support, e.header[y.item].support
		if sx < sy || (sx == sy && x.item > y.item) {
			return x, y
		}
	}
	return nil, nil
}

func (e *Engine[T]) swap(x, y *node[T]) {
	w := e.nodes[x.parent]
	delete(x.children, y.item)

	v := &node[T]{id: e.nextID, item: x.item, count: y.count, parent: y.id, children: y.children}
	e.nextID++
	e.nodes[v.id] = v
	for _, cid := range v.children {
		e.nodes[cid].parent = v.id
	}
	e.appendToHeaderChain(x.item, v.id)

	y.children = map[T]int{x.item: v.id}
	x.count -= y.count
	if x.count == 0 {
		delete(w.children, x.item)
		e.spliceFromHeaderChain(x.item, x.id)
		delete(e.nodes, x.id)
	}
	e.merge(w, y)
}

func (e *Engine[T]) pathItems(n *node[T]) itemset.Itemset[T] {
	var path itemset.Itemset[T]
	for cur := n; cur.id != e.rootID; cur = e.nodes[cur.parent] {
		path.Add(cur.item)
	}
	return path
}

func (e *Engine[T]) subtreeCountForItem(n *node[T], item T) int {
	total := 0
	for _, cid := range n.children {
		c := e.nodes[cid]
		if c.item == item {
			total += c.count
		}
		total += e.subtreeCountForItem(c, item)
	}
	return total
}

func (e *Engine[T]) isClosed(n *node[T]) bool {
	for item := range n.children {
		if e.subtreeCountForItem(n, item) == n.count {
			return false
		}
	}
	return true
}

// ClosedItemsets implements SlidingWindowAlgorithm.ClosedItemsets: a DFS
// over the tree collects every path whose node has no child item sharing
// its full support, then closes that candidate set under pairwise
// intersection to a fixed point (since the tree only guarantees closure
// along single paths, not across branches).
func (e *Engine[T]) ClosedItemsets() []itemset.Itemset[T] {
	candidates := make(map[string]itemset.Itemset[T])
	stack := collections.NewStack[int](len(e.nodes))
	stack.Push(e.rootID)
	for !stack.IsEmpty() {
		id, _ := stack.Pop()
		n := e.nodes[id]
		for _, cid := range n.children {
			c := e.nodes[cid]
			path := e.pathItems(c)
			if e.isClosed(c) {
				candidates[path.Key()] = path
			}
			stack.Push(cid)
		}
	}
	return closeUnderIntersection(candidates)
}

func closeUnderIntersection[T itemset.Ordered](seed map[string]itemset.Itemset[T]) []itemset.Itemset[T] {
	set := make(map[string]itemset.Itemset[T], len(seed))
	for k, v := range seed {
		set[k] = v
	}
	for {
		changed := false
		list := make([]itemset.Itemset[T], 0, len(set))
		for _, v := range set {
			list = append(list, v)
		}
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				inter := list[i].Intersection(list[j])
				if inter.IsEmpty() {
					continue
				}
				if _, ok := set[inter.Key()]; !ok {
					set[inter.Key()] = inter
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	out := make([]itemset.Itemset[T], 0, len(set))
	for _, v := range set {
		out = append(out, v)
	}
	return out
}

// Support implements SlidingWindowAlgorithm.Support. This replaces the
// known single-path walk with the standard FP-tree conditional-pattern
// query: find the item of x that sits deepest in the tree order (lowest
// header support, ties going to the later item), walk its entire header
// chain, and sum the count of every node whose root path contains all of x.
func (e *Engine[T]) Support(x itemset.Itemset[T]) int {
	items := x.Items()
	if len(items) == 0 {
		return 0
	}
	var bottleneck T
	minSup := -1
	for _, it := range items {
		h, ok := e.header[it]
		if !ok {
			return 0
		}
		if minSup == -1 || h.support <= minSup {
			minSup = h.support
			bottleneck = it
		}
	}
	total := 0
	for id := e.header[bottleneck].head; id != -1; id = e.nodeLinkNext[id] {
		n := e.nodes[id]
		if x.IsSubsetOf(e.pathItems(n)) {
			total += n.count
		}
	}
	return total
}

// ClosedFrequent implements SlidingWindowAlgorithm.ClosedFrequent.
func (e *Engine[T]) ClosedFrequent(t int) []itemset.Itemset[T] {
	var out []itemset.Itemset[T]
	for _, c := range e.ClosedItemsets() {
		if e.Support(c) >= t {
			out = append(out, c)
		}
	}
	return out
}
