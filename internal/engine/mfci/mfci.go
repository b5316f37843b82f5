// Package mfci implements the Mining Frequent Closed Itemsets engine: a
// ContentTable of closed itemsets cross-referenced by an ItemTable, with an
// explicit immediate closed-subset/closed-superset DAG maintained on every
// add and delete.
package mfci

import (
	"fmt"
	"sort"

	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/pkg/collections"
	"github.com/cfiminer/miner/pkg/itemset"
)

type contentEntry[T itemset.Ordered] struct {
	cid     int
	itemset itemset.Itemset[T]
	support int
	subs    []int // immediate closed subsets
	supers  []int // immediate closed supersets
}

type tempEntry[T itemset.Ordered] struct {
	closureID int
	itemset   itemset.Itemset[T]
	status    int
	cid       int
	isNew     bool // a fresh ContentTable entry was allocated for this entry this call
}

// Engine is the MFCI ContentTable/ItemTable/TempTable engine. The zero
// value is not usable; construct with New.
type Engine[T itemset.Ordered] struct {
	content      map[int]*contentEntry[T]
	contentByKey map[string]int
	itemTable    map[T]map[int]bool
	nextCid      int

	// tempTablePool and tempEntryPool reuse the scratch map/slice every
	// generateClosedItemsets call allocates, instead of allocating fresh
	// ones on every Add.
	tempTablePool *collections.MapPool[int, *tempEntry[T]]
	tempEntryPool *collections.SlicePool[*tempEntry[T]]
}

// New returns an empty MFCI engine over item domain T.
func New[T itemset.Ordered]() *Engine[T] {
	return &Engine[T]{
		content:       make(map[int]*contentEntry[T]),
		contentByKey:  make(map[string]int),
		itemTable:     make(map[T]map[int]bool),
		tempTablePool: collections.NewMapPool[int, *tempEntry[T]](64),
		tempEntryPool: collections.NewSlicePool[*tempEntry[T]](64),
	}
}

func (e *Engine[T]) allocEntry(its itemset.Itemset[T], support int) *contentEntry[T] {
	c := &contentEntry[T]{cid: e.nextCid, itemset: its, support: support}
	e.nextCid++
	e.content[c.cid] = c
	e.contentByKey[its.Key()] = c.cid
	for _, it := range its.Items() {
		if e.itemTable[it] == nil {
			e.itemTable[it] = make(map[int]bool)
		}
		e.itemTable[it][c.cid] = true
	}
	return c
}

// generateClosedItemsets builds the TempTable: one entry per existing
// closed itemset whose intersection with x is non-empty, itemset set to
// that intersection, sorted largest-first with equal itemsets merged to
// their maximum-support occurrence.
func (e *Engine[T]) generateClosedItemsets(x itemset.Itemset[T]) []*tempEntry[T] {
	byCid := e.tempTablePool.Get()
	defer e.tempTablePool.Put(byCid)

	orderPtr := e.tempEntryPool.Get()
	defer e.tempEntryPool.Put(orderPtr)
	order := *orderPtr

	for _, item := range x.Items() {
		cids := e.itemTable[item]
		for cid := range cids {
			if te, ok := byCid[cid]; ok {
				te.itemset.Add(item)
				continue
			}
			te := &tempEntry[T]{closureID: cid, itemset: itemset.New(item)}
			byCid[cid] = te
			order = append(order, te)
		}
	}
	*orderPtr = order

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].itemset.Size() != order[j].itemset.Size() {
			return order[i].itemset.Size() > order[j].itemset.Size()
		}
		return order[i].itemset.Compare(order[j].itemset) < 0
	})

	merged := make(map[string]*tempEntry[T])
	var result []*tempEntry[T]
	for _, te := range order {
		key := te.itemset.Key()
		if existing, ok := merged[key]; ok {
			if e.content[te.closureID].support > e.content[existing.closureID].support {
				existing.closureID = te.closureID
			}
			continue
		}
		merged[key] = te
		result = append(result, te)
	}
	return result
}

// Add implements SlidingWindowAlgorithm.Add.
func (e *Engine[T]) Add(x itemset.Itemset[T]) error {
	if x.IsEmpty() {
		return fmt.Errorf("%w: empty transaction", engine.ErrPrecondition)
	}

	_, closureFlag := e.contentByKey[x.Key()]
	temp := e.generateClosedItemsets(x)

	for _, te := range temp {
		closureEntry := e.content[te.closureID]
		if !te.itemset.Equal(closureEntry.itemset) {
			f := e.allocEntry(te.itemset, 0)
			e.addImmediateEdge(f, closureEntry)
			te.cid = f.cid
			te.isNew = true
		} else {
			te.cid = closureEntry.cid
		}
		e.content[te.cid].support = closureEntry.support + 1
	}

	if _, ok := e.contentByKey[x.Key()]; !ok {
		x0 := e.allocEntry(x, 1)
		head := &tempEntry[T]{closureID: -1, itemset: x, cid: x0.cid, isNew: true}
		temp = append([]*tempEntry[T]{head}, temp...)
	}

	if closureFlag {
		return nil
	}
	e.processAdd(x, temp)
	return nil
}

// processAdd maintains the immediate-closed-superset/subset DAG after a new
// closed itemset (or a support change) has been recorded in temp. The
// recursion order matters: descending into each subset entry before its
// later siblings lets intermediate entries mark their own subsets as linked
// (status=1) first, which is what stops a larger entry from claiming a
// non-immediate edge to them.
func (e *Engine[T]) processAdd(x itemset.Itemset[T], temp []*tempEntry[T]) {
	visited := make([]bool, len(temp))
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		xi := temp[i]
		xi.status = 1
		xiEntry := e.content[xi.cid]
		for j := i + 1; j < len(temp); j++ {
			xj := temp[j]
			xjEntry := e.content[xj.cid]
			if !xjEntry.itemset.IsProperSubsetOf(xiEntry.itemset) {
				continue
			}
			if !xi.isNew {
				xj.status = 1
			} else {
				superflag := false
				for _, scid := range xjEntry.supers {
					if e.content[scid].itemset.IsProperSubsetOf(xiEntry.itemset) {
						superflag = true
						break
					}
				}
				isTransaction := xiEntry.itemset.Equal(x)
				if xj.status == 0 || (!superflag && !isTransaction) {
					e.addImmediateEdge(xjEntry, xiEntry)
				}
			}
			visit(j)
		}
	}
	for i := range temp {
		visit(i)
	}
}

// addImmediateEdge records sub ⊂ sup as an immediate edge, dropping any
// existing edges that sub/sup now sit between.
func (e *Engine[T]) addImmediateEdge(sub, sup *contentEntry[T]) {
	if sub.cid == sup.cid {
		return
	}
	var keptSupers []int
	for _, gcid := range sub.supers {
		if gcid == sup.cid {
			continue
		}
		g := e.content[gcid]
		if sup.itemset.IsProperSubsetOf(g.itemset) {
			continue // g no longer immediate: sup now intermediates
		}
		keptSupers = append(keptSupers, gcid)
	}
	sub.supers = append(keptSupers, sup.cid)

	var keptSubs []int
	for _, hcid := range sup.subs {
		if hcid == sub.cid {
			continue
		}
		h := e.content[hcid]
		if h.itemset.IsProperSubsetOf(sub.itemset) {
			continue // h no longer immediate: sub now intermediates
		}
		keptSubs = append(keptSubs, hcid)
	}
	sup.subs = append(keptSubs, sub.cid)
}

func (e *Engine[T]) removeEntry(c *contentEntry[T]) {
	for _, scid := range c.supers {
		s := e.content[scid]
		s.subs = removeInt(s.subs, c.cid)
	}
	for _, scid := range c.subs {
		s := e.content[scid]
		s.supers = removeInt(s.supers, c.cid)
	}
	for _, it := range c.itemset.Items() {
		delete(e.itemTable[it], c.cid)
	}
	delete(e.content, c.cid)
	delete(e.contentByKey, c.itemset.Key())
}

func removeInt(s []int, v int) []int {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Delete implements SlidingWindowAlgorithm.Delete.
func (e *Engine[T]) Delete(x itemset.Itemset[T]) error {
	cid, ok := e.contentByKey[x.Key()]
	if !ok {
		return fmt.Errorf("%w: delete of itemset not in window", engine.ErrPrecondition)
	}
	root := e.content[cid]

	u := e.transitiveClosedSubsets(root)
	u = append(u, root)
	for _, m := range u {
		m.support--
	}

	// The deleted transaction's own entry goes through the same pass: its
	// support just dropped, so it may now be empty or have collapsed into
	// an equal-support superset.
	sort.SliceStable(u, func(i, j int) bool {
		return u[i].itemset.Size() > u[j].itemset.Size()
	})
	for _, m := range u {
		if _, alive := e.content[m.cid]; !alive {
			continue
		}
		e.processDelete(m)
	}
	return nil
}

// transitiveClosedSubsets walks the closed-subset DAG breadth-first from c,
// using a bitset to mark visited cids: cids are dense, sequentially
// assigned integers, the same arena/index layout DIU's node ids use.
func (e *Engine[T]) transitiveClosedSubsets(c *contentEntry[T]) []*contentEntry[T] {
	seen := collections.NewBitset(e.nextCid)
	queue := collections.NewQueue[int](8)
	queue.Enqueue(c.cid)
	var out []*contentEntry[T]
	for !queue.IsEmpty() {
		cid, _ := queue.Dequeue()
		entry := e.content[cid]
		for _, scid := range entry.subs {
			if seen.Test(scid) {
				continue
			}
			seen.Set(scid)
			out = append(out, e.content[scid])
			queue.Enqueue(scid)
		}
	}
	return out
}

func (e *Engine[T]) processDelete(s *contentEntry[T]) {
	if s.support <= 0 {
		subs := append([]int{}, s.subs...)
		e.removeEntry(s)
		for _, scid := range subs {
			if sub, alive := e.content[scid]; alive {
				e.processDelete(sub)
			}
		}
		return
	}

	if len(s.supers) == 1 {
		y := e.content[s.supers[0]]
		if y.support == s.support {
			for _, rcid := range s.subs {
				r, alive := e.content[rcid]
				if !alive {
					continue
				}
				hasOther := false
				for _, ocid := range r.supers {
					if ocid == s.cid {
						continue
					}
					if e.hasPath(e.content[ocid], y) {
						hasOther = true
						break
					}
				}
				if !hasOther {
					e.addImmediateEdge(r, y)
				}
			}
			subs := append([]int{}, s.subs...)
			e.removeEntry(s)
			for _, scid := range subs {
				if sub, alive := e.content[scid]; alive {
					e.processDelete(sub)
				}
			}
			return
		}
	}
	// No structural change: s's entire closed-subset closure is left as is.
}

// hasPath reports whether to is reachable from from via immediate closed
// supersets.
func (e *Engine[T]) hasPath(from, to *contentEntry[T]) bool {
	if from.cid == to.cid {
		return true
	}
	seen := collections.NewBitset(e.nextCid)
	stack := collections.NewStack[int](8)
	stack.Push(from.cid)
	for !stack.IsEmpty() {
		cid, _ := stack.Pop()
		entry := e.content[cid]
		for _, scid := range entry.supers {
			if scid == to.cid {
				return true
			}
			if seen.Test(scid) {
				continue
			}
			seen.Set(scid)
			stack.Push(scid)
		}
	}
	return false
}

// Support implements SlidingWindowAlgorithm.Support: the support of the
// smallest closed entry whose itemset is a superset of x.
func (e *Engine[T]) Support(x itemset.Itemset[T]) int {
	var best *contentEntry[T]
	for _, c := range e.content {
		if !c.itemset.ContainsSet(x) {
			continue
		}
		if best == nil || c.itemset.Size() < best.itemset.Size() {
			best = c
		}
	}
	if best == nil {
		return 0
	}
	return best.support
}

// ClosedItemsets implements SlidingWindowAlgorithm.ClosedItemsets.
func (e *Engine[T]) ClosedItemsets() []itemset.Itemset[T] {
	out := make([]itemset.Itemset[T], 0, len(e.content))
	for _, c := range e.content {
		out = append(out, c.itemset)
	}
	return out
}

// ClosedFrequent implements SlidingWindowAlgorithm.ClosedFrequent.
func (e *Engine[T]) ClosedFrequent(t int) []itemset.Itemset[T] {
	var out []itemset.Itemset[T]
	for _, c := range e.content {
		if c.support >= t {
			out = append(out, c.itemset)
		}
	}
	return out
}
