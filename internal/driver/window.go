// Package driver wires transaction sources, a sliding-window mining engine,
// and snapshot persistence into one running service.
package driver

import (
	"github.com/cfiminer/miner/pkg/collections"
	"github.com/cfiminer/miner/pkg/itemset"
)

// Window is a fixed-capacity ring buffer of the transactions currently
// inside the sliding window, built on collections.RingBuffer. Pushing past
// capacity evicts the oldest transaction, mirroring the `tdb[i-W]`
// eviction the engines expect.
type Window struct {
	size int
	ring *collections.RingBuffer[itemset.Itemset[string]]
	buf  []itemset.Itemset[string] // used only when size <= 0 (unbounded)
}

// NewWindow creates an empty window holding up to size transactions. A
// size <= 0 means unbounded (no eviction ever occurs).
func NewWindow(size int) *Window {
	w := &Window{size: size}
	if size > 0 {
		w.ring = collections.NewRingBuffer[itemset.Itemset[string]](size)
	}
	return w
}

// Push inserts tx into the window. If the window was already at capacity,
// it returns the transaction that tx displaced and ok=true.
func (w *Window) Push(tx itemset.Itemset[string]) (evicted itemset.Itemset[string], ok bool) {
	if w.ring == nil {
		w.buf = append(w.buf, tx)
		return itemset.Itemset[string]{}, false
	}
	return w.ring.Push(tx)
}

// Len returns the number of transactions currently held.
func (w *Window) Len() int {
	if w.ring == nil {
		return len(w.buf)
	}
	return w.ring.Len()
}

// Size returns the configured window capacity (0 means unbounded).
func (w *Window) Size() int {
	return w.size
}
