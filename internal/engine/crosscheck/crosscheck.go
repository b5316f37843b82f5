// Package crosscheck runs multiple sliding-window engines side by side over
// independent copies of the same transaction stream and asserts they agree,
// surfacing disagreement as a corrupt-invariant error rather than letting it
// pass silently.
package crosscheck

import (
	"context"
	"fmt"
	"sort"

	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/internal/engine/diu"
	"github.com/cfiminer/miner/internal/engine/mfci"
	"github.com/cfiminer/miner/pkg/itemset"
	"github.com/cfiminer/miner/pkg/parallel"
)

// Group runs DIU and MFCI concurrently. StreamFCI is left out: its closed
// sets are derived by intersection closure and are not guaranteed to match
// the other two on every stream. Each engine owns its own copy of every
// transaction; none share state at runtime.
type Group[T itemset.Ordered] struct {
	diu  *diu.Engine[T]
	mfci *mfci.Engine[T]

	pool parallel.PoolConfig
}

// New returns a Group ready to mirror transactions across DIU and MFCI.
func New[T itemset.Ordered]() *Group[T] {
	return &Group[T]{
		diu:  diu.New[T](),
		mfci: mfci.New[T](),
		pool: parallel.DefaultPoolConfig().WithWorkers(2),
	}
}

type delta[T itemset.Ordered] func(engine.SlidingWindowAlgorithm[T]) error

// Add applies x to every engine in the group concurrently.
func (g *Group[T]) Add(ctx context.Context, x itemset.Itemset[T]) error {
	return g.apply(ctx, func(e engine.SlidingWindowAlgorithm[T]) error {
		return e.Add(x.Clone())
	})
}

// Delete applies the eviction of x to every engine in the group concurrently.
func (g *Group[T]) Delete(ctx context.Context, x itemset.Itemset[T]) error {
	return g.apply(ctx, func(e engine.SlidingWindowAlgorithm[T]) error {
		return e.Delete(x.Clone())
	})
}

func (g *Group[T]) apply(ctx context.Context, fn delta[T]) error {
	engines := []engine.SlidingWindowAlgorithm[T]{g.diu, g.mfci}
	_, err := parallel.ForEach(ctx, engines, g.pool, func(_ context.Context, e engine.SlidingWindowAlgorithm[T]) error {
		return fn(e)
	})
	return err
}

// Agree reports whether DIU and MFCI currently report the same closed
// itemsets with the same supports. On disagreement it returns a
// descriptive error wrapping ErrCorruptInvariant.
func (g *Group[T]) Agree() error {
	a := indexBySupport(g.diu.ClosedItemsets(), g.diu.Support)
	b := indexBySupport(g.mfci.ClosedItemsets(), g.mfci.Support)

	if len(a) != len(b) {
		return fmt.Errorf("%w: DIU reports %d closed itemsets, MFCI reports %d", engine.ErrCorruptInvariant, len(a), len(b))
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb, ok := b[k]
		if !ok {
			return fmt.Errorf("%w: DIU reports closed itemset %q absent from MFCI", engine.ErrCorruptInvariant, k)
		}
		if sb != a[k] {
			return fmt.Errorf("%w: support mismatch on %q: DIU=%d MFCI=%d", engine.ErrCorruptInvariant, k, a[k], sb)
		}
	}
	return nil
}

func indexBySupport[T itemset.Ordered](items []itemset.Itemset[T], support func(itemset.Itemset[T]) int) map[string]int {
	out := make(map[string]int, len(items))
	for _, it := range items {
		out[it.Key()] = support(it)
	}
	return out
}

// DIU exposes the group's DIU engine for direct queries.
func (g *Group[T]) DIU() engine.SlidingWindowAlgorithm[T] { return g.diu }

// MFCI exposes the group's MFCI engine for direct queries.
func (g *Group[T]) MFCI() engine.SlidingWindowAlgorithm[T] { return g.mfci }
