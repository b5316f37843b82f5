// Package factory constructs sliding-window mining engines by kind. It
// sits above package engine and the concrete engine packages, so engine
// itself stays a leaf the concrete engines can import for the shared
// contract and sentinel errors.
package factory

import (
	"fmt"

	"github.com/cfiminer/miner/internal/engine"
	"github.com/cfiminer/miner/internal/engine/diu"
	"github.com/cfiminer/miner/internal/engine/mfci"
	"github.com/cfiminer/miner/internal/engine/streamfci"
	"github.com/cfiminer/miner/pkg/itemset"
)

// Factory builds a SlidingWindowAlgorithm for a requested Kind. A single
// Factory is reused across engines created for the same item domain T.
type Factory[T itemset.Ordered] struct{}

// NewFactory creates a new engine factory for item domain T.
func NewFactory[T itemset.Ordered]() *Factory[T] {
	return &Factory[T]{}
}

// CreateEngine constructs a fresh, empty engine of the given kind.
func (f *Factory[T]) CreateEngine(kind engine.Kind) (engine.SlidingWindowAlgorithm[T], error) {
	switch kind {
	case engine.KindDIU:
		return diu.New[T](), nil
	case engine.KindMFCI:
		return mfci.New[T](), nil
	case engine.KindStreamFCI:
		return streamfci.New[T](), nil
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownKind, kind)
	}
}

// Kinds lists every engine kind this factory knows how to build, in a
// stable order.
func (f *Factory[T]) Kinds() []engine.Kind {
	return []engine.Kind{engine.KindDIU, engine.KindMFCI, engine.KindStreamFCI}
}
