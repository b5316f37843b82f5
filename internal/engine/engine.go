// Package engine defines the interface every sliding-window closed-itemset
// algorithm implements, and the errors they report.
package engine

import (
	"errors"

	"github.com/cfiminer/miner/pkg/itemset"
)

// SlidingWindowAlgorithm is the interface each mining engine (DIU, MFCI,
// StreamFCI) satisfies. Implementations maintain all closed itemsets over
// the window of transactions added so far minus those deleted, incrementally:
// Add/Delete never rescan the full transaction history.
type SlidingWindowAlgorithm[T itemset.Ordered] interface {
	// Add incorporates a newly arrived transaction into the window.
	Add(tx itemset.Itemset[T]) error

	// Delete evicts a transaction that is leaving the window. Deleting a
	// transaction that was never added (or was already deleted) is an
	// error.
	Delete(tx itemset.Itemset[T]) error

	// Support returns the number of transactions currently in the window
	// that are supersets of x.
	Support(x itemset.Itemset[T]) int

	// ClosedItemsets returns every closed itemset currently in the window,
	// in no particular order.
	ClosedItemsets() []itemset.Itemset[T]

	// ClosedFrequent returns every closed itemset whose support is >= t.
	ClosedFrequent(t int) []itemset.Itemset[T]
}

// Kind identifies which concrete algorithm an engine implements.
type Kind string

const (
	KindDIU       Kind = "diu"
	KindMFCI      Kind = "mfci"
	KindStreamFCI Kind = "streamfci"
)

var (
	// ErrPrecondition is returned when a caller violates an operation's
	// stated precondition (e.g. Delete of a transaction not in the window).
	ErrPrecondition = errors.New("engine: precondition violated")

	// ErrCorruptInvariant is returned when an engine detects its own
	// internal bookkeeping has diverged from a documented invariant. This
	// should never happen in correct code; surfacing it loudly beats
	// silently returning wrong answers.
	ErrCorruptInvariant = errors.New("engine: internal invariant violated")

	// ErrUnknownKind is returned by the engine factory for an
	// unrecognized Kind.
	ErrUnknownKind = errors.New("engine: unknown engine kind")
)
