// Package statistics provides utilities for ranking and bucketing a window
// snapshot's closed itemsets.
package statistics

import (
	"sort"

	"github.com/cfiminer/miner/pkg/model"
)

// TopItemsetsCalculator ranks closed itemsets by support.
type TopItemsetsCalculator struct {
	topN int
}

// TopItemsetsOption configures the TopItemsetsCalculator.
type TopItemsetsOption func(*TopItemsetsCalculator)

// WithTopN sets the number of top itemsets to return.
func WithTopN(n int) TopItemsetsOption {
	return func(c *TopItemsetsCalculator) {
		c.topN = n
	}
}

// NewTopItemsetsCalculator creates a new TopItemsetsCalculator.
func NewTopItemsetsCalculator(opts ...TopItemsetsOption) *TopItemsetsCalculator {
	c := &TopItemsetsCalculator{topN: 15}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopItemsetsResult holds the calculation result.
type TopItemsetsResult struct {
	Top          []model.TopItemset
	TotalClosed  int
	TotalSupport int64
}

// Calculate ranks closed by support descending and keeps the top N.
func (c *TopItemsetsCalculator) Calculate(closed []model.ClosedRecord) *TopItemsetsResult {
	result := &TopItemsetsResult{Top: make([]model.TopItemset, 0), TotalClosed: len(closed)}

	if len(closed) == 0 {
		return result
	}

	entries := make([]model.ClosedRecord, len(closed))
	copy(entries, closed)

	for _, c := range entries {
		result.TotalSupport += int64(c.Support)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Support != entries[j].Support {
			return entries[i].Support > entries[j].Support
		}
		return len(entries[i].Items) > len(entries[j].Items)
	})

	topN := c.topN
	if topN > len(entries) {
		topN = len(entries)
	}

	result.Top = make([]model.TopItemset, topN)
	for i := 0; i < topN; i++ {
		result.Top[i] = model.TopItemset{
			Items:   entries[i].Items,
			Support: entries[i].Support,
		}
	}

	return result
}
