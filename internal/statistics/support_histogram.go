package statistics

import (
	"sort"

	"github.com/cfiminer/miner/pkg/model"
)

// SupportHistogramCalculator buckets closed-itemset supports into fixed-width
// ranges for the advisor and the web UI.
type SupportHistogramCalculator struct {
	bucketWidth int
}

// SupportHistogramOption configures the SupportHistogramCalculator.
type SupportHistogramOption func(*SupportHistogramCalculator)

// WithBucketWidth sets the support range covered by each bucket.
func WithBucketWidth(w int) SupportHistogramOption {
	return func(c *SupportHistogramCalculator) {
		c.bucketWidth = w
	}
}

// NewSupportHistogramCalculator creates a new SupportHistogramCalculator.
func NewSupportHistogramCalculator(opts ...SupportHistogramOption) *SupportHistogramCalculator {
	c := &SupportHistogramCalculator{bucketWidth: 5}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SupportHistogramResult holds the calculation result.
type SupportHistogramResult struct {
	Buckets    []model.SupportBucket
	MinSupport int
	MaxSupport int
}

// Calculate buckets the support of every closed record into
// [lower, lower+bucketWidth) ranges, sorted by lower bound ascending.
func (c *SupportHistogramCalculator) Calculate(closed []model.ClosedRecord) *SupportHistogramResult {
	result := &SupportHistogramResult{Buckets: make([]model.SupportBucket, 0)}

	if len(closed) == 0 {
		return result
	}

	width := c.bucketWidth
	if width <= 0 {
		width = 1
	}

	result.MinSupport = closed[0].Support
	result.MaxSupport = closed[0].Support

	counts := make(map[int]int)
	for _, rec := range closed {
		if rec.Support < result.MinSupport {
			result.MinSupport = rec.Support
		}
		if rec.Support > result.MaxSupport {
			result.MaxSupport = rec.Support
		}
		lower := (rec.Support / width) * width
		counts[lower]++
	}

	lowers := make([]int, 0, len(counts))
	for lower := range counts {
		lowers = append(lowers, lower)
	}
	sort.Ints(lowers)

	for _, lower := range lowers {
		result.Buckets = append(result.Buckets, model.SupportBucket{
			LowerBound: lower,
			UpperBound: lower + width - 1,
			Count:      counts[lower],
		})
	}

	return result
}

// BucketFor returns the bucket containing support, or nil if none covers it.
func (r *SupportHistogramResult) BucketFor(support int) *model.SupportBucket {
	for i := range r.Buckets {
		if support >= r.Buckets[i].LowerBound && support <= r.Buckets[i].UpperBound {
			return &r.Buckets[i]
		}
	}
	return nil
}
