// Package advisor produces rule-based suggestions over the evolving
// closed-itemset collection of a window snapshot.
package advisor

import (
	"fmt"

	"github.com/cfiminer/miner/internal/statistics"
	"github.com/cfiminer/miner/pkg/model"
)

// Advisor generates mining suggestions from a window snapshot.
type Advisor struct {
	rules []Rule
}

// Rule represents a suggestion rule.
type Rule struct {
	Type        string
	Name        string
	Description string
	Threshold   float64
	Check       RuleCheckFunc
}

// RuleCheckFunc is a function that checks if a rule applies.
type RuleCheckFunc func(ctx *RuleContext) []model.MiningSuggestion

// RuleContext provides context for rule checking.
type RuleContext struct {
	Snapshot  *model.WindowSnapshot
	TopResult *statistics.TopItemsetsResult
	Histogram *statistics.SupportHistogramResult
}

// NewRuleContext builds a RuleContext from a snapshot, computing the
// statistics every rule in the default set consults.
func NewRuleContext(snap *model.WindowSnapshot) *RuleContext {
	return &RuleContext{
		Snapshot:  snap,
		TopResult: statistics.NewTopItemsetsCalculator().Calculate(snap.Closed),
		Histogram: statistics.NewSupportHistogramCalculator().Calculate(snap.Closed),
	}
}

// NewAdvisor creates a new Advisor with default rules.
func NewAdvisor() *Advisor {
	return &Advisor{rules: defaultRules()}
}

// NewAdvisorWithRules creates a new Advisor with custom rules.
func NewAdvisorWithRules(rules []Rule) *Advisor {
	return &Advisor{rules: rules}
}

// Advise generates suggestions based on the analysis context.
func (a *Advisor) Advise(ctx *RuleContext) []model.MiningSuggestion {
	suggestions := make([]model.MiningSuggestion, 0)

	for _, rule := range a.rules {
		if rule.Check != nil {
			suggestions = append(suggestions, rule.Check(ctx)...)
		}
	}

	return suggestions
}

// defaultRules returns the default set of advisor rules.
func defaultRules() []Rule {
	return []Rule{
		{
			Type:        "window",
			Name:        "window_saturation",
			Description: "Flags closed itemsets whose support is within one transaction of the window size",
			Threshold:   1,
			Check:       checkWindowSaturation,
		},
		{
			Type:        "threshold",
			Name:        "threshold_infrequency",
			Description: "Flags a threshold that leaves most closed itemsets infrequent",
			Threshold:   0.9,
			Check:       checkThresholdInfrequency,
		},
		{
			Type:        "threshold",
			Name:        "near_threshold_drop",
			Description: "Flags closed itemsets one eviction away from dropping below the threshold",
			Check:       checkNearThresholdDrop,
		},
	}
}

// checkWindowSaturation flags when many closed itemsets carry support
// within one transaction of the full window, meaning the window likely
// can't distinguish them from every transaction in it.
func checkWindowSaturation(ctx *RuleContext) []model.MiningSuggestion {
	suggestions := make([]model.MiningSuggestion, 0)
	snap := ctx.Snapshot
	if snap == nil || snap.WindowSize <= 0 {
		return suggestions
	}

	count := 0
	for _, rec := range snap.Closed {
		if rec.Support >= snap.WindowSize-1 {
			count++
		}
	}

	if count > 0 {
		suggestions = append(suggestions, model.NewSuggestionBuilder().
			WithEngine(snap.Engine).
			WithSeverity("warning").
			WithMessage(fmt.Sprintf("window may be too small: %d itemsets within 1 transaction of window size %d", count, snap.WindowSize)).
			Build())
	}

	return suggestions
}

// checkThresholdInfrequency flags a threshold that leaves the large
// majority of the closed-itemset collection below the frequency cutoff.
func checkThresholdInfrequency(ctx *RuleContext) []model.MiningSuggestion {
	suggestions := make([]model.MiningSuggestion, 0)
	snap := ctx.Snapshot
	if snap == nil || len(snap.Closed) == 0 {
		return suggestions
	}

	infrequent := 0
	for _, rec := range snap.Closed {
		if rec.Support < snap.Threshold {
			infrequent++
		}
	}

	ratio := float64(infrequent) / float64(len(snap.Closed))
	if ratio >= 0.9 {
		suggestions = append(suggestions, model.NewSuggestionBuilder().
			WithEngine(snap.Engine).
			WithSeverity("warning").
			WithMessage(fmt.Sprintf("threshold %d makes %.0f%% of closed itemsets infrequent", snap.Threshold, ratio*100)).
			Build())
	}

	return suggestions
}

// checkNearThresholdDrop flags individual closed itemsets whose support sits
// exactly at the threshold: the next eviction of one of their transactions
// drops them below it.
func checkNearThresholdDrop(ctx *RuleContext) []model.MiningSuggestion {
	suggestions := make([]model.MiningSuggestion, 0)
	snap := ctx.Snapshot
	if snap == nil {
		return suggestions
	}

	for _, rec := range snap.Closed {
		if rec.Support != snap.Threshold {
			continue
		}
		suggestions = append(suggestions, model.NewSuggestionBuilder().
			WithEngine(snap.Engine).
			WithSeverity("info").
			WithMessage(fmt.Sprintf("itemset %v sits at the threshold (%d); one eviction drops it to infrequent", rec.Items, snap.Threshold)).
			WithItems(rec.Items).
			Build())
	}

	return suggestions
}
