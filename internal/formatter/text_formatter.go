package formatter

import (
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

// TextFormatter renders a snapshot as human-readable log lines.
type TextFormatter struct{}

// Format writes the snapshot to the logger.
func (f *TextFormatter) Format(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion, log utils.Logger) {
	if snap == nil {
		return
	}

	log.Info("=== Window Snapshot ===")
	log.Info("Engine:        %s", snap.Engine)
	log.Info("Window size:   %d", snap.WindowSize)
	log.Info("Threshold:     %d", snap.Threshold)
	log.Info("Stream offset: %d", snap.StreamOffset)
	log.Info("Closed:        %d", len(snap.Closed))
	log.Info("")

	log.Info("=== Top Closed Itemsets ===")
	count := min(10, len(snap.Closed))
	for i := 0; i < count; i++ {
		rec := snap.Closed[i]
		log.Info("  %2d. support=%-6d %v", i+1, rec.Support, rec.Items)
	}
	log.Info("")

	if len(suggestions) > 0 {
		log.Info("=== Advisor Suggestions ===")
		for i, sug := range suggestions {
			if i >= 5 {
				log.Info("  ... and %d more suggestions", len(suggestions)-5)
				break
			}
			log.Info("  [%s] %s", sug.Severity, sug.Message)
		}
	}
}

// FormatSummary returns a summary map for serialization.
func (f *TextFormatter) FormatSummary(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion) map[string]interface{} {
	if snap == nil {
		return nil
	}

	return map[string]interface{}{
		"engine":            snap.Engine,
		"window_size":       snap.WindowSize,
		"threshold":         snap.Threshold,
		"stream_offset":     snap.StreamOffset,
		"closed_count":      len(snap.Closed),
		"suggestions_count": len(suggestions),
	}
}
