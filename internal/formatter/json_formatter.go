package formatter

import (
	"encoding/json"

	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

// JSONFormatter renders a snapshot as a single-line JSON log record.
type JSONFormatter struct{}

// Format writes the snapshot as JSON to the logger.
func (f *JSONFormatter) Format(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion, log utils.Logger) {
	if snap == nil {
		return
	}

	data, err := json.Marshal(f.FormatSummary(snap, suggestions))
	if err != nil {
		log.Error("failed to marshal snapshot summary: %v", err)
		return
	}
	log.Info("%s", string(data))
}

// FormatSummary returns a summary map for serialization.
func (f *JSONFormatter) FormatSummary(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion) map[string]interface{} {
	if snap == nil {
		return nil
	}

	return map[string]interface{}{
		"engine":        snap.Engine,
		"window_size":   snap.WindowSize,
		"threshold":     snap.Threshold,
		"stream_offset": snap.StreamOffset,
		"closed":        snap.Closed,
		"suggestions":   suggestions,
	}
}
