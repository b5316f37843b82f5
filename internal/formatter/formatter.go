// Package formatter renders a window snapshot and its advisor suggestions
// for human or machine consumption.
package formatter

import (
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/utils"
)

// Format names the output format a Formatter produces.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// SnapshotFormatter renders a window snapshot and its suggestions.
type SnapshotFormatter interface {
	// Format writes the snapshot to the logger.
	Format(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion, log utils.Logger)

	// FormatSummary returns a summary map for serialization.
	FormatSummary(snap *model.WindowSnapshot, suggestions []model.MiningSuggestion) map[string]interface{}
}

// Registry dispatches to a SnapshotFormatter by format name.
type Registry struct {
	formatters map[Format]SnapshotFormatter
	fallback   SnapshotFormatter
}

// NewRegistry creates a formatter registry with the default text/JSON formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]SnapshotFormatter)}
	r.Register(FormatText, &TextFormatter{})
	r.Register(FormatJSON, &JSONFormatter{})
	r.fallback = r.formatters[FormatText]
	return r
}

// Register registers a formatter under name.
func (r *Registry) Register(name Format, f SnapshotFormatter) {
	r.formatters[name] = f
}

// Get returns the formatter registered under name, or the fallback (text) formatter.
func (r *Registry) Get(name Format) SnapshotFormatter {
	if f, ok := r.formatters[name]; ok {
		return f
	}
	return r.fallback
}

// Format formats the snapshot using the named formatter.
func (r *Registry) Format(name Format, snap *model.WindowSnapshot, suggestions []model.MiningSuggestion, log utils.Logger) {
	r.Get(name).Format(snap, suggestions, log)
}

// FormatSummary returns a summary map using the named formatter.
func (r *Registry) FormatSummary(name Format, snap *model.WindowSnapshot, suggestions []model.MiningSuggestion) map[string]interface{} {
	return r.Get(name).FormatSummary(snap, suggestions)
}
