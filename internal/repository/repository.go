// Package repository provides database abstraction for persisted window
// snapshots, closed itemsets, and mining suggestions.
package repository

import (
	"context"

	"github.com/cfiminer/miner/pkg/model"
)

// SnapshotRepository persists window snapshots and their closed itemsets.
type SnapshotRepository interface {
	// SaveSnapshot persists a snapshot along with its closed itemsets.
	SaveSnapshot(ctx context.Context, snapshot *model.WindowSnapshot) error

	// GetSnapshotByID retrieves a snapshot by its ID, including closed itemsets.
	GetSnapshotByID(ctx context.Context, id int64) (*model.WindowSnapshot, error)

	// GetLatestSnapshot retrieves the most recent snapshot for an engine.
	GetLatestSnapshot(ctx context.Context, engine model.EngineKind) (*model.WindowSnapshot, error)

	// ListSnapshots lists the most recent snapshots for an engine, newest first.
	ListSnapshots(ctx context.Context, engine model.EngineKind, limit int) ([]*model.WindowSnapshot, error)
}

// SuggestionRepository persists mining suggestions derived from snapshots.
type SuggestionRepository interface {
	// SaveSuggestion persists a suggestion.
	SaveSuggestion(ctx context.Context, suggestion *model.MiningSuggestion) error

	// GetSuggestions retrieves suggestions for an engine, newest first.
	GetSuggestions(ctx context.Context, engine model.EngineKind, limit int) ([]*model.MiningSuggestion, error)
}
