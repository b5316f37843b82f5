package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cfiminer/miner/pkg/model"
	"gorm.io/gorm"
)

// GormSnapshotRepository implements SnapshotRepository using GORM.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// SaveSnapshot persists a snapshot along with its closed itemsets.
func (r *GormSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *model.WindowSnapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &WindowSnapshotRow{
			Engine:       snapshot.Engine,
			WindowSize:   snapshot.WindowSize,
			Threshold:    snapshot.Threshold,
			StreamOffset: snapshot.StreamOffset,
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		snapshot.ID = row.ID
		snapshot.TakenAt = row.TakenAt

		for i := range snapshot.Closed {
			snapshot.Closed[i].SnapshotID = row.ID
			closedRow, err := NewClosedItemsetRow(row.ID, snapshot.Closed[i])
			if err != nil {
				return fmt.Errorf("failed to marshal closed itemset: %w", err)
			}
			if err := tx.Create(closedRow).Error; err != nil {
				return fmt.Errorf("failed to save closed itemset: %w", err)
			}
			snapshot.Closed[i].ID = closedRow.ID
		}

		return nil
	})
}

// GetSnapshotByID retrieves a snapshot by its ID, including closed itemsets.
func (r *GormSnapshotRepository) GetSnapshotByID(ctx context.Context, id int64) (*model.WindowSnapshot, error) {
	var row WindowSnapshotRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("snapshot not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return r.hydrate(ctx, &row)
}

// GetLatestSnapshot retrieves the most recent snapshot for an engine.
func (r *GormSnapshotRepository) GetLatestSnapshot(ctx context.Context, engine model.EngineKind) (*model.WindowSnapshot, error) {
	var row WindowSnapshotRow
	err := r.db.WithContext(ctx).
		Where("engine = ?", engine).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no snapshot found for engine: %s", engine)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return r.hydrate(ctx, &row)
}

// ListSnapshots lists the most recent snapshots for an engine, newest first.
func (r *GormSnapshotRepository) ListSnapshots(ctx context.Context, engine model.EngineKind, limit int) ([]*model.WindowSnapshot, error) {
	var rows []WindowSnapshotRow
	err := r.db.WithContext(ctx).
		Where("engine = ?", engine).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]*model.WindowSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := r.hydrate(ctx, &row)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (r *GormSnapshotRepository) hydrate(ctx context.Context, row *WindowSnapshotRow) (*model.WindowSnapshot, error) {
	var closedRows []ClosedItemsetRow
	if err := r.db.WithContext(ctx).Where("snapshot_id = ?", row.ID).Find(&closedRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load closed itemsets: %w", err)
	}

	snapshot := row.ToModel()
	snapshot.Closed = make([]model.ClosedRecord, 0, len(closedRows))
	for _, cr := range closedRows {
		rec, err := cr.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal closed itemset: %w", err)
		}
		snapshot.Closed = append(snapshot.Closed, rec)
	}
	return snapshot, nil
}

// GormSuggestionRepository implements SuggestionRepository using GORM.
type GormSuggestionRepository struct {
	db *gorm.DB
}

// NewGormSuggestionRepository creates a new GormSuggestionRepository.
func NewGormSuggestionRepository(db *gorm.DB) *GormSuggestionRepository {
	return &GormSuggestionRepository{db: db}
}

// SaveSuggestion persists a suggestion.
func (r *GormSuggestionRepository) SaveSuggestion(ctx context.Context, suggestion *model.MiningSuggestion) error {
	row, err := NewMiningSuggestionRow(suggestion)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	suggestion.ID = row.ID
	return nil
}

// GetSuggestions retrieves suggestions for an engine, newest first.
func (r *GormSuggestionRepository) GetSuggestions(ctx context.Context, engine model.EngineKind, limit int) ([]*model.MiningSuggestion, error) {
	var rows []MiningSuggestionRow
	err := r.db.WithContext(ctx).
		Where("engine = ?", engine).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}

	suggestions := make([]*model.MiningSuggestion, 0, len(rows))
	for _, row := range rows {
		s, err := row.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal suggestion: %w", err)
		}
		suggestions = append(suggestions, &s)
	}
	return suggestions, nil
}
