package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cfiminer/miner/pkg/model"
)

// PostgresSnapshotRepository implements SnapshotRepository for PostgreSQL.
type PostgresSnapshotRepository struct {
	db *sql.DB
}

// NewPostgresSnapshotRepository creates a new PostgresSnapshotRepository.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// SaveSnapshot persists a snapshot along with its closed itemsets.
func (r *PostgresSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *model.WindowSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var snapshotID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO window_snapshot (engine, window_size, threshold, stream_offset, taken_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		snapshot.Engine, snapshot.WindowSize, snapshot.Threshold, snapshot.StreamOffset,
	).Scan(&snapshotID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	snapshot.ID = snapshotID

	for i, closed := range snapshot.Closed {
		itemsJSON, err := json.Marshal(closed.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal closed itemset: %w", err)
		}
		var closedID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO closed_itemset (snapshot_id, items, support, engine) VALUES ($1, $2, $3, $4) RETURNING id`,
			snapshotID, itemsJSON, closed.Support, closed.Engine,
		).Scan(&closedID)
		if err != nil {
			return fmt.Errorf("failed to save closed itemset: %w", err)
		}
		snapshot.Closed[i].ID = closedID
		snapshot.Closed[i].SnapshotID = snapshotID
	}

	return tx.Commit()
}

// GetSnapshotByID retrieves a snapshot by its ID, including closed itemsets.
func (r *PostgresSnapshotRepository) GetSnapshotByID(ctx context.Context, id int64) (*model.WindowSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE id = $1`, id)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("snapshot not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	closed, err := r.loadClosed(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot.Closed = closed
	return snapshot, nil
}

// GetLatestSnapshot retrieves the most recent snapshot for an engine.
func (r *PostgresSnapshotRepository) GetLatestSnapshot(ctx context.Context, engine model.EngineKind) (*model.WindowSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE engine = $1 ORDER BY id DESC LIMIT 1`, engine)
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no snapshot found for engine: %s", engine)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	closed, err := r.loadClosed(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}
	snapshot.Closed = closed
	return snapshot, nil
}

// ListSnapshots lists the most recent snapshots for an engine, newest first.
func (r *PostgresSnapshotRepository) ListSnapshots(ctx context.Context, engine model.EngineKind, limit int) ([]*model.WindowSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE engine = $1 ORDER BY id DESC LIMIT $2`,
		engine, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.WindowSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		closed, err := r.loadClosed(ctx, snapshot.ID)
		if err != nil {
			return nil, err
		}
		snapshot.Closed = closed
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (r *PostgresSnapshotRepository) loadClosed(ctx context.Context, snapshotID int64) ([]model.ClosedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, snapshot_id, items, support, engine FROM closed_itemset WHERE snapshot_id = $1`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load closed itemsets: %w", err)
	}
	defer rows.Close()

	var records []model.ClosedRecord
	for rows.Next() {
		var rec model.ClosedRecord
		var itemsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.SnapshotID, &itemsJSON, &rec.Support, &rec.Engine); err != nil {
			return nil, fmt.Errorf("failed to scan closed itemset: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal closed itemset: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PostgresSuggestionRepository implements SuggestionRepository for PostgreSQL.
type PostgresSuggestionRepository struct {
	db *sql.DB
}

// NewPostgresSuggestionRepository creates a new PostgresSuggestionRepository.
func NewPostgresSuggestionRepository(db *sql.DB) *PostgresSuggestionRepository {
	return &PostgresSuggestionRepository{db: db}
}

// SaveSuggestion persists a suggestion.
func (r *PostgresSuggestionRepository) SaveSuggestion(ctx context.Context, suggestion *model.MiningSuggestion) error {
	itemsJSON, err := json.Marshal(suggestion.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion items: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO mining_suggestion (engine, severity, message, items, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		suggestion.Engine, suggestion.Severity, suggestion.Message, itemsJSON,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	suggestion.ID = id
	return nil
}

// GetSuggestions retrieves suggestions for an engine, newest first.
func (r *PostgresSuggestionRepository) GetSuggestions(ctx context.Context, engine model.EngineKind, limit int) ([]*model.MiningSuggestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, engine, severity, message, items, created_at FROM mining_suggestion WHERE engine = $1 ORDER BY id DESC LIMIT $2`,
		engine, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []*model.MiningSuggestion
	for rows.Next() {
		s := &model.MiningSuggestion{}
		var itemsJSON []byte
		if err := rows.Scan(&s.ID, &s.Engine, &s.Severity, &s.Message, &itemsJSON, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &s.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suggestion items: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
