package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cfiminer/miner/pkg/model"
)

// MySQLSnapshotRepository implements SnapshotRepository for MySQL using
// database/sql directly, as an alternative to the GORM-backed repository.
type MySQLSnapshotRepository struct {
	db *sql.DB
}

// NewMySQLSnapshotRepository creates a new MySQLSnapshotRepository.
func NewMySQLSnapshotRepository(db *sql.DB) *MySQLSnapshotRepository {
	return &MySQLSnapshotRepository{db: db}
}

// SaveSnapshot persists a snapshot along with its closed itemsets.
func (r *MySQLSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *model.WindowSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO window_snapshot (engine, window_size, threshold, stream_offset, taken_at) VALUES (?, ?, ?, ?, NOW())`,
		snapshot.Engine, snapshot.WindowSize, snapshot.Threshold, snapshot.StreamOffset,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read snapshot id: %w", err)
	}
	snapshot.ID = snapshotID

	for i, closed := range snapshot.Closed {
		itemsJSON, err := json.Marshal(closed.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal closed itemset: %w", err)
		}
		closedRes, err := tx.ExecContext(ctx,
			`INSERT INTO closed_itemset (snapshot_id, items, support, engine) VALUES (?, ?, ?, ?)`,
			snapshotID, itemsJSON, closed.Support, closed.Engine,
		)
		if err != nil {
			return fmt.Errorf("failed to save closed itemset: %w", err)
		}
		closedID, err := closedRes.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read closed itemset id: %w", err)
		}
		snapshot.Closed[i].ID = closedID
		snapshot.Closed[i].SnapshotID = snapshotID
	}

	return tx.Commit()
}

// GetSnapshotByID retrieves a snapshot by its ID, including closed itemsets.
func (r *MySQLSnapshotRepository) GetSnapshotByID(ctx context.Context, id int64) (*model.WindowSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE id = ?`, id)
	snapshot, err := scanSnapshotRow(row)
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
func (r *MySQLSnapshotRepository) GetLatestSnapshot(ctx context.Context, engine model.EngineKind) (*model.WindowSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE engine = ? ORDER BY id DESC LIMIT 1`, engine)
	snapshot, err := scanSnapshotRow(row)
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
func (r *MySQLSnapshotRepository) ListSnapshots(ctx context.Context, engine model.EngineKind, limit int) ([]*model.WindowSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, engine, window_size, threshold, stream_offset, taken_at FROM window_snapshot WHERE engine = ? ORDER BY id DESC LIMIT ?`,
		engine, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.WindowSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshotRows(rows)
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

func (r *MySQLSnapshotRepository) loadClosed(ctx context.Context, snapshotID int64) ([]model.ClosedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, snapshot_id, items, support, engine FROM closed_itemset WHERE snapshot_id = ?`, snapshotID)
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

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanSnapshotRow(row *sql.Row) (*model.WindowSnapshot, error) {
	return scanSnapshot(row)
}

func scanSnapshotRows(rows *sql.Rows) (*model.WindowSnapshot, error) {
	return scanSnapshot(rows)
}

func scanSnapshot(s scannable) (*model.WindowSnapshot, error) {
	snapshot := &model.WindowSnapshot{}
	if err := s.Scan(&snapshot.ID, &snapshot.Engine, &snapshot.WindowSize, &snapshot.Threshold,
		&snapshot.StreamOffset, &snapshot.TakenAt); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// MySQLSuggestionRepository implements SuggestionRepository for MySQL.
type MySQLSuggestionRepository struct {
	db *sql.DB
}

// NewMySQLSuggestionRepository creates a new MySQLSuggestionRepository.
func NewMySQLSuggestionRepository(db *sql.DB) *MySQLSuggestionRepository {
	return &MySQLSuggestionRepository{db: db}
}

// SaveSuggestion persists a suggestion.
func (r *MySQLSuggestionRepository) SaveSuggestion(ctx context.Context, suggestion *model.MiningSuggestion) error {
	itemsJSON, err := json.Marshal(suggestion.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion items: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO mining_suggestion (engine, severity, message, items, created_at) VALUES (?, ?, ?, ?, NOW())`,
		suggestion.Engine, suggestion.Severity, suggestion.Message, itemsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read suggestion id: %w", err)
	}
	suggestion.ID = id
	return nil
}

// GetSuggestions retrieves suggestions for an engine, newest first.
func (r *MySQLSuggestionRepository) GetSuggestions(ctx context.Context, engine model.EngineKind, limit int) ([]*model.MiningSuggestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, engine, severity, message, items, created_at FROM mining_suggestion WHERE engine = ? ORDER BY id DESC LIMIT ?`,
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
