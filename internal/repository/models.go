// Package repository provides database abstraction for persisted window
// snapshots, closed itemsets, and mining suggestions.
package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/cfiminer/miner/pkg/model"
)

// WindowSnapshotRow represents the window_snapshot table.
type WindowSnapshotRow struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Engine       model.EngineKind `gorm:"column:engine;type:varchar(32);index"`
	WindowSize   int              `gorm:"column:window_size"`
	Threshold    int              `gorm:"column:threshold"`
	StreamOffset int64            `gorm:"column:stream_offset"`
	TakenAt      time.Time        `gorm:"column:taken_at;autoCreateTime"`
}

// TableName returns the table name for WindowSnapshotRow.
func (WindowSnapshotRow) TableName() string {
	return "window_snapshot"
}

// ToModel converts WindowSnapshotRow to model.WindowSnapshot.
func (r *WindowSnapshotRow) ToModel() *model.WindowSnapshot {
	return &model.WindowSnapshot{
		ID:           r.ID,
		Engine:       r.Engine,
		WindowSize:   r.WindowSize,
		Threshold:    r.Threshold,
		StreamOffset: r.StreamOffset,
		TakenAt:      r.TakenAt,
	}
}

// ClosedItemsetRow represents the closed_itemset table, one row per closed
// itemset belonging to a snapshot.
type ClosedItemsetRow struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement"`
	SnapshotID int64            `gorm:"column:snapshot_id;index"`
	Items      JSONField        `gorm:"column:items;type:json"`
	Support    int              `gorm:"column:support"`
	Engine     model.EngineKind `gorm:"column:engine;type:varchar(32)"`
}

// TableName returns the table name for ClosedItemsetRow.
func (ClosedItemsetRow) TableName() string {
	return "closed_itemset"
}

// ToModel converts ClosedItemsetRow to model.ClosedRecord.
func (r *ClosedItemsetRow) ToModel() (model.ClosedRecord, error) {
	rec := model.ClosedRecord{
		ID:         r.ID,
		SnapshotID: r.SnapshotID,
		Support:    r.Support,
		Engine:     r.Engine,
	}
	if r.Items != nil {
		if err := json.Unmarshal(r.Items, &rec.Items); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// NewClosedItemsetRow builds a row from a model.ClosedRecord.
func NewClosedItemsetRow(snapshotID int64, rec model.ClosedRecord) (*ClosedItemsetRow, error) {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return nil, err
	}
	return &ClosedItemsetRow{
		SnapshotID: snapshotID,
		Items:      items,
		Support:    rec.Support,
		Engine:     rec.Engine,
	}, nil
}

// MiningSuggestionRow represents the mining_suggestion table.
type MiningSuggestionRow struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Engine    model.EngineKind `gorm:"column:engine;type:varchar(32);index"`
	Severity  string           `gorm:"column:severity;type:varchar(32)"`
	Message   string           `gorm:"column:message;type:text"`
	Items     JSONField        `gorm:"column:items;type:json"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for MiningSuggestionRow.
func (MiningSuggestionRow) TableName() string {
	return "mining_suggestion"
}

// ToModel converts MiningSuggestionRow to model.MiningSuggestion.
func (r *MiningSuggestionRow) ToModel() (model.MiningSuggestion, error) {
	s := model.MiningSuggestion{
		ID:        r.ID,
		Engine:    r.Engine,
		Severity:  r.Severity,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
	if r.Items != nil {
		if err := json.Unmarshal(r.Items, &s.Items); err != nil {
			return s, err
		}
	}
	return s, nil
}

// NewMiningSuggestionRow builds a row from a model.MiningSuggestion.
func NewMiningSuggestionRow(s *model.MiningSuggestion) (*MiningSuggestionRow, error) {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return nil, err
	}
	return &MiningSuggestionRow{
		Engine:    s.Engine,
		Severity:  s.Severity,
		Message:   s.Message,
		Items:     items,
		CreatedAt: s.CreatedAt,
	}, nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
