// Package model defines the core data structures used throughout the
// application.
package model

import "time"

// TransactionEvent is one itemset observed at one position in the stream,
// as produced by a TransactionSource.
type TransactionEvent struct {
	Offset    int64     `json:"offset"`
	Items     []string  `json:"items"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// EngineKind names which mining algorithm a snapshot or request refers to.
type EngineKind string

const (
	EngineDIU       EngineKind = "diu"
	EngineMFCI      EngineKind = "mfci"
	EngineStreamFCI EngineKind = "streamfci"
)

// ClosedRecord is one closed itemset as reported by an engine at a point in
// time, the unit persisted by the repository and exported by storage.
type ClosedRecord struct {
	ID         int64      `json:"id,omitempty" db:"id"`
	SnapshotID int64      `json:"snapshot_id,omitempty" db:"snapshot_id"`
	Items      []string   `json:"items" db:"items"`
	Support    int        `json:"support" db:"support"`
	Engine     EngineKind `json:"engine" db:"engine"`
}

// WindowSnapshot captures the full closed-frequent-itemset collection for a
// window at a given stream offset, ready for persistence or export.
type WindowSnapshot struct {
	ID           int64          `json:"id,omitempty" db:"id"`
	Engine       EngineKind     `json:"engine" db:"engine"`
	WindowSize   int            `json:"window_size" db:"window_size"`
	Threshold    int            `json:"threshold" db:"threshold"`
	StreamOffset int64          `json:"stream_offset" db:"stream_offset"`
	Closed       []ClosedRecord `json:"closed"`
	TakenAt      time.Time      `json:"taken_at" db:"taken_at"`
}

// TopItemset is one entry of a top-N-by-support ranking.
type TopItemset struct {
	Items   []string `json:"items"`
	Support int      `json:"support"`
}

// SupportBucket is one bucket of a support-value histogram.
type SupportBucket struct {
	LowerBound int `json:"lower_bound"`
	UpperBound int `json:"upper_bound"`
	Count      int `json:"count"`
}
