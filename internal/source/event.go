package source

import (
	"time"

	"github.com/cfiminer/miner/pkg/model"
)

// Event is a unified transaction event from any source.
type Event struct {
	ID          string
	Transaction model.TransactionEvent
	SourceType  Type
	SourceName  string
	Metadata    map[string]string
}

// NewEvent builds an Event from a raw item list.
func NewEvent(offset int64, items []string, sourceType Type, sourceName string) *Event {
	return &Event{
		ID: sourceName,
		Transaction: model.TransactionEvent{
			Offset:    offset,
			Items:     items,
			Source:    sourceName,
			Timestamp: time.Now(),
		},
		SourceType: sourceType,
		SourceName: sourceName,
		Metadata:   make(map[string]string),
	}
}

// WithMetadata adds metadata to the event and returns it for chaining.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}
