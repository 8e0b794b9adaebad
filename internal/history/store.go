// Package history persists run lifecycle events in SQLite so daemon runs can
// be inspected after the fact.
package history

import (
	"context"
	"time"
)

// Event is one persisted run event.
type Event struct {
	ID        int64
	RunID     string
	EventType string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// Event types written by the Recorder.
const (
	EventRunStarted   = "run.started"
	EventLaneFinished = "lane.finished"
	EventRunFinished  = "run.finished"
)

// Store defines the interface for persisting and retrieving run events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error

	// GetByRunID retrieves all events for a specific run.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
