package storage

import (
	"context"
	"strings"
	"time"

	"stacksIndexer/internal/model"
)

// InsertResult reports the outcome of an idempotent insert.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	if r == AlreadyExists {
		return "already_exists"
	}
	return "inserted"
}

// EventFilter selects events. Empty fields do not constrain the result.
// Search is a case-insensitive substring matched against contract id,
// event name or tx id.
type EventFilter struct {
	ContractID string
	EventName  string
	Search     string
	Since      time.Time
}

// Matches reports whether e satisfies the filter.
func (f EventFilter) Matches(e model.Event) bool {
	if f.ContractID != "" && e.ContractID != f.ContractID {
		return false
	}
	if f.EventName != "" && e.EventName != f.EventName {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(e.ContractID), needle) ||
			strings.Contains(strings.ToLower(e.EventName), needle) ||
			strings.Contains(strings.ToLower(e.TxID), needle)
	}
	return true
}

// Page is an offset window. A non-positive Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// EventStore persists decoded events, unique by tx id.
// Find returns events ordered by block height, highest first.
type EventStore interface {
	InsertIfAbsent(ctx context.Context, event model.Event) (InsertResult, error)
	Find(ctx context.Context, filter EventFilter, page Page) ([]model.Event, int64, error)
	FindByTxID(ctx context.Context, txID string) (model.Event, bool, error)
	EventsSince(ctx context.Context, since time.Time) ([]model.Event, error)
	CountEvents(ctx context.Context, filter EventFilter) (int64, error)
}

// CheckpointStore persists the per-contract ingestion watermark.
type CheckpointStore interface {
	Advance(ctx context.Context, address, contractName string, blockHeight uint64) error
	Get(ctx context.Context, address, contractName string) (model.ContractCheckpoint, bool, error)
	TopByProgress(ctx context.Context, limit int) ([]model.ContractCheckpoint, error)
	CountContracts(ctx context.Context) (int64, error)
}

// Sink receives batches of events for export.
type Sink interface {
	PutEventBatch(events []model.Event) error
}
