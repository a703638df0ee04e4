// Package store persists the execution dedup ledger, position records and
// the strategy configuration. Two implementations exist: a DuckDB-backed
// store for deployments and an in-memory store for tests.
package store

import (
	"context"
	"time"

	"github.com/openquant-labs/signalfan/internal/types"
)

// Store is the persistence collaborator shared by listeners and execution
// engines. RecordExecutionIfAbsent is the system's single cross-subscriber
// synchronization point and must be atomic: concurrent calls for the same
// (signal, subscriber) pair resolve to exactly one true result.
type Store interface {
	// RecordExecutionIfAbsent inserts a PENDING dedup record for the pair.
	// Returns true when this call created the record, false when one already
	// existed. Only the true caller may proceed to place orders.
	RecordExecutionIfAbsent(ctx context.Context, record types.ExecutionRecord) (bool, error)

	// MarkExecutionExecuted finalizes the record after a successful fill.
	MarkExecutionExecuted(ctx context.Context, signalID, subscriberID, positionID string, slippagePct float64, latencyMs int64) error

	// MarkExecutionFailed finalizes the record with the given status, which
	// must be FAILED or REJECTED, and a human-readable reason.
	MarkExecutionFailed(ctx context.Context, signalID, subscriberID string, status types.ExecutionStatus, reason string) error

	// HasExecuted reports whether the subscriber holds a dedup record for the
	// signal, regardless of its final status.
	HasExecuted(ctx context.Context, signalID, subscriberID string) (bool, error)

	// GetExecution returns the dedup record for the pair.
	GetExecution(ctx context.Context, signalID, subscriberID string) (types.ExecutionRecord, error)

	// SavePosition inserts a new position record.
	SavePosition(ctx context.Context, position types.Position) error

	// UpdatePosition overwrites an existing position record.
	UpdatePosition(ctx context.Context, position types.Position) error

	// GetPosition returns the position with the id.
	GetPosition(ctx context.Context, id string) (types.Position, error)

	// OpenPositions returns the subscriber's open positions.
	OpenPositions(ctx context.Context, subscriberID string) ([]types.Position, error)

	// ClosedPositions returns the subscriber's positions closed at or after
	// the given time. Used to accumulate realized daily loss.
	ClosedPositions(ctx context.Context, subscriberID string, since time.Time) ([]types.Position, error)

	// StrategyConfig returns the persisted strategy configuration document.
	// An empty string means no document has been saved.
	StrategyConfig(ctx context.Context) (string, error)

	// SaveStrategyConfig replaces the persisted strategy configuration.
	SaveStrategyConfig(ctx context.Context, doc string) error

	// Close releases the store's resources.
	Close() error
}
