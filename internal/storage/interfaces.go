// Package storage defines the persistence interfaces of the simulator. The
// csvlog implementation is the primary, crash-tolerant journal; memory
// backs tests and dry runs; postgres and clickhouse are optional mirrors
// for downstream analysis tooling.
package storage

import (
	"context"
	"time"

	"fib-pattern-lab/internal/domain"
)

// TradeLog is the append-only entry/exit event journal.
type TradeLog interface {
	// Append records one trade event.
	Append(ctx context.Context, e *domain.TradeEvent) error

	// All returns every recorded event in append order.
	All(ctx context.Context) ([]*domain.TradeEvent, error)
}

// OpenPositionStore holds the currently-open position set. Bounded by the
// concurrent open-position count, not by simulation length.
type OpenPositionStore interface {
	// Append adds a newly opened position.
	Append(ctx context.Context, p *domain.OpenPosition) error

	// Remove deletes the position with the given trade id. Returns
	// ErrNotFound if absent.
	Remove(ctx context.Context, tradeID string) error

	// List returns all open positions.
	List(ctx context.Context) ([]*domain.OpenPosition, error)
}

// ClosedPositionLog is the append-only closed-position history.
type ClosedPositionLog interface {
	Append(ctx context.Context, p *domain.ClosedPosition) error
}

// SnapshotLog persists one record per simulated minute and serves as the
// resume checkpoint.
type SnapshotLog interface {
	// Append records one minute snapshot.
	Append(ctx context.Context, s *domain.MinuteSnapshot) error

	// Last returns the most recent snapshot, or ErrNotFound when no
	// snapshot has ever been written.
	Last(ctx context.Context) (*domain.MinuteSnapshot, error)
}

// SnapshotArchive is the bulk interface implemented by the timeseries
// mirror stores.
type SnapshotArchive interface {
	InsertBulk(ctx context.Context, snapshots []*domain.MinuteSnapshot) error
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.MinuteSnapshot, error)
}
