package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// SnapshotArchive implements storage.SnapshotArchive using ClickHouse.
type SnapshotArchive struct {
	conn *Conn
}

// NewSnapshotArchive creates a new SnapshotArchive.
func NewSnapshotArchive(conn *Conn) *SnapshotArchive {
	return &SnapshotArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)

// InsertBulk adds multiple minute snapshots in one batch.
func (s *SnapshotArchive) InsertBulk(ctx context.Context, snapshots []*domain.MinuteSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO minute_snapshots (
			ts, total_bankroll, cash_on_hand,
			total_long_position, long_cost_basis, long_pnl,
			total_short_position, short_cost_basis, short_pnl, close
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Timestamp, snap.TotalBankroll, snap.CashOnHand,
			snap.TotalLongPosition, snap.LongCostBasis, snap.LongPnL,
			snap.TotalShortPosition, snap.ShortCostBasis, snap.ShortPnL, snap.Close,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves snapshots within [start, end] inclusive, ordered
// by timestamp ASC.
func (s *SnapshotArchive) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.MinuteSnapshot, error) {
	query := `
		SELECT ts, total_bankroll, cash_on_hand,
		       total_long_position, long_cost_basis, long_pnl,
		       total_short_position, short_cost_basis, short_pnl, close
		FROM minute_snapshots
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows chRows) ([]*domain.MinuteSnapshot, error) {
	var snapshots []*domain.MinuteSnapshot

	for rows.Next() {
		var snap domain.MinuteSnapshot
		err := rows.Scan(
			&snap.Timestamp, &snap.TotalBankroll, &snap.CashOnHand,
			&snap.TotalLongPosition, &snap.LongCostBasis, &snap.LongPnL,
			&snap.TotalShortPosition, &snap.ShortCostBasis, &snap.ShortPnL, &snap.Close,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = snap.Timestamp.UTC()
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
