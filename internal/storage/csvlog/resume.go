package csvlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// Checkpoint is everything a resumed run needs from the journals: the last
// written minute snapshot, the live position set, and the running win/loss
// counters rebuilt from the trade log.
type Checkpoint struct {
	Snapshot      *domain.MinuteSnapshot
	OpenPositions []*domain.OpenPosition
	Wins          int
	Losses        int
}

// LoadCheckpoint reconstructs resume state from the journal directory.
// Returns storage.ErrNotFound when no snapshot was ever written (fresh
// start) and storage.ErrCorruptCheckpoint when the journals exist but
// cannot be decoded consistently.
func LoadCheckpoint(ctx context.Context, dir string, logger zerolog.Logger) (*Checkpoint, error) {
	snapshots := NewSnapshotFile(dir, false, logger)
	snap, err := snapshots.Last(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, err
	}

	positions, err := NewOpenPositionFile(dir, logger).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open positions: %v", storage.ErrCorruptCheckpoint, err)
	}

	events, err := NewTradeLog(dir, false, logger).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: trade log: %v", storage.ErrCorruptCheckpoint, err)
	}

	cp := &Checkpoint{Snapshot: snap, OpenPositions: positions}
	for _, e := range events {
		if e.Winner == nil {
			continue
		}
		switch {
		case e.IndPnL > 0:
			cp.Wins++
		case e.IndPnL < 0:
			cp.Losses++
		}
	}

	logger.Info().
		Time("resume_from", snap.Timestamp).
		Int("open_positions", len(positions)).
		Int("wins", cp.Wins).
		Int("losses", cp.Losses).
		Msg("loaded resume checkpoint")
	return cp, nil
}
