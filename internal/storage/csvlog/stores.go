package csvlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// TradeLog journals entry/exit events into trades_all.csv, optionally
// duplicated into per-month trades_{YYYYMM}.csv partitions.
type TradeLog struct {
	dir     string
	monthly bool
	w       *fileWriter
}

var _ storage.TradeLog = (*TradeLog)(nil)

func NewTradeLog(dir string, monthly bool, logger zerolog.Logger) *TradeLog {
	return &TradeLog{dir: dir, monthly: monthly, w: newFileWriter(logger)}
}

func (l *TradeLog) Append(_ context.Context, e *domain.TradeEvent) error {
	row := encodeTradeEvent(e)
	if err := l.w.appendRow(filepath.Join(l.dir, "trades_all.csv"), tradeHeader, row); err != nil {
		return err
	}
	if l.monthly {
		name := fmt.Sprintf("trades_%s.csv", e.TradeDate.UTC().Format("200601"))
		return l.w.appendRow(filepath.Join(l.dir, name), tradeHeader, row)
	}
	return nil
}

func (l *TradeLog) All(_ context.Context) ([]*domain.TradeEvent, error) {
	rows, err := readAll(filepath.Join(l.dir, "trades_all.csv"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := headerIndex(rows[0])
	events := make([]*domain.TradeEvent, 0, len(rows)-1)
	for i, row := range rows[1:] {
		e, err := decodeTradeEvent(row, col)
		if err != nil {
			return nil, fmt.Errorf("trades_all.csv row %d: %w", i+2, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// OpenPositionFile keeps the live position set in open_positions.csv.
// Removals rewrite the file; it only ever holds the handful of positions
// the leverage cap allows.
type OpenPositionFile struct {
	path string
	w    *fileWriter
}

var _ storage.OpenPositionStore = (*OpenPositionFile)(nil)

func NewOpenPositionFile(dir string, logger zerolog.Logger) *OpenPositionFile {
	return &OpenPositionFile{path: filepath.Join(dir, "open_positions.csv"), w: newFileWriter(logger)}
}

func (s *OpenPositionFile) Append(_ context.Context, p *domain.OpenPosition) error {
	return s.w.appendRow(s.path, openPositionHeader, encodeOpenPosition(p))
}

func (s *OpenPositionFile) Remove(_ context.Context, tradeID string) error {
	removed, err := s.w.rewriteWithoutKey(s.path, "trade_id", tradeID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("open position %s: %w", tradeID, storage.ErrNotFound)
	}
	return nil
}

func (s *OpenPositionFile) List(_ context.Context) ([]*domain.OpenPosition, error) {
	rows, err := readAll(s.path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := headerIndex(rows[0])
	positions := make([]*domain.OpenPosition, 0, len(rows)-1)
	for i, row := range rows[1:] {
		p, err := decodeOpenPosition(row, col)
		if err != nil {
			return nil, fmt.Errorf("open_positions.csv row %d: %w", i+2, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// ClosedPositionFile appends to closed_positions.csv.
type ClosedPositionFile struct {
	path string
	w    *fileWriter
}

var _ storage.ClosedPositionLog = (*ClosedPositionFile)(nil)

func NewClosedPositionFile(dir string, logger zerolog.Logger) *ClosedPositionFile {
	return &ClosedPositionFile{path: filepath.Join(dir, "closed_positions.csv"), w: newFileWriter(logger)}
}

func (s *ClosedPositionFile) Append(_ context.Context, p *domain.ClosedPosition) error {
	return s.w.appendRow(s.path, closedPositionHeader, encodeClosedPosition(p))
}

// SnapshotFile writes per-minute analysis rows into monthly
// analysis_{YYYYMM}.csv partitions, optionally duplicated into
// analysis_all.csv. Last() serves resume by reading the newest partition.
type SnapshotFile struct {
	dir string
	all bool
	w   *fileWriter
}

var _ storage.SnapshotLog = (*SnapshotFile)(nil)

func NewSnapshotFile(dir string, writeAll bool, logger zerolog.Logger) *SnapshotFile {
	return &SnapshotFile{dir: dir, all: writeAll, w: newFileWriter(logger)}
}

func (s *SnapshotFile) Append(_ context.Context, snap *domain.MinuteSnapshot) error {
	row := encodeSnapshot(snap)
	name := fmt.Sprintf("analysis_%s.csv", snap.Timestamp.UTC().Format("200601"))
	if err := s.w.appendRow(filepath.Join(s.dir, name), snapshotHeader, row); err != nil {
		return err
	}
	if s.all {
		return s.w.appendRow(filepath.Join(s.dir, "analysis_all.csv"), snapshotHeader, row)
	}
	return nil
}

func (s *SnapshotFile) Last(_ context.Context) (*domain.MinuteSnapshot, error) {
	newest, err := newestAnalysisFile(s.dir)
	if err != nil {
		return nil, err
	}
	if newest == "" {
		return nil, storage.ErrNotFound
	}

	rows, err := readAll(newest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptCheckpoint, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", storage.ErrCorruptCheckpoint, filepath.Base(newest))
	}
	col := headerIndex(rows[0])
	snap, err := decodeSnapshot(rows[len(rows)-1], col)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptCheckpoint, err)
	}
	return snap, nil
}

// newestAnalysisFile returns the lexically greatest analysis_*.csv in dir;
// the YYYYMM suffix makes lexical order chronological. Empty when none exist.
func newestAnalysisFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "analysis_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if name == "analysis_all.csv" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
