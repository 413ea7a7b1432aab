package csvlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

func ts(month, day, hour, minute int) time.Time {
	return time.Date(2024, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

func sampleEvent(id string, tradeDate time.Time) *domain.TradeEvent {
	active := tradeDate.Add(-10 * time.Minute)
	realized := 42.5
	winner := 1
	return &domain.TradeEvent{
		TradeID:            id,
		ConfirmDate:        tradeDate.Add(-time.Hour),
		ActiveDate:         &active,
		TradeDate:          tradeDate,
		OrderType:          domain.OrderCloseLong,
		Fee:                0.33,
		Price:              110,
		UnitsTraded:        -10,
		CostBasisChange:    "100.0000 -> 0.0000",
		RealizedPnL:        &realized,
		TotalLongPosition:  0,
		TotalShortPosition: 5,
		Balance:            -5,
		IndPnL:             99.37,
		Timeframe:          "1h",
		Name:               "1h long(ab...cd)",
		Winner:             &winner,
	}
}

func samplePosition(id string, openedAt time.Time) *domain.OpenPosition {
	active := openedAt
	target := 110.0
	fibPrice := 97.0
	fibDate := openedAt.Add(30 * time.Minute)
	return &domain.OpenPosition{
		TradeID:      id,
		InstanceID:   "inst-" + id,
		Name:         "1h long",
		Timeframe:    "1h",
		Direction:    domain.DirectionLong,
		OpenPrice:    100,
		Size:         10,
		TargetPrice:  &target,
		OpenFee:      0.30,
		OpenedAt:     openedAt,
		ConfirmDate:  openedAt.Add(-time.Hour),
		ActiveDate:   &active,
		Fib0_5:       domain.FibPoint{Price: &fibPrice, DateReached: &fibDate},
		OpenBankroll: 10000,
		AMPDPending:  0.5,
		AMPDTrigger:  0.25,
	}
}

func sampleSnapshot(at time.Time, bankroll float64) *domain.MinuteSnapshot {
	return &domain.MinuteSnapshot{
		Timestamp:         at,
		TotalBankroll:     bankroll,
		CashOnHand:        bankroll - 100,
		TotalLongPosition: 10,
		LongCostBasis:     100,
		LongPnL:           100,
		Close:             110,
	}
}

func TestTradeLog_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	log := NewTradeLog(dir, false, zerolog.Nop())
	ctx := context.Background()

	e1 := sampleEvent("t1", ts(1, 15, 10, 0))
	e2 := sampleEvent("t2", ts(1, 15, 11, 0))
	require.NoError(t, log.Append(ctx, e1))
	require.NoError(t, log.Append(ctx, e2))

	got, err := log.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, e1.TradeID, got[0].TradeID)
	assert.Equal(t, e1.TradeDate, got[0].TradeDate)
	assert.Equal(t, e1.OrderType, got[0].OrderType)
	assert.Equal(t, e1.Fee, got[0].Fee)
	assert.Equal(t, e1.UnitsTraded, got[0].UnitsTraded)
	assert.Equal(t, e1.CostBasisChange, got[0].CostBasisChange)
	require.NotNil(t, got[0].RealizedPnL)
	assert.Equal(t, *e1.RealizedPnL, *got[0].RealizedPnL)
	require.NotNil(t, got[0].Winner)
	assert.Equal(t, 1, *got[0].Winner)
	require.NotNil(t, got[0].ActiveDate)
	assert.Equal(t, *e1.ActiveDate, *got[0].ActiveDate)
	assert.Equal(t, "t2", got[1].TradeID)
}

func TestTradeLog_EmptyDirectory(t *testing.T) {
	log := NewTradeLog(t.TempDir(), false, zerolog.Nop())
	got, err := log.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeLog_MonthlyPartitions(t *testing.T) {
	dir := t.TempDir()
	log := NewTradeLog(dir, true, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, sampleEvent("jan", ts(1, 15, 10, 0))))
	require.NoError(t, log.Append(ctx, sampleEvent("feb", ts(2, 15, 10, 0))))

	for _, name := range []string{"trades_all.csv", "trades_202401.csv", "trades_202402.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	all, err := log.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	janRows, err := readAll(filepath.Join(dir, "trades_202401.csv"))
	require.NoError(t, err)
	assert.Len(t, janRows, 2) // header + one row
}

func TestOpenPositionFile_AppendListRemove(t *testing.T) {
	dir := t.TempDir()
	store := NewOpenPositionFile(dir, zerolog.Nop())
	ctx := context.Background()

	p1 := samplePosition("t1", ts(1, 1, 0, 5))
	p2 := samplePosition("t2", ts(1, 1, 0, 10))
	p3 := samplePosition("t3", ts(1, 1, 0, 15))
	for _, p := range []*domain.OpenPosition{p1, p2, p3} {
		require.NoError(t, store.Append(ctx, p))
	}

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, p1.OpenPrice, got[0].OpenPrice)
	assert.Equal(t, p1.Size, got[0].Size)
	require.NotNil(t, got[0].TargetPrice)
	assert.Equal(t, *p1.TargetPrice, *got[0].TargetPrice)
	require.NotNil(t, got[0].Fib0_5.Price)
	assert.Equal(t, 97.0, *got[0].Fib0_5.Price)
	assert.Equal(t, p1.AMPDPending, got[0].AMPDPending)
	assert.False(t, got[0].FibEntry)

	// Removing the middle row rewrites the file and keeps order.
	require.NoError(t, store.Remove(ctx, "t2"))
	got, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, "t3", got[1].TradeID)

	// The rewritten file stays appendable.
	require.NoError(t, store.Append(ctx, samplePosition("t4", ts(1, 1, 0, 20))))
	got, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestOpenPositionFile_RemoveMissing(t *testing.T) {
	store := NewOpenPositionFile(t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	err := store.Remove(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Append(ctx, samplePosition("t1", ts(1, 1, 0, 5))))
	err = store.Remove(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClosedPositionFile_Append(t *testing.T) {
	dir := t.TempDir()
	store := NewClosedPositionFile(dir, zerolog.Nop())

	closed := &domain.ClosedPosition{
		OpenPosition: *samplePosition("t1", ts(1, 1, 0, 5)),
		ClosePrice:   110,
		ClosedAt:     ts(1, 1, 2, 0),
		IndPnL:       99.37,
		Winner:       1,
		CloseReason:  "",
	}
	require.NoError(t, store.Append(context.Background(), closed))

	rows, err := readAll(filepath.Join(dir, "closed_positions.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, closedPositionHeader, rows[0])

	col := headerIndex(rows[0])
	assert.Equal(t, "t1", rows[1][col["trade_id"]])
	assert.Equal(t, "110", rows[1][col["close_price"]])
	assert.Equal(t, "1", rows[1][col["winner"]])
}

func TestSnapshotFile_MonthlyPartitionsAndLast(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotFile(dir, false, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, sampleSnapshot(ts(1, 31, 23, 58), 10000)))
	require.NoError(t, store.Append(ctx, sampleSnapshot(ts(1, 31, 23, 59), 10001)))
	require.NoError(t, store.Append(ctx, sampleSnapshot(ts(2, 1, 0, 0), 10002)))

	months, err := AnalysisMonths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"202401", "202402"}, months)

	// Last reads the newest partition's final row.
	last, err := store.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, ts(2, 1, 0, 0), last.Timestamp)
	assert.Equal(t, 10002.0, last.TotalBankroll)

	jan, err := ReadSnapshotFile(filepath.Join(dir, "analysis_202401.csv"))
	require.NoError(t, err)
	require.Len(t, jan, 2)
	assert.Equal(t, 10000.0, jan[0].TotalBankroll)
	assert.Equal(t, 10001.0, jan[1].TotalBankroll)
}

func TestSnapshotFile_WriteAll(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotFile(dir, true, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, sampleSnapshot(ts(1, 1, 0, 0), 10000)))
	require.NoError(t, store.Append(ctx, sampleSnapshot(ts(2, 1, 0, 0), 10001)))

	all, err := ReadSnapshotFile(filepath.Join(dir, "analysis_all.csv"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// The combined file never counts as a partition.
	months, err := AnalysisMonths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"202401", "202402"}, months)
}

func TestSnapshotFile_LastEmpty(t *testing.T) {
	store := NewSnapshotFile(t.TempDir(), false, zerolog.Nop())
	_, err := store.Last(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadCheckpoint_FreshDirectory(t *testing.T) {
	_, err := LoadCheckpoint(context.Background(), t.TempDir(), zerolog.Nop())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadCheckpoint_RebuildsState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	logger := zerolog.Nop()

	snapshots := NewSnapshotFile(dir, false, logger)
	require.NoError(t, snapshots.Append(ctx, sampleSnapshot(ts(1, 1, 0, 5), 10000)))
	require.NoError(t, snapshots.Append(ctx, sampleSnapshot(ts(1, 1, 0, 6), 10050)))

	opens := NewOpenPositionFile(dir, logger)
	require.NoError(t, opens.Append(ctx, samplePosition("t1", ts(1, 1, 0, 5))))

	trades := NewTradeLog(dir, false, logger)
	win := sampleEvent("w1", ts(1, 1, 0, 5))
	require.NoError(t, trades.Append(ctx, win))
	loss := sampleEvent("l1", ts(1, 1, 0, 6))
	loss.IndPnL = -12.5
	zero := 0
	loss.Winner = &zero
	require.NoError(t, trades.Append(ctx, loss))
	open := sampleEvent("o1", ts(1, 1, 0, 6)) // opens have no winner flag
	open.Winner = nil
	require.NoError(t, trades.Append(ctx, open))

	cp, err := LoadCheckpoint(ctx, dir, logger)
	require.NoError(t, err)
	assert.Equal(t, ts(1, 1, 0, 6), cp.Snapshot.Timestamp)
	assert.Equal(t, 10050.0, cp.Snapshot.TotalBankroll)
	require.Len(t, cp.OpenPositions, 1)
	assert.Equal(t, "t1", cp.OpenPositions[0].TradeID)
	assert.Equal(t, 1, cp.Wins)
	assert.Equal(t, 1, cp.Losses)
}

func TestLoadCheckpoint_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis_202401.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,total_bankroll\nnot-a-date,oops\n"), 0o644))

	_, err := LoadCheckpoint(context.Background(), dir, zerolog.Nop())
	assert.ErrorIs(t, err, storage.ErrCorruptCheckpoint)
}

func TestLoadCheckpoint_HeaderOnlySnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis_202401.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,total_bankroll\n"), 0o644))

	_, err := LoadCheckpoint(context.Background(), dir, zerolog.Nop())
	assert.ErrorIs(t, err, storage.ErrCorruptCheckpoint)
}
