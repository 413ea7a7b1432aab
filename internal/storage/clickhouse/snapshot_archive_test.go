package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage/clickhouse"
)

func snapshotAt(minute int, bankroll float64) *domain.MinuteSnapshot {
	return &domain.MinuteSnapshot{
		Timestamp:         time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC),
		TotalBankroll:     bankroll,
		CashOnHand:        bankroll - 1000,
		TotalLongPosition: 10,
		LongCostBasis:     100,
		LongPnL:           50,
		Close:             105,
	}
}

func TestSnapshotArchive_InsertBulkAndGetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	archive := clickhouse.NewSnapshotArchive(conn)
	ctx := context.Background()

	// Inserted out of order; the range query must come back sorted.
	batch := []*domain.MinuteSnapshot{
		snapshotAt(3, 10003),
		snapshotAt(1, 10001),
		snapshotAt(2, 10002),
		snapshotAt(10, 10010),
	}
	require.NoError(t, archive.InsertBulk(ctx, batch))

	got, err := archive.GetByTimeRange(ctx,
		time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, wantBankroll := range []float64{10001, 10002, 10003} {
		assert.Equal(t, wantBankroll, got[i].TotalBankroll)
		assert.Equal(t, wantBankroll-1000, got[i].CashOnHand)
	}
	assert.True(t, got[0].Timestamp.Equal(time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, 10.0, got[0].TotalLongPosition)
	assert.Equal(t, 100.0, got[0].LongCostBasis)
	assert.Equal(t, 105.0, got[0].Close)
}

func TestSnapshotArchive_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	archive := clickhouse.NewSnapshotArchive(conn)
	require.NoError(t, archive.InsertBulk(context.Background(), nil))

	got, err := archive.GetByTimeRange(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotArchive_RangeExcludesOutside(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	archive := clickhouse.NewSnapshotArchive(conn)
	ctx := context.Background()

	require.NoError(t, archive.InsertBulk(ctx, []*domain.MinuteSnapshot{
		snapshotAt(0, 10000),
		snapshotAt(5, 10005),
		snapshotAt(59, 10059),
	}))

	// Bounds are inclusive on both ends.
	got, err := archive.GetByTimeRange(ctx,
		time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 59, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10005.0, got[0].TotalBankroll)
	assert.Equal(t, 10059.0, got[1].TotalBankroll)
}
