package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
	"fib-pattern-lab/internal/storage/postgres"
)

func testEvent(id string, orderType domain.OrderType, tradeDate time.Time) *domain.TradeEvent {
	return &domain.TradeEvent{
		TradeID:            id,
		ConfirmDate:        tradeDate.Add(-time.Hour),
		ActiveDate:         ptr(tradeDate.Add(-10 * time.Minute)),
		TradeDate:          tradeDate,
		OrderType:          orderType,
		Fee:                0.30,
		Price:              100,
		UnitsTraded:        10,
		CostBasisChange:    "0.0000 -> 100.0000",
		TotalLongPosition:  10,
		TotalShortPosition: 0,
		Balance:            10,
		Timeframe:          "1h",
		Name:               "1h long(ab...cd)",
	}
}

func TestTradeEventStore_AppendAndAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeEventStore(pool)
	ctx := context.Background()

	openAt := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	closeAt := openAt.Add(2 * time.Hour)

	open := testEvent("t1", domain.OrderOpenLong, openAt)
	require.NoError(t, store.Append(ctx, open))

	// The same trade id appears again for the close leg.
	closeEvent := testEvent("t1", domain.OrderCloseLong, closeAt)
	closeEvent.Price = 110
	closeEvent.UnitsTraded = -10
	closeEvent.Fee = 0.33
	closeEvent.RealizedPnL = ptr(100.0)
	closeEvent.TotalLongPosition = 0
	closeEvent.Balance = 0
	closeEvent.IndPnL = 99.37
	closeEvent.Winner = ptr(1)
	closeEvent.CompletedDate = ptr(closeAt)
	require.NoError(t, store.Append(ctx, closeEvent))

	got, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, domain.OrderOpenLong, got[0].OrderType)
	assert.True(t, got[0].TradeDate.Equal(openAt))
	assert.Equal(t, 10.0, got[0].UnitsTraded)
	assert.Equal(t, "0.0000 -> 100.0000", got[0].CostBasisChange)
	assert.Nil(t, got[0].RealizedPnL)
	assert.Nil(t, got[0].Winner)
	require.NotNil(t, got[0].ActiveDate)
	assert.True(t, got[0].ActiveDate.Equal(openAt.Add(-10*time.Minute)))

	assert.Equal(t, domain.OrderCloseLong, got[1].OrderType)
	assert.Equal(t, -10.0, got[1].UnitsTraded)
	require.NotNil(t, got[1].RealizedPnL)
	assert.Equal(t, 100.0, *got[1].RealizedPnL)
	require.NotNil(t, got[1].Winner)
	assert.Equal(t, 1, *got[1].Winner)
	assert.Equal(t, 99.37, got[1].IndPnL)
}

func TestTradeEventStore_AppendInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeEventStore(pool)
	ctx := context.Background()

	err := store.Append(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Append(ctx, &domain.TradeEvent{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTradeEventStore_AllEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := postgres.NewTradeEventStore(pool).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
