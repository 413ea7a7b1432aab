package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// TradeEventStore implements storage.TradeLog using PostgreSQL. A trade id
// appears at most twice: once for the open and once for the close.
type TradeEventStore struct {
	pool *Pool
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(pool *Pool) *TradeEventStore {
	return &TradeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLog = (*TradeEventStore)(nil)

const tradeEventColumns = `
	trade_id, confirm_date, active_date, trade_date, completed_date,
	order_type, fee, price, units_traded, cost_basis_change, realized_pnl,
	total_long_position, total_short_position, balance, ind_pnl,
	timeframe, name, winner, close_reason
`

// Append records one trade event.
func (s *TradeEventStore) Append(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" {
		return fmt.Errorf("%w: trade event must have a trade id", storage.ErrInvalidInput)
	}

	query := `
		INSERT INTO trade_events (` + tradeEventColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.TradeID, e.ConfirmDate, e.ActiveDate, e.TradeDate, e.CompletedDate,
		string(e.OrderType), e.Fee, e.Price, e.UnitsTraded, e.CostBasisChange, e.RealizedPnL,
		e.TotalLongPosition, e.TotalShortPosition, e.Balance, e.IndPnL,
		e.Timeframe, e.Name, e.Winner, e.CloseReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade event: %w", err)
	}
	return nil
}

// All returns every recorded event in insertion order.
func (s *TradeEventStore) All(ctx context.Context) ([]*domain.TradeEvent, error) {
	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trade events: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

func scanTradeEvents(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	var events []*domain.TradeEvent

	for rows.Next() {
		var (
			e         domain.TradeEvent
			orderType string
		)
		err := rows.Scan(
			&e.TradeID, &e.ConfirmDate, &e.ActiveDate, &e.TradeDate, &e.CompletedDate,
			&orderType, &e.Fee, &e.Price, &e.UnitsTraded, &e.CostBasisChange, &e.RealizedPnL,
			&e.TotalLongPosition, &e.TotalShortPosition, &e.Balance, &e.IndPnL,
			&e.Timeframe, &e.Name, &e.Winner, &e.CloseReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}
		e.OrderType = domain.OrderType(orderType)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return events, nil
}
