package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// ClosedPositionStore implements storage.ClosedPositionLog using PostgreSQL.
// trade_id is the primary key; a position closes exactly once.
type ClosedPositionStore struct {
	pool *Pool
}

// NewClosedPositionStore creates a new ClosedPositionStore.
func NewClosedPositionStore(pool *Pool) *ClosedPositionStore {
	return &ClosedPositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClosedPositionLog = (*ClosedPositionStore)(nil)

const closedPositionColumns = `
	trade_id, instance_id, name, timeframe, direction,
	open_price, position_size, target_price, open_fee, opened_at,
	confirm_date, active_date, completed_date,
	fib_0_5, date_reached_0_5, fib_0_0, date_reached_0_0,
	fib_neg_0_5, date_reached_neg_0_5, fib_neg_1_0, date_reached_neg_1_0,
	extreme_price, extreme_price_date,
	open_bankroll, ampd_p_value, ampd_t_value, fib_entry,
	close_price, closed_at, ind_pnl, winner, close_reason
`

// Append records one closed position. Returns ErrDuplicateKey if the trade
// id was already closed.
func (s *ClosedPositionStore) Append(ctx context.Context, p *domain.ClosedPosition) error {
	if p == nil || p.TradeID == "" {
		return fmt.Errorf("%w: closed position must have a trade id", storage.ErrInvalidInput)
	}

	query := `
		INSERT INTO closed_positions (` + closedPositionColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23,
			$24, $25, $26, $27,
			$28, $29, $30, $31, $32
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.TradeID, p.InstanceID, p.Name, p.Timeframe, string(p.Direction),
		p.OpenPrice, p.Size, p.TargetPrice, p.OpenFee, p.OpenedAt,
		p.ConfirmDate, p.ActiveDate, p.CompletedDate,
		p.Fib0_5.Price, p.Fib0_5.DateReached, p.Fib0_0.Price, p.Fib0_0.DateReached,
		p.FibNeg0_5.Price, p.FibNeg0_5.DateReached, p.FibNeg1_0.Price, p.FibNeg1_0.DateReached,
		p.ExtremePrice, p.ExtremePriceDate,
		p.OpenBankroll, p.AMPDPending, p.AMPDTrigger, p.FibEntry,
		p.ClosePrice, p.ClosedAt, p.IndPnL, p.Winner, p.CloseReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed position: %w", err)
	}
	return nil
}

// GetByID retrieves one closed position. Returns ErrNotFound if absent.
func (s *ClosedPositionStore) GetByID(ctx context.Context, tradeID string) (*domain.ClosedPosition, error) {
	query := `
		SELECT ` + closedPositionColumns + `
		FROM closed_positions
		WHERE trade_id = $1
	`

	p, err := scanClosedPosition(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get closed position by id: %w", err)
	}
	return p, nil
}

// GetByTimeframe retrieves all closed positions for one timeframe tag, in
// close order.
func (s *ClosedPositionStore) GetByTimeframe(ctx context.Context, timeframe string) ([]*domain.ClosedPosition, error) {
	query := `
		SELECT ` + closedPositionColumns + `
		FROM closed_positions
		WHERE timeframe = $1
		ORDER BY closed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, timeframe)
	if err != nil {
		return nil, fmt.Errorf("get closed positions by timeframe: %w", err)
	}
	defer rows.Close()

	var positions []*domain.ClosedPosition
	for rows.Next() {
		p, err := scanClosedPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed position rows: %w", err)
	}
	return positions, nil
}

func scanClosedPosition(row pgx.Row) (*domain.ClosedPosition, error) {
	var (
		p         domain.ClosedPosition
		direction string
	)
	err := row.Scan(
		&p.TradeID, &p.InstanceID, &p.Name, &p.Timeframe, &direction,
		&p.OpenPrice, &p.Size, &p.TargetPrice, &p.OpenFee, &p.OpenedAt,
		&p.ConfirmDate, &p.ActiveDate, &p.CompletedDate,
		&p.Fib0_5.Price, &p.Fib0_5.DateReached, &p.Fib0_0.Price, &p.Fib0_0.DateReached,
		&p.FibNeg0_5.Price, &p.FibNeg0_5.DateReached, &p.FibNeg1_0.Price, &p.FibNeg1_0.DateReached,
		&p.ExtremePrice, &p.ExtremePriceDate,
		&p.OpenBankroll, &p.AMPDPending, &p.AMPDTrigger, &p.FibEntry,
		&p.ClosePrice, &p.ClosedAt, &p.IndPnL, &p.Winner, &p.CloseReason,
	)
	if err != nil {
		return nil, err
	}
	p.Direction = domain.Direction(direction)
	return &p, nil
}
