package domain

import "time"

// OrderType tags a trade event as an open or close on either side.
type OrderType string

// Order type constants. The strings appear verbatim in trades_all.csv.
const (
	OrderOpenLong   OrderType = "open long"
	OrderOpenShort  OrderType = "open short"
	OrderCloseLong  OrderType = "close long"
	OrderCloseShort OrderType = "close short"
)

// IsClose reports whether the order type is a position close.
func (o OrderType) IsClose() bool {
	return o == OrderCloseLong || o == OrderCloseShort
}

// TradeEvent is one append-only entry/exit record. It carries a full
// snapshot of the portfolio aggregates at the instant it was written so the
// log is auditable and resumable on its own.
type TradeEvent struct {
	TradeID       string
	ConfirmDate   time.Time
	ActiveDate    *time.Time
	TradeDate     time.Time // the simulated minute the event occurred
	CompletedDate *time.Time
	OrderType     OrderType

	Fee         float64
	Price       float64
	UnitsTraded float64 // signed: +long units in, -long units out, shorts inverted

	CostBasisChange string   // "old -> new", entries only
	RealizedPnL     *float64 // against the side's cost basis, exits only

	TotalLongPosition  float64
	TotalShortPosition float64
	Balance            float64 // long minus short aggregate

	IndPnL    float64 // against this trade's own open price, exits only
	Timeframe string
	Name      string

	Winner      *int // 1/0 on exits, nil on entries
	CloseReason string
}

// MinuteSnapshot is one per-minute portfolio state record, appended to the
// monthly analysis logs and used as the resume checkpoint.
type MinuteSnapshot struct {
	Timestamp          time.Time
	TotalBankroll      float64
	CashOnHand         float64
	TotalLongPosition  float64
	LongCostBasis      float64
	LongPnL            float64
	TotalShortPosition float64
	ShortCostBasis     float64
	ShortPnL           float64
	Close              float64
}
