package csvlog

import (
	"fmt"
	"strconv"
	"time"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/marketdata"
)

// Column layouts. Field names here are the external contract of the journal
// files; everything in-process uses the typed domain structs.

var tradeHeader = []string{
	"trade_id", "confirm_date", "active_date", "trade_date", "completed_date",
	"order_type", "trade_fee", "price", "units_traded", "cost_basis_change",
	"realized_PnL", "total_long_position", "total_short_position", "balance",
	"ind_PnL", "timeframe", "Name", "winner", "loss_reason",
}

var openPositionHeader = []string{
	"trade_id", "instance_id", "Name", "timeframe", "direction",
	"open_price", "position_size", "target_price", "open_fee", "opened_at",
	"confirm_date", "active_date", "completed_date",
	"fib0.5", "DateReached0.5", "fib0.0", "DateReached0.0",
	"fib-0.5", "DateReached-0.5", "fib-1.0", "DateReached-1.0",
	"extreme_price", "extreme_price_date",
	"open_bankroll", "ampd_p_value", "ampd_t_value", "fib_entry",
}

var closedPositionHeader = append(append([]string{}, openPositionHeader...),
	"close_price", "closed_at", "ind_PnL", "winner", "loss_reason",
)

var snapshotHeader = []string{
	"timestamp", "total_bankroll", "cash_on_hand",
	"total_long_position", "long_cost_basis", "long_pnl",
	"total_short_position", "short_cost_basis", "short_pnl", "close",
}

// Numeric fields are stored at full precision so a resumed run reconstructs
// exactly the state a continuous run would hold.
func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtOptF(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtF(*v)
}

func fmtOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func encodeTradeEvent(e *domain.TradeEvent) []string {
	return []string{
		e.TradeID,
		marketdata.FormatTimestamp(e.ConfirmDate),
		marketdata.FormatOptionalTimestamp(e.ActiveDate),
		marketdata.FormatTimestamp(e.TradeDate),
		marketdata.FormatOptionalTimestamp(e.CompletedDate),
		string(e.OrderType),
		fmtF(e.Fee),
		fmtF(e.Price),
		fmtF(e.UnitsTraded),
		e.CostBasisChange,
		fmtOptF(e.RealizedPnL),
		fmtF(e.TotalLongPosition),
		fmtF(e.TotalShortPosition),
		fmtF(e.Balance),
		fmtF(e.IndPnL),
		e.Timeframe,
		e.Name,
		fmtOptInt(e.Winner),
		e.CloseReason,
	}
}

func decodeTradeEvent(record []string, col map[string]int) (*domain.TradeEvent, error) {
	confirm, err := marketdata.ParseDate(get(record, col, "confirm_date"))
	if err != nil {
		return nil, fmt.Errorf("trade event confirm_date: %w", err)
	}
	tradeDate, err := marketdata.ParseTimestamp(get(record, col, "trade_date"))
	if err != nil {
		return nil, fmt.Errorf("trade event trade_date: %w", err)
	}
	active, err := marketdata.ParseOptionalDate(get(record, col, "active_date"))
	if err != nil {
		return nil, fmt.Errorf("trade event active_date: %w", err)
	}
	completed, err := marketdata.ParseOptionalDate(get(record, col, "completed_date"))
	if err != nil {
		return nil, fmt.Errorf("trade event completed_date: %w", err)
	}

	e := &domain.TradeEvent{
		TradeID:         get(record, col, "trade_id"),
		ConfirmDate:     confirm,
		ActiveDate:      active,
		TradeDate:       tradeDate,
		CompletedDate:   completed,
		OrderType:       domain.OrderType(get(record, col, "order_type")),
		CostBasisChange: get(record, col, "cost_basis_change"),
		Timeframe:       get(record, col, "timeframe"),
		Name:            get(record, col, "Name"),
		CloseReason:     get(record, col, "loss_reason"),
	}

	if e.Fee, err = parseF(record, col, "trade_fee"); err != nil {
		return nil, err
	}
	if e.Price, err = parseF(record, col, "price"); err != nil {
		return nil, err
	}
	if e.UnitsTraded, err = parseF(record, col, "units_traded"); err != nil {
		return nil, err
	}
	if e.TotalLongPosition, err = parseF(record, col, "total_long_position"); err != nil {
		return nil, err
	}
	if e.TotalShortPosition, err = parseF(record, col, "total_short_position"); err != nil {
		return nil, err
	}
	if e.Balance, err = parseF(record, col, "balance"); err != nil {
		return nil, err
	}
	if e.IndPnL, err = parseF(record, col, "ind_PnL"); err != nil {
		return nil, err
	}
	e.RealizedPnL = parseOptF(get(record, col, "realized_PnL"))
	e.Winner = parseOptInt(get(record, col, "winner"))
	return e, nil
}

func encodeOpenPosition(p *domain.OpenPosition) []string {
	return []string{
		p.TradeID,
		p.InstanceID,
		p.Name,
		p.Timeframe,
		string(p.Direction),
		fmtF(p.OpenPrice),
		fmtF(p.Size),
		fmtOptF(p.TargetPrice),
		fmtF(p.OpenFee),
		marketdata.FormatTimestamp(p.OpenedAt),
		marketdata.FormatTimestamp(p.ConfirmDate),
		marketdata.FormatOptionalTimestamp(p.ActiveDate),
		marketdata.FormatOptionalTimestamp(p.CompletedDate),
		fmtOptF(p.Fib0_5.Price), marketdata.FormatOptionalTimestamp(p.Fib0_5.DateReached),
		fmtOptF(p.Fib0_0.Price), marketdata.FormatOptionalTimestamp(p.Fib0_0.DateReached),
		fmtOptF(p.FibNeg0_5.Price), marketdata.FormatOptionalTimestamp(p.FibNeg0_5.DateReached),
		fmtOptF(p.FibNeg1_0.Price), marketdata.FormatOptionalTimestamp(p.FibNeg1_0.DateReached),
		fmtOptF(p.ExtremePrice),
		marketdata.FormatOptionalTimestamp(p.ExtremePriceDate),
		fmtF(p.OpenBankroll),
		fmtF(p.AMPDPending),
		fmtF(p.AMPDTrigger),
		fmtBool(p.FibEntry),
	}
}

func decodeOpenPosition(record []string, col map[string]int) (*domain.OpenPosition, error) {
	id := get(record, col, "trade_id")
	if id == "" {
		return nil, fmt.Errorf("open position: missing trade_id")
	}

	dir, err := domain.ParseDirection(get(record, col, "direction"))
	if err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	openedAt, err := marketdata.ParseTimestamp(get(record, col, "opened_at"))
	if err != nil {
		return nil, fmt.Errorf("open position %s: opened_at: %w", id, err)
	}
	confirm, err := marketdata.ParseDate(get(record, col, "confirm_date"))
	if err != nil {
		return nil, fmt.Errorf("open position %s: confirm_date: %w", id, err)
	}
	active, err := marketdata.ParseOptionalDate(get(record, col, "active_date"))
	if err != nil {
		return nil, fmt.Errorf("open position %s: active_date: %w", id, err)
	}
	completed, err := marketdata.ParseOptionalDate(get(record, col, "completed_date"))
	if err != nil {
		return nil, fmt.Errorf("open position %s: completed_date: %w", id, err)
	}

	p := &domain.OpenPosition{
		TradeID:       id,
		InstanceID:    get(record, col, "instance_id"),
		Name:          get(record, col, "Name"),
		Timeframe:     get(record, col, "timeframe"),
		Direction:     dir,
		TargetPrice:   parseOptF(get(record, col, "target_price")),
		OpenedAt:      openedAt,
		ConfirmDate:   confirm,
		ActiveDate:    active,
		CompletedDate: completed,
		FibEntry:      get(record, col, "fib_entry") == "true",
	}

	if p.OpenPrice, err = parseF(record, col, "open_price"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	if p.Size, err = parseF(record, col, "position_size"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	if p.OpenFee, err = parseF(record, col, "open_fee"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	if p.OpenBankroll, err = parseF(record, col, "open_bankroll"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	if p.AMPDPending, err = parseF(record, col, "ampd_p_value"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}
	if p.AMPDTrigger, err = parseF(record, col, "ampd_t_value"); err != nil {
		return nil, fmt.Errorf("open position %s: %w", id, err)
	}

	p.Fib0_5 = decodeFibPoint(record, col, "fib0.5", "DateReached0.5")
	p.Fib0_0 = decodeFibPoint(record, col, "fib0.0", "DateReached0.0")
	p.FibNeg0_5 = decodeFibPoint(record, col, "fib-0.5", "DateReached-0.5")
	p.FibNeg1_0 = decodeFibPoint(record, col, "fib-1.0", "DateReached-1.0")
	p.ExtremePrice = parseOptF(get(record, col, "extreme_price"))
	p.ExtremePriceDate = parseOptDate(get(record, col, "extreme_price_date"))

	return p, nil
}

func encodeClosedPosition(p *domain.ClosedPosition) []string {
	return append(encodeOpenPosition(&p.OpenPosition),
		fmtF(p.ClosePrice),
		marketdata.FormatTimestamp(p.ClosedAt),
		fmtF(p.IndPnL),
		strconv.Itoa(p.Winner),
		p.CloseReason,
	)
}

func encodeSnapshot(s *domain.MinuteSnapshot) []string {
	return []string{
		marketdata.FormatTimestamp(s.Timestamp),
		fmtF(s.TotalBankroll),
		fmtF(s.CashOnHand),
		fmtF(s.TotalLongPosition),
		fmtF(s.LongCostBasis),
		fmtF(s.LongPnL),
		fmtF(s.TotalShortPosition),
		fmtF(s.ShortCostBasis),
		fmtF(s.ShortPnL),
		fmtF(s.Close),
	}
}

func decodeSnapshot(record []string, col map[string]int) (*domain.MinuteSnapshot, error) {
	ts, err := marketdata.ParseTimestamp(get(record, col, "timestamp"))
	if err != nil {
		return nil, fmt.Errorf("snapshot timestamp: %w", err)
	}
	s := &domain.MinuteSnapshot{Timestamp: ts}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"total_bankroll", &s.TotalBankroll},
		{"cash_on_hand", &s.CashOnHand},
		{"total_long_position", &s.TotalLongPosition},
		{"long_cost_basis", &s.LongCostBasis},
		{"long_pnl", &s.LongPnL},
		{"total_short_position", &s.TotalShortPosition},
		{"short_cost_basis", &s.ShortCostBasis},
		{"short_pnl", &s.ShortPnL},
		{"close", &s.Close},
	} {
		if *f.dst, err = parseF(record, col, f.name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeFibPoint(record []string, col map[string]int, priceCol, dateCol string) domain.FibPoint {
	return domain.FibPoint{
		Price:       parseOptF(get(record, col, priceCol)),
		DateReached: parseOptDate(get(record, col, dateCol)),
	}
}

func get(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseF(record []string, col map[string]int, name string) (float64, error) {
	s := get(record, col, name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func parseOptF(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptDate(s string) *time.Time {
	t, err := marketdata.ParseOptionalDate(s)
	if err != nil {
		return nil
	}
	return t
}
