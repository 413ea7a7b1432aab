package sim

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/config"
	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/ledger"
	"fib-pattern-lab/internal/observability"
)

// Counters accumulates win/loss totals across the run.
type Counters struct {
	Wins   int
	Losses int
}

// exitDecision is the outcome of evaluating one position against the exit
// rules for one minute.
type exitDecision struct {
	price  float64
	reason string
}

// ExitProcessor closes open positions whose exit conditions fire in the
// current minute. Conditions are evaluated in fixed priority order and the
// first match wins: advanced drawdown stop, static drawdown stop, fib-level
// stop, static time capitulation, target completion.
type ExitProcessor struct {
	cfg      config.Config
	journals Journals
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewExitProcessor builds the exit side of the engine.
func NewExitProcessor(cfg config.Config, journals Journals, logger zerolog.Logger) *ExitProcessor {
	return &ExitProcessor{cfg: cfg, journals: journals, logger: logger}
}

// ProcessMinute runs the exit pass for one candle. Returns the number of
// positions closed.
func (xp *ExitProcessor) ProcessMinute(ctx context.Context, candle domain.Candle, led *ledger.Ledger, positions *PositionSet, counters *Counters) int {
	closed := 0
	for _, pos := range positions.Snapshot() {
		decision, ok := xp.evaluate(candle, pos, led)
		if !ok {
			continue
		}
		xp.close(ctx, candle.Timestamp, pos, decision, led, positions, counters)
		closed++
	}
	return closed
}

func (xp *ExitProcessor) evaluate(candle domain.Candle, pos *domain.OpenPosition, led *ledger.Ledger) (exitDecision, bool) {
	if xp.cfg.UseAdvancedDrawdown {
		scale := xp.drawdownScale(pos)
		pct := xp.cfg.AMPDPercentBase + scale*(xp.cfg.AMPDPercentMax-xp.cfg.AMPDPercentBase)
		if price, hit := xp.drawdownStop(candle, pos, pct); hit {
			return exitDecision{price: price, reason: domain.CloseReasonAdvancedDrawdown}, true
		}
	}

	if xp.cfg.UseStaticDrawdown {
		if price, hit := xp.drawdownStop(candle, pos, xp.cfg.StaticDrawdownPercent); hit {
			return exitDecision{price: price, reason: domain.CloseReasonStaticDrawdown}, true
		}
	}

	for _, level := range domain.FibLevels {
		if !xp.cfg.ExitOnFib(level) {
			continue
		}
		fp := pos.Fib(level)
		if fp.Set() && domain.SameMinute(*fp.DateReached, candle.Timestamp) {
			return exitDecision{price: *fp.Price, reason: domain.FibCloseReason(level)}, true
		}
	}

	if xp.cfg.UseStaticTimeCapit {
		duration := time.Duration(xp.cfg.StaticTimeCapitHours * float64(time.Hour))
		if candle.Timestamp.Sub(pos.OpenedAt) >= duration {
			return exitDecision{price: candle.Close, reason: domain.CloseReasonStaticTimeCapit}, true
		}
	}

	if pos.CompletedDate != nil && pos.TargetPrice != nil &&
		domain.SameMinute(*pos.CompletedDate, candle.Timestamp) {
		return exitDecision{price: *pos.TargetPrice}, true
	}

	return exitDecision{}, false
}

// drawdownScale blends the position's pending-time and trigger-proximity
// factors into one [0,1] allowance scale.
func (xp *ExitProcessor) drawdownScale(pos *domain.OpenPosition) float64 {
	usePending := xp.cfg.AMPDUsePendingTime
	useTrigger := xp.cfg.AMPDUseTriggerTime
	switch {
	case usePending && useTrigger:
		w := xp.cfg.AMPDPendingWeight / 100
		return clamp01(pos.AMPDPending*w + pos.AMPDTrigger*(1-w))
	case usePending:
		return pos.AMPDPending
	case useTrigger:
		return pos.AMPDTrigger
	default:
		return 0
	}
}

// drawdownStop checks the position's worst observable loss this minute
// against an allowed percentage of the bankroll held when it opened. The
// fill price is the one implied by the allowance, not the observed extreme,
// so stop-outs are reproducible regardless of how far the excursion went.
func (xp *ExitProcessor) drawdownStop(candle domain.Candle, pos *domain.OpenPosition, allowedPct float64) (float64, bool) {
	if pos.Size <= 0 {
		return 0, false
	}
	allowedLoss := allowedPct / 100 * pos.OpenBankroll

	observed := xp.observedExtreme(candle, pos)
	var loss, fill float64
	if pos.Direction == domain.DirectionLong {
		loss = (pos.OpenPrice - observed) * pos.Size
		fill = pos.OpenPrice - allowedLoss/pos.Size
	} else {
		loss = (observed - pos.OpenPrice) * pos.Size
		fill = pos.OpenPrice + allowedLoss/pos.Size
	}
	if loss <= allowedLoss {
		return 0, false
	}
	return fill, true
}

// observedExtreme picks the worst price seen this minute: the precomputed
// extreme when the position activated and completed inside the same minute
// (the live candle cannot resolve the path), the candle extreme otherwise.
func (xp *ExitProcessor) observedExtreme(candle domain.Candle, pos *domain.OpenPosition) float64 {
	if pos.ExtremePrice != nil && pos.ActiveDate != nil && pos.CompletedDate != nil &&
		domain.SameMinute(*pos.ActiveDate, *pos.CompletedDate) {
		return *pos.ExtremePrice
	}
	if pos.Direction == domain.DirectionLong {
		return candle.Low
	}
	return candle.High
}

// close applies the ledger exit, journals the event and the closed record,
// and updates the win/loss counters.
func (xp *ExitProcessor) close(ctx context.Context, ts time.Time, pos *domain.OpenPosition, decision exitDecision, led *ledger.Ledger, positions *PositionSet, counters *Counters) {
	closeFee := decision.price * pos.Size * xp.cfg.FeeRate
	realized := led.ApplyClose(pos.Direction, decision.price, pos.Size, closeFee)

	var gross float64
	if pos.Direction == domain.DirectionLong {
		gross = (decision.price - pos.OpenPrice) * pos.Size
	} else {
		gross = (pos.OpenPrice - decision.price) * pos.Size
	}
	indPnL := gross - pos.OpenFee - closeFee

	winner := 0
	if indPnL > 0 {
		winner = 1
		counters.Wins++
	} else if indPnL < 0 {
		counters.Losses++
	}

	positions.Remove(pos.TradeID)

	units := -pos.Size
	orderType := domain.OrderCloseLong
	if pos.Direction == domain.DirectionShort {
		units = pos.Size
		orderType = domain.OrderCloseShort
	}

	event := &domain.TradeEvent{
		TradeID:            pos.TradeID,
		ConfirmDate:        pos.ConfirmDate,
		ActiveDate:         pos.ActiveDate,
		TradeDate:          domain.Minute(ts),
		CompletedDate:      pos.CompletedDate,
		OrderType:          orderType,
		Fee:                closeFee,
		Price:              decision.price,
		UnitsTraded:        units,
		RealizedPnL:        &realized,
		TotalLongPosition:  led.TotalLong,
		TotalShortPosition: led.TotalShort,
		Balance:            led.TotalLong - led.TotalShort,
		IndPnL:             indPnL,
		Timeframe:          pos.Timeframe,
		Name:               pos.Name,
		Winner:             &winner,
		CloseReason:        decision.reason,
	}

	record := &domain.ClosedPosition{
		OpenPosition: *pos,
		ClosePrice:   decision.price,
		ClosedAt:     domain.Minute(ts),
		IndPnL:       indPnL,
		Winner:       winner,
		CloseReason:  decision.reason,
	}

	if err := xp.journals.Trades.Append(ctx, event); err != nil {
		xp.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("trade journal append failed, record dropped")
	}
	if err := xp.journals.Opens.Remove(ctx, pos.TradeID); err != nil {
		xp.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("open-positions journal remove failed")
	}
	if err := xp.journals.Closed.Append(ctx, record); err != nil {
		xp.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("closed-positions journal append failed")
	}
	if xp.journals.MirrorTrades != nil {
		if err := xp.journals.MirrorTrades.Append(ctx, event); err != nil {
			xp.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("trade mirror append failed")
		}
	}
	if xp.journals.MirrorClosed != nil {
		if err := xp.journals.MirrorClosed.Append(ctx, record); err != nil {
			xp.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("closed mirror append failed")
		}
	}

	if xp.metrics != nil {
		reason := decision.reason
		if reason == "" {
			reason = "target"
		}
		xp.metrics.PositionsClosed.WithLabelValues(reason).Inc()
	}

	xp.logger.Debug().
		Str("trade_id", pos.TradeID).
		Float64("price", decision.price).
		Float64("ind_pnl", indPnL).
		Str("reason", decision.reason).
		Msg("closed position")
}
