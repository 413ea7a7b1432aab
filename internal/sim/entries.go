package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/config"
	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/ledger"
	"fib-pattern-lab/internal/observability"
	"fib-pattern-lab/internal/sizing"
	"fib-pattern-lab/internal/timeframe"
)

// EntryProcessor decides which instances activating in the current minute
// become live positions, and opens fib re-entry positions on already-held
// trades. It mutates the ledger and the open-position set and journals
// every open.
type EntryProcessor struct {
	cfg      config.Config
	sizer    sizing.Sizer
	runCtx   *RunContext
	journals Journals
	logger   zerolog.Logger
	metrics  *observability.Metrics

	// newID is injectable for deterministic tests.
	newID func() string
}

// NewEntryProcessor builds the entry side of the engine.
func NewEntryProcessor(cfg config.Config, rc *RunContext, journals Journals, logger zerolog.Logger) *EntryProcessor {
	return &EntryProcessor{
		cfg:      cfg,
		sizer:    cfg.Sizer(),
		runCtx:   rc,
		journals: journals,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// ProcessMinute runs the entry pass for one candle: filter the activating
// instances, open the qualifying ones, then run the fib re-entry sub-pass
// over the open set. Returns the number of positions opened.
func (ep *EntryProcessor) ProcessMinute(ctx context.Context, candle domain.Candle, activating []*domain.Instance, led *ledger.Ledger, positions *PositionSet) int {
	opened := 0
	for _, inst := range activating {
		if !ep.qualifies(inst) {
			continue
		}
		if ep.atPositionCap(positions) {
			continue
		}
		if inst.Entry <= 0 {
			ep.logger.Warn().Str("instance_id", inst.InstanceID).Float64("entry", inst.Entry).
				Msg("skipping instance with non-positive entry price")
			continue
		}

		pending, trigger := ep.drawdownFactors(inst)
		id := ep.newID()
		pos := &domain.OpenPosition{
			TradeID:       id,
			InstanceID:    inst.InstanceID,
			Name:          fmt.Sprintf("%s %s(%s...%s)", inst.Timeframe, inst.Direction, id[:4], id[len(id)-4:]),
			Timeframe:     inst.Timeframe,
			Direction:     inst.Direction,
			OpenPrice:     inst.Entry,
			TargetPrice:   &inst.Target,
			ConfirmDate:   inst.ConfirmDate,
			ActiveDate:    inst.ActiveDate,
			CompletedDate: inst.CompletedDate,
			Fib0_5:        inst.Fib0_5,
			Fib0_0:        inst.Fib0_0,
			FibNeg0_5:     inst.FibNeg0_5,
			FibNeg1_0:     inst.FibNeg1_0,
			ExtremePrice:     inst.ExtremePrice,
			ExtremePriceDate: inst.ExtremePriceDate,
			AMPDPending:      pending,
			AMPDTrigger:      trigger,
		}
		if ep.open(ctx, candle.Timestamp, pos, led, positions) {
			opened++
		}
	}

	opened += ep.fibReentryPass(ctx, candle, led, positions)
	return opened
}

// qualifies applies the situation, pending-age and trigger-trade filters.
func (ep *EntryProcessor) qualifies(inst *domain.Instance) bool {
	if !ep.cfg.SituationAllowed(inst.Situation) {
		return false
	}

	if ep.cfg.UseMinPendingAge || ep.cfg.UseMaxPendingAge {
		age := inst.PendingMinutes()
		if ep.cfg.PendingAgeInCandles {
			tfMinutes, err := timeframe.Minutes(inst.Timeframe)
			if err != nil {
				ep.logger.Warn().Err(err).Str("instance_id", inst.InstanceID).
					Msg("skipping instance with unparseable timeframe")
				return false
			}
			age /= float64(tfMinutes)
		}
		if ep.cfg.UseMinPendingAge && age < ep.cfg.MinPendingAge {
			return false
		}
		if ep.cfg.UseMaxPendingAge && age > ep.cfg.MaxPendingAge {
			return false
		}
	}

	if ep.runCtx != nil && !ep.runCtx.HasTrigger(inst) {
		return false
	}
	return true
}

func (ep *EntryProcessor) atPositionCap(positions *PositionSet) bool {
	cap := ep.cfg.MaxOpenPositions()
	return cap > 0 && positions.Len() >= cap
}

// drawdownFactors computes the normalized pending-time and trigger-proximity
// factors captured at entry for the advanced drawdown stop.
func (ep *EntryProcessor) drawdownFactors(inst *domain.Instance) (pending, trigger float64) {
	if !ep.cfg.UseAdvancedDrawdown {
		return 0, 0
	}
	if ep.cfg.AMPDUsePendingTime {
		pending = clamp01(inst.PendingMinutes() / (ep.cfg.AMPDPendingHighDays * 24 * 60))
	}
	if ep.cfg.AMPDUseTriggerTime && ep.runCtx != nil {
		if since, ok := ep.runCtx.NearestTriggerBefore(inst); ok {
			trigger = clamp01((ep.cfg.AMPDTriggerHighMins - since) / ep.cfg.AMPDTriggerHighMins)
		}
	}
	return pending, trigger
}

// fibReentryPass opens additional positions at fib levels reached this
// minute by already-open positions. Fib positions never trigger further
// re-entries.
func (ep *EntryProcessor) fibReentryPass(ctx context.Context, candle domain.Candle, led *ledger.Ledger, positions *PositionSet) int {
	opened := 0
	for _, level := range domain.FibLevels {
		if !ep.cfg.EntryOnFib(level) {
			continue
		}
		for _, parent := range positions.Snapshot() {
			if parent.FibEntry {
				continue
			}
			fp := parent.Fib(level)
			if !fp.Set() || !domain.SameMinute(*fp.DateReached, candle.Timestamp) {
				continue
			}
			id := fmt.Sprintf("%s_fib%s", parent.TradeID, level)
			if positions.Has(id) {
				continue
			}
			if ep.atPositionCap(positions) {
				continue
			}

			pos := &domain.OpenPosition{
				TradeID:       id,
				InstanceID:    parent.InstanceID,
				Name:          fmt.Sprintf("%s %s Fib%s", parent.Timeframe, parent.Direction, level),
				Timeframe:     parent.Timeframe,
				Direction:     parent.Direction,
				OpenPrice:     *fp.Price,
				TargetPrice:   parent.TargetPrice,
				ConfirmDate:   parent.ConfirmDate,
				ActiveDate:    parent.ActiveDate,
				CompletedDate: parent.CompletedDate,
				Fib0_5:        parent.Fib0_5,
				Fib0_0:        parent.Fib0_0,
				FibNeg0_5:     parent.FibNeg0_5,
				FibNeg1_0:     parent.FibNeg1_0,
				ExtremePrice:     parent.ExtremePrice,
				ExtremePriceDate: parent.ExtremePriceDate,
				AMPDPending:      parent.AMPDPending,
				AMPDTrigger:      parent.AMPDTrigger,
				FibEntry:         true,
			}
			if ep.open(ctx, candle.Timestamp, pos, led, positions) {
				opened++
			}
		}
	}
	return opened
}

// open sizes the position, applies the ledger entry and journals the event.
// Journal failures are warnings; the in-memory state is authoritative.
func (ep *EntryProcessor) open(ctx context.Context, ts time.Time, pos *domain.OpenPosition, led *ledger.Ledger, positions *PositionSet) bool {
	size, err := ep.sizer.Size(pos.OpenPrice, led.CashOnHand)
	if err != nil {
		ep.logger.Error().Err(err).Str("trade_id", pos.TradeID).Msg("position sizing failed")
		return false
	}

	pos.Size = size
	pos.OpenedAt = domain.Minute(ts)
	pos.OpenFee = pos.OpenPrice * size * ep.cfg.FeeRate
	pos.OpenBankroll = led.TotalBankroll()

	oldBasis, newBasis := led.ApplyEntry(pos.Direction, pos.OpenPrice, size, pos.OpenFee)

	if err := positions.Add(pos); err != nil {
		ep.logger.Error().Err(err).Str("trade_id", pos.TradeID).Msg("dropping duplicate entry")
		return false
	}

	units := size
	orderType := domain.OrderOpenLong
	if pos.Direction == domain.DirectionShort {
		units = -size
		orderType = domain.OrderOpenShort
	}

	event := &domain.TradeEvent{
		TradeID:            pos.TradeID,
		ConfirmDate:        pos.ConfirmDate,
		ActiveDate:         pos.ActiveDate,
		TradeDate:          pos.OpenedAt,
		CompletedDate:      pos.CompletedDate,
		OrderType:          orderType,
		Fee:                pos.OpenFee,
		Price:              pos.OpenPrice,
		UnitsTraded:        units,
		CostBasisChange:    fmt.Sprintf("%.4f -> %.4f", oldBasis, newBasis),
		TotalLongPosition:  led.TotalLong,
		TotalShortPosition: led.TotalShort,
		Balance:            led.TotalLong - led.TotalShort,
		Timeframe:          pos.Timeframe,
		Name:               pos.Name,
	}

	if err := ep.journals.Trades.Append(ctx, event); err != nil {
		ep.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("trade journal append failed, record dropped")
	}
	if err := ep.journals.Opens.Append(ctx, pos); err != nil {
		ep.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("open-positions journal append failed")
	}
	if ep.journals.MirrorTrades != nil {
		if err := ep.journals.MirrorTrades.Append(ctx, event); err != nil {
			ep.logger.Warn().Err(err).Str("trade_id", pos.TradeID).Msg("trade mirror append failed")
		}
	}

	if ep.metrics != nil {
		ep.metrics.PositionsOpened.WithLabelValues(string(pos.Direction)).Inc()
	}

	ep.logger.Debug().
		Str("trade_id", pos.TradeID).
		Str("direction", string(pos.Direction)).
		Float64("price", pos.OpenPrice).
		Float64("size", size).
		Msg("opened position")
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
