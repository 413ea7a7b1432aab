package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/config"
	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/ledger"
	"fib-pattern-lab/internal/marketdata"
	"fib-pattern-lab/internal/observability"
	"fib-pattern-lab/internal/storage/csvlog"
)

// State is the mutable simulation state owned by the loop: the ledger, the
// open-position set, win/loss counters and the last fully-processed minute.
type State struct {
	Ledger     ledger.Ledger
	Positions  *PositionSet
	Counters   Counters
	LastMinute time.Time
}

// NewState returns the fresh-run starting state.
func NewState(cfg config.Config) *State {
	return &State{
		Ledger:    ledger.New(cfg.StartingBankroll),
		Positions: NewPositionSet(),
	}
}

// RestoredState rebuilds the loop state from a resume checkpoint. The first
// processed minute will be the one after the checkpoint's timestamp.
func RestoredState(cp *csvlog.Checkpoint) (*State, error) {
	snap := cp.Snapshot
	state := &State{
		Ledger: ledger.Ledger{
			CashOnHand: snap.CashOnHand,
			TotalLong:  snap.TotalLongPosition,
			LongBasis:  snap.LongCostBasis,
			LongPnL:    snap.LongPnL,
			TotalShort: snap.TotalShortPosition,
			ShortBasis: snap.ShortCostBasis,
			ShortPnL:   snap.ShortPnL,
		},
		Positions:  NewPositionSet(),
		Counters:   Counters{Wins: cp.Wins, Losses: cp.Losses},
		LastMinute: snap.Timestamp,
	}
	if err := state.Positions.Restore(cp.OpenPositions); err != nil {
		return nil, err
	}
	return state, nil
}

// Result summarizes how a run ended.
type Result struct {
	EarlyStop        bool
	StopReason       string
	LastMinute       time.Time
	MinutesProcessed int
}

// Runner drives the minute loop: entries, then exits, then mark-to-market
// and the minute snapshot, with early-termination checks in between.
// Strictly sequential; the state is owned by the single calling goroutine.
type Runner struct {
	cfg       config.Config
	journals  Journals
	entries   *EntryProcessor
	exits     *ExitProcessor
	outputDir string
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewRunner wires the engine for one run. metrics may be nil.
func NewRunner(cfg config.Config, rc *RunContext, journals Journals, outputDir string, logger zerolog.Logger, metrics *observability.Metrics) *Runner {
	entries := NewEntryProcessor(cfg, rc, journals, logger)
	entries.metrics = metrics
	exits := NewExitProcessor(cfg, journals, logger)
	exits.metrics = metrics
	return &Runner{
		cfg:       cfg,
		journals:  journals,
		entries:   entries,
		exits:     exits,
		outputDir: outputDir,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run processes candles in chronological order, mutating state in place.
// Candles at or before state.LastMinute are skipped, which makes resumed
// runs continue exactly where the checkpoint left off. Cancellation is
// honored between minutes only; no minute is left partially applied.
func (r *Runner) Run(ctx context.Context, candles []domain.Candle, idx *marketdata.Index, state *State) (*Result, error) {
	result := &Result{LastMinute: state.LastMinute}

	currentMonth := ""
	monthEvents := 0
	var archiveBuf []*domain.MinuteSnapshot

	flushArchive := func() {
		if r.journals.Archive == nil || len(archiveBuf) == 0 {
			return
		}
		if err := r.journals.Archive.InsertBulk(ctx, archiveBuf); err != nil {
			r.logger.Warn().Err(err).Int("snapshots", len(archiveBuf)).Msg("snapshot archive insert failed")
		}
		archiveBuf = archiveBuf[:0]
	}

	for _, candle := range candles {
		if !state.LastMinute.IsZero() && !candle.Timestamp.After(state.LastMinute) {
			continue
		}
		if err := ctx.Err(); err != nil {
			flushArchive()
			return result, err
		}

		month := candle.Timestamp.UTC().Format("200601")
		if currentMonth == "" {
			currentMonth = month
		}
		if month != currentMonth {
			if r.cfg.UseMonthlyVolumeFloor && monthEvents < r.cfg.MonthlyVolumeFloor {
				flushArchive()
				reason := "low monthly volume"
				detail := fmt.Sprintf("month %s recorded %d trade events, floor is %d",
					currentMonth, monthEvents, r.cfg.MonthlyVolumeFloor)
				r.terminate(reason, detail, state.LastMinute)
				result.EarlyStop = true
				result.StopReason = reason
				return result, nil
			}
			flushArchive()
			currentMonth = month
			monthEvents = 0
		}

		opened := r.entries.ProcessMinute(ctx, candle, idx.ActivatingAt(candle.Timestamp), &state.Ledger, state.Positions)
		closed := r.exits.ProcessMinute(ctx, candle, &state.Ledger, state.Positions, &state.Counters)
		monthEvents += opened + closed

		state.Ledger.MarkToMarket(candle.Close)
		snap := state.Ledger.Snapshot(candle.Timestamp, candle.Close)
		if err := r.journals.Snapshots.Append(ctx, &snap); err != nil {
			r.logger.Warn().Err(err).Time("minute", candle.Timestamp).Msg("snapshot journal append failed")
		}
		if r.journals.Archive != nil {
			archiveBuf = append(archiveBuf, &snap)
		}

		state.LastMinute = candle.Timestamp
		result.LastMinute = candle.Timestamp
		result.MinutesProcessed++

		if r.metrics != nil {
			r.metrics.MinutesProcessed.Inc()
			r.metrics.Bankroll.Set(state.Ledger.TotalBankroll())
			r.metrics.OpenPositions.Set(float64(state.Positions.Len()))
		}

		if r.cfg.UseBankrollFloor &&
			state.Ledger.TotalBankroll() < r.cfg.BankrollFloorFraction*r.cfg.StartingBankroll {
			flushArchive()
			reason := "bankroll below floor"
			detail := fmt.Sprintf("bankroll %.4f fell below %.4f (%.0f%% of starting %.4f)",
				state.Ledger.TotalBankroll(),
				r.cfg.BankrollFloorFraction*r.cfg.StartingBankroll,
				r.cfg.BankrollFloorFraction*100,
				r.cfg.StartingBankroll)
			r.terminate(reason, detail, candle.Timestamp)
			result.EarlyStop = true
			result.StopReason = reason
			return result, nil
		}
	}

	flushArchive()
	r.logger.Info().
		Int("minutes", result.MinutesProcessed).
		Int("wins", state.Counters.Wins).
		Int("losses", state.Counters.Losses).
		Float64("bankroll", state.Ledger.TotalBankroll()).
		Msg("simulation finished")
	return result, nil
}

// terminate writes the durable early-stop marker. Early termination is a
// normal terminal state, not an error.
func (r *Runner) terminate(reason, detail string, at time.Time) {
	r.logger.Warn().Str("reason", reason).Str("detail", detail).Time("at", at).Msg("early termination")

	name := fmt.Sprintf("TERMINATED - %s.txt", reason)
	body := fmt.Sprintf("Terminated at %s\nReason: %s\n%s\n",
		marketdata.FormatTimestamp(at), reason, detail)
	if err := os.WriteFile(filepath.Join(r.outputDir, name), []byte(body), 0o644); err != nil {
		r.logger.Error().Err(err).Msg("writing termination marker failed")
	}
}
