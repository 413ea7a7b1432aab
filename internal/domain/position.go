package domain

import "time"

// OpenPosition is one currently-held simulated trade. Created by the entry
// processor, destroyed (moved to ClosedPosition) by the exit processor.
type OpenPosition struct {
	TradeID    string // unique; fib re-entries use "{parent}_fib{level}"
	InstanceID string
	Name       string // human label, e.g. "1h long(3f2a...91bc)"
	Timeframe  string
	Direction  Direction

	OpenPrice   float64
	Size        float64 // unsigned units
	TargetPrice *float64
	OpenFee     float64

	OpenedAt      time.Time // minute the position was opened
	ConfirmDate   time.Time
	ActiveDate    *time.Time
	CompletedDate *time.Time

	// Fibonacci stops/re-entry levels inherited from the instance.
	Fib0_5    FibPoint
	Fib0_0    FibPoint
	FibNeg0_5 FibPoint
	FibNeg1_0 FibPoint

	// Worst-excursion labels, used by the drawdown stops when activation and
	// completion fall inside the same minute.
	ExtremePrice     *float64
	ExtremePriceDate *time.Time

	// Drawdown-stop inputs captured at entry.
	OpenBankroll float64 // total bankroll when the position opened
	AMPDPending  float64 // normalized pending-time factor, [0,1]
	AMPDTrigger  float64 // normalized trigger-proximity factor, [0,1]

	// FibEntry marks positions opened by the fib re-entry sub-pass; they are
	// excluded from triggering further re-entries.
	FibEntry bool
}

// Fib returns the FibPoint for a level.
func (p *OpenPosition) Fib(level FibLevel) FibPoint {
	switch level {
	case FibLevel0_5:
		return p.Fib0_5
	case FibLevel0_0:
		return p.Fib0_0
	case FibLevelNeg0_5:
		return p.FibNeg0_5
	case FibLevelNeg1_0:
		return p.FibNeg1_0
	default:
		return FibPoint{}
	}
}

// Close-reason tags recorded on closed positions and exit trade events.
// Clean target completions carry no reason tag.
const (
	CloseReasonStaticTimeCapit  = "static time capit"
	CloseReasonStaticDrawdown   = "static drawdown stop"
	CloseReasonAdvancedDrawdown = "advanced drawdown stop"
)

// FibCloseReason builds the close-reason tag for a fib-level stop,
// e.g. "fib0.5_exit".
func FibCloseReason(level FibLevel) string {
	return "fib" + string(level) + "_exit"
}

// ClosedPosition is the immutable record of a position after exit.
type ClosedPosition struct {
	OpenPosition

	ClosePrice  float64
	ClosedAt    time.Time
	IndPnL      float64 // signed delta vs. this position's own open price
	Winner      int     // 1 win, 0 otherwise
	CloseReason string  // empty for clean target completions
}
