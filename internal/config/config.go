// Package config holds the immutable simulation configuration. A Config is
// built once (defaults, then .env / environment overrides), validated, and
// passed explicitly into every component; nothing reads tunables globally.
package config

import (
	"errors"
	"fmt"
	"time"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/sizing"
)

// Validation errors. Configuration mistakes fail fast at startup.
var (
	ErrInvalidSizingMode    = errors.New("position-size mode out of range")
	ErrInvalidDateRange     = errors.New("start date must precede end date")
	ErrInvalidFeeRate       = errors.New("fee rate must be non-negative")
	ErrInvalidPercent       = errors.New("percent parameter out of range")
	ErrDrawdownNeedsPercent = errors.New("drawdown stops require percent-of-bankroll sizing")
	ErrLeverageNeedsPercent = errors.New("leverage cap requires percent-of-bankroll sizing")
	ErrInvalidAMPD          = errors.New("advanced drawdown parameters inconsistent")
	ErrInvalidFloor         = errors.New("early-termination floor out of range")
)

// Config is the full tunable surface of one simulation run.
type Config struct {
	StartingBankroll float64
	FeeRate          float64 // e.g. 0.0003 for 0.03%
	StartDate        time.Time
	EndDate          time.Time

	// Position sizing.
	SizingMode      sizing.Mode
	SizingQuantity  float64
	SizingAmount    float64
	SizingPercent   float64 // 1 = 1%
	UseDescaling    bool
	DescalingFactor float64 // weight toward the starting bankroll, [0,1]

	// Entry filters.
	AllowedSituations []string
	AvoidGroups       bool // only take instances with group_id "NA"

	UseMinPendingAge    bool
	MinPendingAge       float64 // minutes, or candles when PendingAgeInCandles
	UseMaxPendingAge    bool
	MaxPendingAge       float64
	PendingAgeInCandles bool

	// Trigger-trade confirmation. Enabled modes are conjunctive.
	TriggerAnyInsideActivation bool
	TriggerSameMinute          bool
	TriggerWithinCandles       bool
	TriggerWithinCandlesCount  int
	TriggerWithinMinutes       bool
	TriggerWithinMinutesCount  int

	// Per-level fib re-entry and stop-loss toggles.
	EntryFib0_5    bool
	EntryFib0_0    bool
	EntryFibNeg0_5 bool
	EntryFibNeg1_0 bool
	ExitFib0_5     bool
	ExitFib0_0     bool
	ExitFibNeg0_5  bool
	ExitFibNeg1_0  bool

	UseLeverageCap bool
	Leverage       float64

	// Exits.
	UseStaticTimeCapit   bool
	StaticTimeCapitHours float64

	UseStaticDrawdown     bool
	StaticDrawdownPercent float64 // percent of bankroll at position open

	UseAdvancedDrawdown bool
	AMPDPercentBase     float64
	AMPDPercentMax      float64
	AMPDUsePendingTime  bool
	AMPDUseTriggerTime  bool
	AMPDPendingWeight   float64 // 1..100, weight of pending factor when both enabled
	AMPDPendingHighDays float64 // pending time mapping to full allowance
	AMPDTriggerHighMins float64 // trigger distance mapping to zero allowance

	// Early termination.
	UseBankrollFloor      bool
	BankrollFloorFraction float64 // stop when bankroll < fraction * starting
	UseMonthlyVolumeFloor bool
	MonthlyVolumeFloor    int // minimum trade events per completed month

	// Logging toggles.
	CreateTradesByMonth bool
	CreateAnalysisAll   bool
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		StartingBankroll: 10000,
		FeeRate:          0.0003,
		StartDate:        time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),

		SizingMode:      sizing.ModePercent,
		SizingQuantity:  0.2,
		SizingAmount:    50,
		SizingPercent:   70,
		DescalingFactor: 0.5,

		AllowedSituations: []string{"1v1"},

		MinPendingAge: 72 * 60,
		MaxPendingAge: 2500 * 60,

		TriggerWithinCandlesCount: 1,
		TriggerWithinMinutesCount: 60,

		Leverage: 1,

		StaticTimeCapitHours:  1.5,
		StaticDrawdownPercent: 3.6,

		AMPDPercentBase:     3,
		AMPDPercentMax:      8,
		AMPDUsePendingTime:  true,
		AMPDUseTriggerTime:  true,
		AMPDPendingWeight:   50,
		AMPDPendingHighDays: 100,
		AMPDTriggerHighMins: 60,

		BankrollFloorFraction: 0.2,
		MonthlyVolumeFloor:    1,
	}
}

// Validate fails fast on contradictory or out-of-range settings.
func (c Config) Validate() error {
	if !c.SizingMode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSizingMode, c.SizingMode)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("%w: %s .. %s", ErrInvalidDateRange,
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}
	if c.FeeRate < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFeeRate, c.FeeRate)
	}
	if c.SizingMode == sizing.ModePercent && c.SizingPercent <= 0 {
		return fmt.Errorf("%w: sizing percent %v", ErrInvalidPercent, c.SizingPercent)
	}
	if c.UseDescaling && (c.DescalingFactor < 0 || c.DescalingFactor > 1) {
		return fmt.Errorf("%w: descaling factor %v", ErrInvalidPercent, c.DescalingFactor)
	}
	if (c.UseStaticDrawdown || c.UseAdvancedDrawdown) && c.SizingMode != sizing.ModePercent {
		return ErrDrawdownNeedsPercent
	}
	if c.UseLeverageCap {
		if c.SizingMode != sizing.ModePercent {
			return ErrLeverageNeedsPercent
		}
		if c.Leverage <= 0 {
			return fmt.Errorf("%w: leverage %v", ErrInvalidPercent, c.Leverage)
		}
	}
	if c.UseAdvancedDrawdown {
		if c.AMPDPercentBase < 0 || c.AMPDPercentMax < c.AMPDPercentBase {
			return fmt.Errorf("%w: base %v max %v", ErrInvalidAMPD, c.AMPDPercentBase, c.AMPDPercentMax)
		}
		if !c.AMPDUsePendingTime && !c.AMPDUseTriggerTime {
			return fmt.Errorf("%w: no scaling factor enabled", ErrInvalidAMPD)
		}
		if c.AMPDUsePendingTime && c.AMPDUseTriggerTime &&
			(c.AMPDPendingWeight < 1 || c.AMPDPendingWeight > 100) {
			return fmt.Errorf("%w: pending weight %v", ErrInvalidAMPD, c.AMPDPendingWeight)
		}
		if c.AMPDUsePendingTime && c.AMPDPendingHighDays <= 0 {
			return fmt.Errorf("%w: pending high %v", ErrInvalidAMPD, c.AMPDPendingHighDays)
		}
		if c.AMPDUseTriggerTime && c.AMPDTriggerHighMins <= 0 {
			return fmt.Errorf("%w: trigger high %v", ErrInvalidAMPD, c.AMPDTriggerHighMins)
		}
	}
	if c.UseBankrollFloor && (c.BankrollFloorFraction <= 0 || c.BankrollFloorFraction >= 1) {
		return fmt.Errorf("%w: bankroll fraction %v", ErrInvalidFloor, c.BankrollFloorFraction)
	}
	if c.UseMonthlyVolumeFloor && c.MonthlyVolumeFloor < 0 {
		return fmt.Errorf("%w: monthly volume %d", ErrInvalidFloor, c.MonthlyVolumeFloor)
	}
	return nil
}

// Sizer builds the position sizer for this configuration.
func (c Config) Sizer() sizing.Sizer {
	return sizing.Sizer{
		Mode:             c.SizingMode,
		Quantity:         c.SizingQuantity,
		Amount:           c.SizingAmount,
		Percent:          c.SizingPercent,
		UseDescaling:     c.UseDescaling,
		DescalingFactor:  c.DescalingFactor,
		StartingBankroll: c.StartingBankroll,
	}
}

// SituationAllowed reports whether a pattern tag passes the allow-list.
// An empty list allows everything.
func (c Config) SituationAllowed(situation string) bool {
	if len(c.AllowedSituations) == 0 {
		return true
	}
	for _, s := range c.AllowedSituations {
		if s == situation {
			return true
		}
	}
	return false
}

// EntryOnFib reports whether re-entry is enabled for a fib level.
func (c Config) EntryOnFib(level domain.FibLevel) bool {
	switch level {
	case domain.FibLevel0_5:
		return c.EntryFib0_5
	case domain.FibLevel0_0:
		return c.EntryFib0_0
	case domain.FibLevelNeg0_5:
		return c.EntryFibNeg0_5
	case domain.FibLevelNeg1_0:
		return c.EntryFibNeg1_0
	}
	return false
}

// ExitOnFib reports whether the stop-loss is enabled for a fib level.
func (c Config) ExitOnFib(level domain.FibLevel) bool {
	switch level {
	case domain.FibLevel0_5:
		return c.ExitFib0_5
	case domain.FibLevel0_0:
		return c.ExitFib0_0
	case domain.FibLevelNeg0_5:
		return c.ExitFibNeg0_5
	case domain.FibLevelNeg1_0:
		return c.ExitFibNeg1_0
	}
	return false
}

// MaxOpenPositions returns the leverage-derived cap on concurrently open
// positions, or 0 when the cap is disabled.
func (c Config) MaxOpenPositions() int {
	if !c.UseLeverageCap || c.SizingPercent <= 0 {
		return 0
	}
	return int(c.Leverage * 100 / c.SizingPercent)
}

// NeedsFullInstanceSet reports whether any enabled trigger mode requires
// loading instances outside the simulated date window.
func (c Config) NeedsFullInstanceSet() bool {
	return c.TriggerAnyInsideActivation || c.TriggerWithinCandles || c.TriggerWithinMinutes
}
