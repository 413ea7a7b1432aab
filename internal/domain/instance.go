package domain

import (
	"errors"
	"strings"
	"time"
)

// Direction is the side of a trade opportunity.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ErrUnknownDirection is returned for direction strings outside long/short.
var ErrUnknownDirection = errors.New("unknown direction")

// ParseDirection normalizes a direction string from an instance file.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return DirectionLong, nil
	case "short":
		return DirectionShort, nil
	default:
		return "", ErrUnknownDirection
	}
}

// FibLevel identifies one of the four retracement levels attached to an
// instance by the labeling pipeline.
type FibLevel string

// Fibonacci level constants, in the order they appear in instance files.
const (
	FibLevel0_5    FibLevel = "0.5"
	FibLevel0_0    FibLevel = "0.0"
	FibLevelNeg0_5 FibLevel = "-0.5"
	FibLevelNeg1_0 FibLevel = "-1.0"
)

// FibLevels lists all levels in canonical order.
var FibLevels = []FibLevel{FibLevel0_5, FibLevel0_0, FibLevelNeg0_5, FibLevelNeg1_0}

// FibPoint is one retracement level: its price and the minute the market
// first touched it. Either may be absent.
type FibPoint struct {
	Price       *float64
	DateReached *time.Time
}

// Set reports whether the level has both a price and a touch timestamp.
func (p FibPoint) Set() bool {
	return p.Price != nil && p.DateReached != nil
}

// Instance is a candidate trade opportunity produced by the external
// labeling pipeline. Read-only to the simulator.
type Instance struct {
	InstanceID string
	Situation  string // pattern tag, e.g. "1v1"
	Timeframe  string // e.g. "1h", "90m"
	Direction  Direction
	GroupID    string

	Entry  float64
	Target float64

	ConfirmDate   time.Time
	ActiveDate    *time.Time // nil until price touches Entry
	CompletedDate *time.Time // nil until price touches Target

	Fib0_5    FibPoint
	Fib0_0    FibPoint
	FibNeg0_5 FibPoint
	FibNeg1_0 FibPoint

	// Worst-excursion labels, precomputed between activation and completion.
	MaxDrawdown      *float64
	MaxDrawdownDate  *time.Time
	MaxFib           string
	ExtremePrice     *float64
	ExtremePriceDate *time.Time
}

// Fib returns the FibPoint for a level.
func (i *Instance) Fib(level FibLevel) FibPoint {
	switch level {
	case FibLevel0_5:
		return i.Fib0_5
	case FibLevel0_0:
		return i.Fib0_0
	case FibLevelNeg0_5:
		return i.FibNeg0_5
	case FibLevelNeg1_0:
		return i.FibNeg1_0
	default:
		return FibPoint{}
	}
}

// PendingMinutes is the time the instance spent between pattern confirmation
// and activation. Returns 0 if the instance never activated.
func (i *Instance) PendingMinutes() float64 {
	if i.ActiveDate == nil {
		return 0
	}
	return i.ActiveDate.Sub(i.ConfirmDate).Minutes()
}
