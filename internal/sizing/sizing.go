// Package sizing converts an entry price and available capital into a
// position size. Pure and deterministic; all state lives in the Sizer value.
package sizing

import (
	"errors"
	"fmt"
)

// Mode selects the position-size formula.
type Mode int

// Sizing modes. The numeric values match the historical config convention.
const (
	ModeFixedQuantity Mode = 1 // constant unit count
	ModeFixedDollar   Mode = 2 // amount / entry price
	ModePercent       Mode = 3 // percent of bankroll / entry price
)

// ErrInvalidMode is returned when the mode selector is out of the defined set.
var ErrInvalidMode = errors.New("invalid position-size mode")

// Valid reports whether m is a defined mode.
func (m Mode) Valid() bool {
	return m == ModeFixedQuantity || m == ModeFixedDollar || m == ModePercent
}

// Sizer computes position sizes for one simulation run.
type Sizer struct {
	Mode     Mode
	Quantity float64 // ModeFixedQuantity
	Amount   float64 // ModeFixedDollar
	Percent  float64 // ModePercent; 1 = 1%

	// Descaling blends the percent formula against the original starting
	// bankroll to dampen size growth as the bankroll compounds.
	UseDescaling     bool
	DescalingFactor  float64 // weight toward the starting bankroll, [0,1]
	StartingBankroll float64
}

// Size returns the unsigned unit count for a new position.
func (s Sizer) Size(entryPrice, bankroll float64) (float64, error) {
	switch s.Mode {
	case ModeFixedQuantity:
		return s.Quantity, nil
	case ModeFixedDollar:
		return s.Amount / entryPrice, nil
	case ModePercent:
		current := (s.Percent / 100) * bankroll / entryPrice
		if !s.UseDescaling {
			return current, nil
		}
		starting := (s.Percent / 100) * s.StartingBankroll / entryPrice
		return starting*s.DescalingFactor + current*(1-s.DescalingFactor), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, s.Mode)
	}
}
