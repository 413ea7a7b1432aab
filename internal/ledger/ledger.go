// Package ledger tracks the running portfolio state of a simulation: cash,
// aggregate long/short position sizes, volume-weighted cost bases and
// mark-to-market PnL. The ledger is mutated exclusively by the entry and
// exit processors and owned by the single simulation loop.
package ledger

import (
	"time"

	"fib-pattern-lab/internal/domain"
)

// Ledger is the aggregate portfolio state.
//
// Invariants:
//   - a side's cost basis is 0 whenever its aggregate position is 0
//   - TotalLong/TotalShort equal the sum of open position sizes per side
type Ledger struct {
	CashOnHand float64

	TotalLong float64
	LongBasis float64
	LongPnL   float64

	TotalShort float64
	ShortBasis float64
	ShortPnL   float64
}

// New returns a ledger holding only starting cash.
func New(startingBankroll float64) Ledger {
	return Ledger{CashOnHand: startingBankroll}
}

// ApplyEntry records a position open: the side's aggregate grows, its cost
// basis is re-weighted toward the entry price, and the opening fee leaves
// cash immediately (fee-at-open accounting). Returns the basis before and
// after for the trade log.
func (l *Ledger) ApplyEntry(dir domain.Direction, price, size, fee float64) (oldBasis, newBasis float64) {
	if dir == domain.DirectionLong {
		oldBasis = l.LongBasis
		prev := l.TotalLong
		l.TotalLong += size
		l.LongBasis = reweight(oldBasis, prev, price, size, l.TotalLong)
		newBasis = l.LongBasis
	} else {
		oldBasis = l.ShortBasis
		prev := l.TotalShort
		l.TotalShort += size
		l.ShortBasis = reweight(oldBasis, prev, price, size, l.TotalShort)
		newBasis = l.ShortBasis
	}
	l.CashOnHand -= fee
	return oldBasis, newBasis
}

// ApplyClose records a position close against the side's cost basis. The
// realized PnL (basis-relative, before fees) moves to cash and the closing
// fee leaves cash. When the side's aggregate returns to exactly zero its
// basis resets to zero.
func (l *Ledger) ApplyClose(dir domain.Direction, closePrice, size, fee float64) (realized float64) {
	if dir == domain.DirectionLong {
		realized = (closePrice - l.LongBasis) * size
		l.TotalLong -= size
		l.LongPnL -= realized
		if l.TotalLong == 0 {
			l.LongBasis = 0
		}
	} else {
		realized = (l.ShortBasis - closePrice) * size
		l.TotalShort -= size
		l.ShortPnL -= realized
		if l.TotalShort == 0 {
			l.ShortBasis = 0
		}
	}
	l.CashOnHand += realized - fee
	return realized
}

// MarkToMarket recomputes both sides' unrealized PnL against a close price.
func (l *Ledger) MarkToMarket(closePrice float64) {
	l.LongPnL = l.TotalLong * (closePrice - l.LongBasis)
	l.ShortPnL = l.TotalShort * (l.ShortBasis - closePrice)
}

// TotalBankroll is cash plus both sides' unrealized PnL.
func (l *Ledger) TotalBankroll() float64 {
	return l.CashOnHand + l.LongPnL + l.ShortPnL
}

// Snapshot captures the ledger as a per-minute analysis record.
func (l *Ledger) Snapshot(ts time.Time, closePrice float64) domain.MinuteSnapshot {
	return domain.MinuteSnapshot{
		Timestamp:          ts.UTC(),
		TotalBankroll:      l.TotalBankroll(),
		CashOnHand:         l.CashOnHand,
		TotalLongPosition:  l.TotalLong,
		LongCostBasis:      l.LongBasis,
		LongPnL:            l.LongPnL,
		TotalShortPosition: l.TotalShort,
		ShortCostBasis:     l.ShortBasis,
		ShortPnL:           l.ShortPnL,
		Close:              closePrice,
	}
}

// reweight computes the volume-weighted basis after adding size units at
// price to a side holding prev units at basis. Guards the empty-side case.
func reweight(basis, prev, price, size, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return (basis*prev + price*size) / total
}
