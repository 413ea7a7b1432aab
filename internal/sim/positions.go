package sim

import (
	"fmt"

	"fib-pattern-lab/internal/domain"
)

// PositionSet is the in-memory open-position set owned by the simulation
// loop. Ordered by open time (append order) with O(1) id lookup.
type PositionSet struct {
	list []*domain.OpenPosition
	byID map[string]*domain.OpenPosition
}

// NewPositionSet returns an empty set.
func NewPositionSet() *PositionSet {
	return &PositionSet{byID: make(map[string]*domain.OpenPosition)}
}

// Restore seeds the set from a resumed checkpoint.
func (s *PositionSet) Restore(positions []*domain.OpenPosition) error {
	for _, p := range positions {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Add inserts a position. Trade ids are unique within the set.
func (s *PositionSet) Add(p *domain.OpenPosition) error {
	if _, exists := s.byID[p.TradeID]; exists {
		return fmt.Errorf("duplicate open trade id %s", p.TradeID)
	}
	s.byID[p.TradeID] = p
	s.list = append(s.list, p)
	return nil
}

// Remove deletes a position by trade id.
func (s *PositionSet) Remove(tradeID string) {
	if _, exists := s.byID[tradeID]; !exists {
		return
	}
	delete(s.byID, tradeID)
	for i, p := range s.list {
		if p.TradeID == tradeID {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// Has reports whether a trade id is currently open.
func (s *PositionSet) Has(tradeID string) bool {
	_, ok := s.byID[tradeID]
	return ok
}

// Len returns the number of open positions.
func (s *PositionSet) Len() int {
	return len(s.list)
}

// Snapshot returns a copy of the ordered position list. Positions may be
// removed from the set while a caller iterates the copy.
func (s *PositionSet) Snapshot() []*domain.OpenPosition {
	out := make([]*domain.OpenPosition, len(s.list))
	copy(out, s.list)
	return out
}

// Units sums open position sizes for one side.
func (s *PositionSet) Units(dir domain.Direction) float64 {
	var total float64
	for _, p := range s.list {
		if p.Direction == dir {
			total += p.Size
		}
	}
	return total
}
