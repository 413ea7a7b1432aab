// Package memory provides in-memory storage implementations, used by tests
// and dry runs. All stores are safe for concurrent use and return deep
// copies so callers cannot mutate shared state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage"
)

// TradeLog is an in-memory append-only trade event journal.
type TradeLog struct {
	mu     sync.RWMutex
	events []*domain.TradeEvent
}

var _ storage.TradeLog = (*TradeLog)(nil)

func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

func (l *TradeLog) Append(_ context.Context, e *domain.TradeEvent) error {
	if e == nil {
		return fmt.Errorf("%w: nil trade event", storage.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *e
	l.events = append(l.events, &cp)
	return nil
}

func (l *TradeLog) All(_ context.Context) ([]*domain.TradeEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.TradeEvent, len(l.events))
	for i, e := range l.events {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// OpenPositionStore is an in-memory live position set. Preserves append
// order on List, like the file-backed store.
type OpenPositionStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.OpenPosition
}

var _ storage.OpenPositionStore = (*OpenPositionStore)(nil)

func NewOpenPositionStore() *OpenPositionStore {
	return &OpenPositionStore{byID: make(map[string]*domain.OpenPosition)}
}

func (s *OpenPositionStore) Append(_ context.Context, p *domain.OpenPosition) error {
	if p == nil || p.TradeID == "" {
		return fmt.Errorf("%w: position must have a trade id", storage.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[p.TradeID]; exists {
		return fmt.Errorf("open position %s: %w", p.TradeID, storage.ErrDuplicateKey)
	}
	cp := *p
	s.byID[p.TradeID] = &cp
	s.order = append(s.order, p.TradeID)
	return nil
}

func (s *OpenPositionStore) Remove(_ context.Context, tradeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[tradeID]; !exists {
		return fmt.Errorf("open position %s: %w", tradeID, storage.ErrNotFound)
	}
	delete(s.byID, tradeID)
	for i, id := range s.order {
		if id == tradeID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *OpenPositionStore) List(_ context.Context) ([]*domain.OpenPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.OpenPosition, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

// ClosedPositionLog is an in-memory closed position history.
type ClosedPositionLog struct {
	mu        sync.RWMutex
	positions []*domain.ClosedPosition
}

var _ storage.ClosedPositionLog = (*ClosedPositionLog)(nil)

func NewClosedPositionLog() *ClosedPositionLog {
	return &ClosedPositionLog{}
}

func (l *ClosedPositionLog) Append(_ context.Context, p *domain.ClosedPosition) error {
	if p == nil {
		return fmt.Errorf("%w: nil closed position", storage.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *p
	l.positions = append(l.positions, &cp)
	return nil
}

// All returns the full history; used by tests.
func (l *ClosedPositionLog) All() []*domain.ClosedPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.ClosedPosition, len(l.positions))
	for i, p := range l.positions {
		cp := *p
		out[i] = &cp
	}
	return out
}

// SnapshotLog is an in-memory minute snapshot journal. Also implements the
// bulk SnapshotArchive interface so it can stand in for the timeseries
// mirrors in tests.
type SnapshotLog struct {
	mu        sync.RWMutex
	snapshots []*domain.MinuteSnapshot
}

var (
	_ storage.SnapshotLog     = (*SnapshotLog)(nil)
	_ storage.SnapshotArchive = (*SnapshotLog)(nil)
)

func NewSnapshotLog() *SnapshotLog {
	return &SnapshotLog{}
}

func (l *SnapshotLog) Append(_ context.Context, s *domain.MinuteSnapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", storage.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *s
	l.snapshots = append(l.snapshots, &cp)
	return nil
}

func (l *SnapshotLog) Last(_ context.Context) (*domain.MinuteSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.snapshots) == 0 {
		return nil, storage.ErrNotFound
	}
	cp := *l.snapshots[len(l.snapshots)-1]
	return &cp, nil
}

func (l *SnapshotLog) InsertBulk(_ context.Context, snapshots []*domain.MinuteSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range snapshots {
		if s == nil {
			return fmt.Errorf("%w: nil snapshot in bulk insert", storage.ErrInvalidInput)
		}
		cp := *s
		l.snapshots = append(l.snapshots, &cp)
	}
	return nil
}

func (l *SnapshotLog) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.MinuteSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*domain.MinuteSnapshot
	for _, s := range l.snapshots {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
