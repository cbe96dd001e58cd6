// Package memory implements store.Store with in-process maps. It is the
// only backend; positions live for the lifetime of the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/cdp"
	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
	"github.com/xraph/cdp/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps copies of every record it is given and hands out copies on
// read, so callers can mutate what they get back without touching
// committed state.
type Store struct {
	mu     sync.RWMutex
	closed bool

	// Position storage
	positions map[id.CDPID]*position.Position

	// Liquidation storage, in insertion order
	liquidations map[string]*liquidation.Liquidation
	liqOrder     []string
}

func New() *Store {
	return &Store{
		positions:    make(map[id.CDPID]*position.Position),
		liquidations: make(map[string]*liquidation.Liquidation),
	}
}

// Position Store implementation
func (s *Store) CreatePosition(_ context.Context, p *position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	if _, exists := s.positions[p.ID]; exists {
		return cdp.ErrAlreadyExists
	}
	s.positions[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetPosition(_ context.Context, cdpID id.CDPID) (*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[cdpID]; ok {
		return p.Clone(), nil
	}
	return nil, cdp.ErrNotFound
}

func (s *Store) ListPositions(_ context.Context, opts position.ListOpts) ([]*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*position.Position, 0, len(s.positions))
	for _, p := range s.positions {
		if opts.Owner == "" || p.Owner == opts.Owner {
			result = append(result, p.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, _ := result[i].ID.Seq() //nolint:errcheck // ids are issued by id.Sequence
		b, _ := result[j].ID.Seq() //nolint:errcheck // ids are issued by id.Sequence
		return a < b
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdatePosition(_ context.Context, p *position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	if _, exists := s.positions[p.ID]; !exists {
		return cdp.ErrNotFound
	}
	s.positions[p.ID] = p.Clone()
	return nil
}

func (s *Store) DeletePosition(_ context.Context, cdpID id.CDPID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	if _, exists := s.positions[cdpID]; !exists {
		return cdp.ErrNotFound
	}
	delete(s.positions, cdpID)
	return nil
}

// Liquidation Store implementation
func (s *Store) CreateLiquidation(_ context.Context, l *liquidation.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	key := l.ID.String()
	if _, exists := s.liquidations[key]; exists {
		return cdp.ErrAlreadyExists
	}
	s.liquidations[key] = l.Clone()
	s.liqOrder = append(s.liqOrder, key)
	return nil
}

func (s *Store) GetLiquidation(_ context.Context, liqID id.LiquidationID) (*liquidation.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.liquidations[liqID.String()]; ok {
		return l.Clone(), nil
	}
	return nil, cdp.ErrNotFound
}

func (s *Store) ListLiquidations(_ context.Context, opts liquidation.ListOpts) ([]*liquidation.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*liquidation.Liquidation, 0, len(s.liqOrder))
	for _, key := range s.liqOrder {
		l := s.liquidations[key]
		if opts.CDPID != "" && l.Snapshot.CDPID != opts.CDPID {
			continue
		}
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		result = append(result, l.Clone())
	}

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateLiquidation(_ context.Context, l *liquidation.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	key := l.ID.String()
	if _, exists := s.liquidations[key]; !exists {
		return cdp.ErrNotFound
	}
	s.liquidations[key] = l.Clone()
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return cdp.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	start := max(offset, 0)
	if start > len(items) {
		start = len(items)
	}
	if limit <= 0 || start+limit > len(items) {
		return items[start:]
	}
	end := start + limit
	return items[start:end]
}
