// Package clock supplies the time source used by the CDP ledger.
//
// All timestamps are integer milliseconds since the Unix epoch. Ledgers
// read the clock on every time-dependent operation; reads have no side
// effects and implementations must never go backwards.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in milliseconds.
type Clock interface {
	Now() int64
}

// Func adapts a plain function to the Clock interface.
type Func func() int64

// Now implements Clock.
func (f Func) Now() int64 { return f() }

// System reads the wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() int64 { return time.Now().UnixMilli() }

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a Manual clock starting at start milliseconds.
func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now += d.Milliseconds()
	m.mu.Unlock()
}

// Set moves the clock to ms. Values earlier than the current reading are
// ignored so the clock stays monotonic.
func (m *Manual) Set(ms int64) {
	m.mu.Lock()
	if ms > m.now {
		m.now = ms
	}
	m.mu.Unlock()
}
