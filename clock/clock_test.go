package clock_test

import (
	"testing"
	"time"

	"github.com/xraph/cdp/clock"
)

func TestManualAdvance(t *testing.T) {
	c := clock.NewManual(1_000)
	c.Advance(24 * time.Hour)
	if got, want := c.Now(), int64(1_000+86_400_000); got != want {
		t.Errorf("Now: got %d, want %d", got, want)
	}
}

func TestManualIsMonotonic(t *testing.T) {
	c := clock.NewManual(5_000)

	c.Advance(-time.Second)
	c.Set(1_000)
	if got := c.Now(); got != 5_000 {
		t.Errorf("clock moved backwards: got %d", got)
	}

	c.Set(9_000)
	if got := c.Now(); got != 9_000 {
		t.Errorf("Set: got %d, want 9000", got)
	}
}

func TestFuncAndSystem(t *testing.T) {
	f := clock.Func(func() int64 { return 42 })
	if f.Now() != 42 {
		t.Errorf("Func: got %d, want 42", f.Now())
	}

	before := time.Now().UnixMilli()
	got := clock.System{}.Now()
	if got < before {
		t.Errorf("System: got %d, earlier than %d", got, before)
	}
}
