package cdp_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/cdp"
	"github.com/xraph/cdp/clock"
	"github.com/xraph/cdp/inscription"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/store/memory"
)

// TestDocumentationExamples verifies the package documentation walkthrough.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()
		clk := clock.NewManual(1_700_000_000_000)
		submitted := make(chan string, 1)
		node := cdp.SettlementNodeFunc(func(_ context.Context, payload []byte) (string, error) {
			submitted <- string(payload)
			return "tx-1", nil
		})

		l := cdp.New(memory.New(), inscription.NewJSON(inscription.WithClock(clk)), node,
			cdp.WithClock(clk),
			cdp.WithLogger(slog.New(slog.DiscardHandler)),
		)
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		cdpID, err := l.Open(ctx, "alice", cdp.MustParseAmount("15"))
		if err != nil {
			t.Fatal(err)
		}

		if err := l.DrawDebt(ctx, cdpID, cdp.MustParseAmount("10")); err != nil {
			t.Fatalf("DrawDebt at ratio 1.5: %v", err)
		}
		if err := l.DrawDebt(ctx, cdpID, cdp.MustParseAmount("1")); !errors.Is(err, cdp.ErrInsufficientCollateral) {
			t.Fatalf("DrawDebt past ratio: %v", err)
		}

		clk.Advance(24 * time.Hour)
		interest, err := l.AccrueInterest(ctx, cdpID)
		if err != nil {
			t.Fatal(err)
		}
		if !interest.Equal(cdp.MustParseAmount("0.00136986301369863")) {
			t.Errorf("interest = %s", interest)
		}

		liq, err := l.CheckForLiquidation(ctx, cdpID)
		if err != nil {
			t.Fatal(err)
		}
		if liq == nil {
			t.Fatal("position above 1.5x debt after interest should be liquidated")
		}

		select {
		case payload := <-submitted:
			env, err := inscription.Decode([]byte(payload))
			if err != nil {
				t.Fatal(err)
			}
			if env.ID != cdpID {
				t.Errorf("inscribed id = %s, want %s", env.ID, cdpID)
			}
		case <-time.After(time.Second):
			t.Fatal("settlement not submitted")
		}

		if err := l.Stop(); err != nil {
			t.Fatal(err)
		}
		got, err := l.GetLiquidation(ctx, liq.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != liquidation.StatusSubmitted || got.TxID != "tx-1" {
			t.Errorf("liquidation = %s %q", got.Status, got.TxID)
		}
	})
}
