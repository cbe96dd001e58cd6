// Package cdp provides an in-process ledger of collateralized debt
// positions for Go applications.
//
// A position locks collateral and lets its owner draw debt against it.
// The ledger enforces a minimum collateral ratio when debt is drawn,
// accrues simple interest on debt once per period and, when asked,
// liquidates positions whose collateral no longer covers their debt. It
// provides:
//
//   - Exact decimal balances via shopspring/decimal
//   - Atomic read-check-write operations behind a single lock
//   - Liquidation snapshots inscribed by a pluggable Inscriber
//   - Asynchronous settlement through a pluggable SettlementNode
//   - Lifecycle hooks for metrics, audit and custom plugins
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/cdp"
//	    "github.com/xraph/cdp/inscription"
//	    "github.com/xraph/cdp/natsrelay"
//	    "github.com/xraph/cdp/store/memory"
//	)
//
//	node, err := natsrelay.Dial(ctx, nats.DefaultURL, natsrelay.DefaultStream)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	l := cdp.New(memory.New(), inscription.NewJSON(), node)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Positions
//
// Open locks at least MinCollateral and returns a sequential id:
//
//	cdpID, err := l.Open(ctx, "alice", cdp.MustParseAmount("15"))
//
// Drawing debt is only allowed while collateral/debt stays at or above
// MinCollateralRatio (1.5):
//
//	err = l.DrawDebt(ctx, cdpID, cdp.MustParseAmount("10")) // ratio 1.5, ok
//	err = l.DrawDebt(ctx, cdpID, cdp.MustParseAmount("1"))  // ErrInsufficientCollateral
//
// Withdraw only checks the collateral balance, so it can leave a position
// under-collateralized. Such a position is not liquidated until someone
// calls CheckForLiquidation.
//
// # Interest
//
// AccrueInterest adds debt * InterestRate * elapsed / year once at least
// AccrualPeriod (24h) has passed since the last accrual:
//
//	interest, err := l.AccrueInterest(ctx, cdpID)
//
// WithAccrualInterval runs the same accrual over all positions in the
// background.
//
// # Liquidation
//
// CheckForLiquidation liquidates an unsafe position; Liquidate does so
// unconditionally. The position snapshot is inscribed, the position is
// removed and the inscription payload is queued for the settlement node.
// The returned liquidation record tracks the settlement outcome:
//
//	liq, err := l.CheckForLiquidation(ctx, cdpID)
//	if liq != nil {
//	    fmt.Println(liq.ID, liq.Status)
//	}
//
// # Plugins
//
// Plugins implement any subset of the hook interfaces in the plugin
// package:
//
//	l := cdp.New(store, inscriber, node,
//	    cdp.WithPlugin(observability.NewMetricsExtension(
//	        observability.NewPrometheusFactory(prometheus.DefaultRegisterer))),
//	    cdp.WithPlugin(audithook.New(audithook.LogRecorder(logger))),
//	)
package cdp
