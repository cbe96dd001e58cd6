// Package observability provides a metrics extension for the CDP ledger
// that records lifecycle event counts and amounts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/plugin"
	"github.com/xraph/cdp/position"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnPositionOpened      = (*MetricsExtension)(nil)
	_ plugin.OnPositionClosed      = (*MetricsExtension)(nil)
	_ plugin.OnCollateralChanged   = (*MetricsExtension)(nil)
	_ plugin.OnDebtChanged         = (*MetricsExtension)(nil)
	_ plugin.OnInterestAccrued     = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected   = (*MetricsExtension)(nil)
	_ plugin.OnLiquidated          = (*MetricsExtension)(nil)
	_ plugin.OnSettlementSubmitted = (*MetricsExtension)(nil)
	_ plugin.OnSettlementFailed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Gauge interface for metric gauges.
type Gauge interface {
	Inc()
	Dec()
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Gauge(name string) Gauge
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide lifecycle metrics.
// Register it as a ledger plugin to track position and settlement activity.
// Amount counters are fed with float approximations of the exact balances
// and are meant for dashboards, not reconciliation.
type MetricsExtension struct {
	// Position metrics
	PositionOpened Counter
	PositionClosed Counter
	OpenPositions  Gauge

	// Balance metrics
	CollateralDeposited Counter
	CollateralWithdrawn Counter
	DebtDrawn           Counter
	DebtRepaid          Counter
	InterestAccrued     Counter
	InterestAccruals    Counter

	// Liquidation metrics
	Liquidations       Counter
	LiquidatedDebt     Counter
	SettlementSuccess  Counter
	SettlementFailure  Counter
	SettlementLatency  Histogram
	OperationsRejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		// Position metrics
		PositionOpened: factory.Counter("cdp.position.opened"),
		PositionClosed: factory.Counter("cdp.position.closed"),
		OpenPositions:  factory.Gauge("cdp.position.open"),

		// Balance metrics
		CollateralDeposited: factory.Counter("cdp.collateral.deposited"),
		CollateralWithdrawn: factory.Counter("cdp.collateral.withdrawn"),
		DebtDrawn:           factory.Counter("cdp.debt.drawn"),
		DebtRepaid:          factory.Counter("cdp.debt.repaid"),
		InterestAccrued:     factory.Counter("cdp.interest.accrued"),
		InterestAccruals:    factory.Counter("cdp.interest.accruals"),

		// Liquidation metrics
		Liquidations:       factory.Counter("cdp.liquidation.count"),
		LiquidatedDebt:     factory.Counter("cdp.liquidation.debt"),
		SettlementSuccess:  factory.Counter("cdp.settlement.submitted"),
		SettlementFailure:  factory.Counter("cdp.settlement.failed"),
		SettlementLatency:  factory.Histogram("cdp.settlement.latency_ms"),
		OperationsRejected: factory.Counter("cdp.operation.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ──────────────────────────────────────────────────
// Position lifecycle hooks
// ──────────────────────────────────────────────────

// OnPositionOpened implements plugin.OnPositionOpened.
func (m *MetricsExtension) OnPositionOpened(_ context.Context, p *position.Position) error {
	m.PositionOpened.Inc()
	m.OpenPositions.Inc()
	m.CollateralDeposited.Add(p.Collateral.InexactFloat64())
	return nil
}

// OnPositionClosed implements plugin.OnPositionClosed.
func (m *MetricsExtension) OnPositionClosed(_ context.Context, _ *position.Position, released decimal.Decimal) error {
	m.PositionClosed.Inc()
	m.OpenPositions.Dec()
	m.CollateralWithdrawn.Add(released.InexactFloat64())
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnCollateralChanged implements plugin.OnCollateralChanged.
func (m *MetricsExtension) OnCollateralChanged(_ context.Context, _ *position.Position, delta decimal.Decimal) error {
	if delta.Sign() >= 0 {
		m.CollateralDeposited.Add(delta.InexactFloat64())
	} else {
		m.CollateralWithdrawn.Add(delta.Neg().InexactFloat64())
	}
	return nil
}

// OnDebtChanged implements plugin.OnDebtChanged.
func (m *MetricsExtension) OnDebtChanged(_ context.Context, _ *position.Position, delta decimal.Decimal) error {
	if delta.Sign() >= 0 {
		m.DebtDrawn.Add(delta.InexactFloat64())
	} else {
		m.DebtRepaid.Add(delta.Neg().InexactFloat64())
	}
	return nil
}

// OnInterestAccrued implements plugin.OnInterestAccrued.
func (m *MetricsExtension) OnInterestAccrued(_ context.Context, _ *position.Position, interest decimal.Decimal, _ time.Duration) error {
	m.InterestAccruals.Inc()
	m.InterestAccrued.Add(interest.InexactFloat64())
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ id.CDPID, _ error) error {
	m.OperationsRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Liquidation hooks
// ──────────────────────────────────────────────────

// OnLiquidated implements plugin.OnLiquidated.
func (m *MetricsExtension) OnLiquidated(_ context.Context, l *liquidation.Liquidation) error {
	m.Liquidations.Inc()
	m.OpenPositions.Dec()
	m.LiquidatedDebt.Add(l.Snapshot.Debt.InexactFloat64())
	return nil
}

// OnSettlementSubmitted implements plugin.OnSettlementSubmitted.
func (m *MetricsExtension) OnSettlementSubmitted(_ context.Context, _ *liquidation.Liquidation, elapsed time.Duration) error {
	m.SettlementSuccess.Inc()
	m.SettlementLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (m *MetricsExtension) OnSettlementFailed(_ context.Context, _ *liquidation.Liquidation, _ error) error {
	m.SettlementFailure.Inc()
	return nil
}
