// Package plugin provides an extensible plugin system for the CDP ledger.
// Plugins can hook into position lifecycle and settlement events to
// extend functionality. Hooks are notifications: a hook error is logged
// and never changes the outcome of the ledger operation that raised it.
package plugin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Position hooks
// ──────────────────────────────────────────────────

// OnPositionOpened is called after a position is opened.
type OnPositionOpened interface {
	Plugin
	OnPositionOpened(ctx context.Context, p *position.Position) error
}

// OnPositionClosed is called after a debt-free position is closed.
// released is the collateral handed back to the owner.
type OnPositionClosed interface {
	Plugin
	OnPositionClosed(ctx context.Context, p *position.Position, released decimal.Decimal) error
}

// OnCollateralChanged is called after a deposit (positive delta) or a
// withdrawal (negative delta) is committed.
type OnCollateralChanged interface {
	Plugin
	OnCollateralChanged(ctx context.Context, p *position.Position, delta decimal.Decimal) error
}

// OnDebtChanged is called after debt is drawn (positive delta) or
// repaid (negative delta).
type OnDebtChanged interface {
	Plugin
	OnDebtChanged(ctx context.Context, p *position.Position, delta decimal.Decimal) error
}

// OnInterestAccrued is called after interest has been added to debt.
type OnInterestAccrued interface {
	Plugin
	OnInterestAccrued(ctx context.Context, p *position.Position, interest decimal.Decimal, elapsed time.Duration) error
}

// OnOperationRejected is called when an operation fails its checks, for
// example a debt draw that would breach the collateral ratio.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, cdpID id.CDPID, err error) error
}

// ──────────────────────────────────────────────────
// Liquidation hooks
// ──────────────────────────────────────────────────

// OnLiquidated is called once a position has been removed and its
// settlement queued.
type OnLiquidated interface {
	Plugin
	OnLiquidated(ctx context.Context, l *liquidation.Liquidation) error
}

// OnSettlementSubmitted is called when the settlement node accepts a
// liquidation payload.
type OnSettlementSubmitted interface {
	Plugin
	OnSettlementSubmitted(ctx context.Context, l *liquidation.Liquidation, elapsed time.Duration) error
}

// OnSettlementFailed is called when a liquidation payload could not be
// submitted. The position is already gone; nothing is retried.
type OnSettlementFailed interface {
	Plugin
	OnSettlementFailed(ctx context.Context, l *liquidation.Liquidation, err error) error
}
