package store

import (
	"context"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
)

// Store is the unified storage interface for all ledger entities.
// Methods are declared explicitly rather than by embedding the entity
// interfaces so that their names cannot collide.
type Store interface {
	// Position methods
	CreatePosition(ctx context.Context, p *position.Position) error
	GetPosition(ctx context.Context, cdpID id.CDPID) (*position.Position, error)
	ListPositions(ctx context.Context, opts position.ListOpts) ([]*position.Position, error)
	UpdatePosition(ctx context.Context, p *position.Position) error
	DeletePosition(ctx context.Context, cdpID id.CDPID) error

	// Liquidation methods
	CreateLiquidation(ctx context.Context, l *liquidation.Liquidation) error
	GetLiquidation(ctx context.Context, liqID id.LiquidationID) (*liquidation.Liquidation, error)
	ListLiquidations(ctx context.Context, opts liquidation.ListOpts) ([]*liquidation.Liquidation, error)
	UpdateLiquidation(ctx context.Context, l *liquidation.Liquidation) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
