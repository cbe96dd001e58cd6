package liquidation

import (
	"context"

	"github.com/xraph/cdp/id"
)

type Store interface {
	Create(ctx context.Context, l *Liquidation) error
	Get(ctx context.Context, liqID id.LiquidationID) (*Liquidation, error)
	List(ctx context.Context, opts ListOpts) ([]*Liquidation, error)
	Update(ctx context.Context, l *Liquidation) error
}

// ListOpts filters List results. Results are ordered by creation time.
type ListOpts struct {
	CDPID  id.CDPID
	Status Status
	Limit  int
	Offset int
}
