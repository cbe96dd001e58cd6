package position

import (
	"context"

	"github.com/xraph/cdp/id"
)

type Store interface {
	Create(ctx context.Context, p *Position) error
	Get(ctx context.Context, cdpID id.CDPID) (*Position, error)
	List(ctx context.Context, opts ListOpts) ([]*Position, error)
	Update(ctx context.Context, p *Position) error
	Delete(ctx context.Context, cdpID id.CDPID) error
}

// ListOpts filters List results. Results are ordered by id sequence.
type ListOpts struct {
	Owner  string
	Limit  int
	Offset int
}
