package cdp

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
)

// Inscriber turns a liquidation snapshot into the opaque payload handed
// to the settlement node. It is called synchronously while the ledger
// decides a liquidation; an error aborts the liquidation and leaves the
// position in place.
type Inscriber interface {
	CreateInscription(ctx context.Context, cdpID id.CDPID, collateral, debt decimal.Decimal) ([]byte, error)
}

// InscriberFunc adapts a function to the Inscriber interface.
type InscriberFunc func(ctx context.Context, cdpID id.CDPID, collateral, debt decimal.Decimal) ([]byte, error)

// CreateInscription calls f.
func (f InscriberFunc) CreateInscription(ctx context.Context, cdpID id.CDPID, collateral, debt decimal.Decimal) ([]byte, error) {
	return f(ctx, cdpID, collateral, debt)
}

// SettlementNode submits inscription payloads for external settlement and
// returns the resulting transaction id. The ledger calls it from a
// background worker after the liquidated position is already gone.
type SettlementNode interface {
	Submit(ctx context.Context, payload []byte) (txID string, err error)
}

// SettlementNodeFunc adapts a function to the SettlementNode interface.
type SettlementNodeFunc func(ctx context.Context, payload []byte) (string, error)

// Submit calls f.
func (f SettlementNodeFunc) Submit(ctx context.Context, payload []byte) (string, error) {
	return f(ctx, payload)
}
