// Package liquidation records forced closures of undercollateralized
// positions and the outcome of their settlement.
package liquidation

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/types"
)

type Status string

const (
	// StatusPending means the payload is queued for the settlement node.
	StatusPending Status = "pending"
	// StatusSubmitted means the settlement node accepted the payload.
	StatusSubmitted Status = "submitted"
	// StatusFailed means submission failed. The ledger does not retry.
	StatusFailed Status = "failed"
)

// Snapshot is the state of a position at the moment it was liquidated.
type Snapshot struct {
	CDPID      id.CDPID        `json:"id"`
	Owner      string          `json:"owner"`
	Collateral decimal.Decimal `json:"collateral"`
	Debt       decimal.Decimal `json:"debt"`
}

// Liquidation is the history entry written for every liquidation.
type Liquidation struct {
	types.Entity
	ID          id.LiquidationID `json:"id"`
	Snapshot    Snapshot         `json:"snapshot"`
	Payload     []byte           `json:"payload"`
	Status      Status           `json:"status"`
	TxID        string           `json:"tx_id,omitempty"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt int64            `json:"submitted_at,omitempty"`
}

// Clone returns a deep copy of l.
func (l *Liquidation) Clone() *Liquidation {
	if l == nil {
		return nil
	}
	c := *l
	if l.Payload != nil {
		c.Payload = append([]byte(nil), l.Payload...)
	}
	return &c
}

// IsSettled reports whether the settlement outcome is known.
func (l *Liquidation) IsSettled() bool {
	return l.Status == StatusSubmitted || l.Status == StatusFailed
}
