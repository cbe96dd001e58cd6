// Package position defines the collateralized debt position record and
// its storage contract.
package position

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/types"
)

// Position is a collateralized debt position: collateral pledged by an
// owner against debt drawn from the ledger. Collateral and debt are never
// negative once committed.
type Position struct {
	types.Entity
	ID                  id.CDPID        `json:"id"`
	Owner               string          `json:"owner"`
	Collateral          decimal.Decimal `json:"collateral"`
	Debt                decimal.Decimal `json:"debt"`
	LastInterestAccrual int64           `json:"last_interest_accrual"`
}

// Clone returns a copy of p that shares no mutable state with it.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// HasDebt reports whether any debt is outstanding.
func (p *Position) HasDebt() bool {
	return !p.Debt.IsZero()
}
