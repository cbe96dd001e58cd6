package cdp

import (
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
	"github.com/xraph/cdp/types"
)

// Re-export common types so users don't have to import every subpackage.

// Position is re-exported from the position package.
type Position = position.Position

// Liquidation is re-exported from the liquidation package.
type Liquidation = liquidation.Liquidation

// Amount is re-exported from the types package.
type Amount = types.Amount

// Re-export amount helpers.
var (
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
	NewAmount       = types.NewAmount
)
