package cdp

import "github.com/xraph/cdp/id"

// CDPID identifies a collateralized debt position, e.g. "CDP-1".
type CDPID = id.CDPID

// ID is the TypeID-based identifier used for liquidation records.
type ID = id.ID
