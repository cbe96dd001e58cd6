package audithook

// Action constants for audit events.
const (
	// Position actions
	ActionPositionOpened = "position.opened"
	ActionPositionClosed = "position.closed"

	// Balance actions
	ActionCollateralDeposited = "collateral.deposited"
	ActionCollateralWithdrawn = "collateral.withdrawn"
	ActionDebtDrawn           = "debt.drawn"
	ActionDebtRepaid          = "debt.repaid"
	ActionInterestAccrued     = "interest.accrued"
	ActionOperationRejected   = "operation.rejected"

	// Liquidation actions
	ActionPositionLiquidated  = "position.liquidated"
	ActionSettlementSubmitted = "settlement.submitted"
	ActionSettlementFailed    = "settlement.failed"
)

// Resource constants for audit events.
const (
	ResourcePosition    = "position"
	ResourceLiquidation = "liquidation"
)

// Category constants for audit events.
const (
	CategoryLending    = "lending"
	CategoryRisk       = "risk"
	CategorySettlement = "settlement"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
