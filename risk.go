package cdp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AccrualPeriod is the minimum time between two interest additions.
	AccrualPeriod = 24 * time.Hour

	// RatioPrecision is the number of decimal places kept when dividing
	// collateral by debt or prorating interest. Rounding is half away
	// from zero, which is half-up for the non-negative balances the
	// ledger holds.
	RatioPrecision int32 = 18

	msPerYear int64 = 365 * 24 * 60 * 60 * 1000
)

var (
	// MinCollateral is the smallest collateral a position can be opened with.
	MinCollateral = decimal.NewFromInt(1)

	// MinCollateralRatio is the collateral/debt ratio below which a
	// position may be liquidated.
	MinCollateralRatio = decimal.RequireFromString("1.5")

	// InterestRate is the simple annual rate charged on debt.
	InterestRate = decimal.RequireFromString("0.05")
)

// Params holds the risk parameters a Ledger enforces.
type Params struct {
	MinCollateral      decimal.Decimal
	MinCollateralRatio decimal.Decimal
	InterestRate       decimal.Decimal
	AccrualPeriod      time.Duration
	Precision          int32
}

// DefaultParams returns the standard parameters: minimum collateral 1,
// ratio 1.5, 5% annual interest accrued at most once a day.
func DefaultParams() Params {
	return Params{
		MinCollateral:      MinCollateral,
		MinCollateralRatio: MinCollateralRatio,
		InterestRate:       InterestRate,
		AccrualPeriod:      AccrualPeriod,
		Precision:          RatioPrecision,
	}
}

// Validate checks that p describes a usable risk model.
func (p Params) Validate() error {
	var errs MultiError
	if p.MinCollateral.Sign() < 0 {
		errs.Add(ValidationError{Field: "min_collateral", Message: "must not be negative"})
	}
	if p.MinCollateralRatio.Sign() <= 0 {
		errs.Add(ValidationError{Field: "min_collateral_ratio", Message: "must be positive"})
	}
	if p.InterestRate.Sign() < 0 {
		errs.Add(ValidationError{Field: "interest_rate", Message: "must not be negative"})
	}
	if p.AccrualPeriod < time.Millisecond {
		errs.Add(ValidationError{Field: "accrual_period", Message: "must be at least 1ms"})
	}
	if p.Precision < 0 {
		errs.Add(ValidationError{Field: "precision", Message: "must not be negative"})
	}
	if errs.HasErrors() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errs)
	}
	return nil
}

// Ratio returns collateral/debt rounded to p.Precision places. ok is
// false when debt is zero and the ratio is undefined.
func (p Params) Ratio(collateral, debt decimal.Decimal) (ratio decimal.Decimal, ok bool) {
	if debt.IsZero() {
		return decimal.Zero, false
	}
	return collateral.DivRound(debt, p.Precision), true
}

// IsCollateralSufficient reports whether collateral backs debt at or
// above p.MinCollateralRatio. Zero debt is always sufficiently backed.
func (p Params) IsCollateralSufficient(collateral, debt decimal.Decimal) bool {
	ratio, ok := p.Ratio(collateral, debt)
	if !ok {
		return true
	}
	return ratio.GreaterThanOrEqual(p.MinCollateralRatio)
}

// Interest returns the simple interest owed on debt after elapsedMs
// milliseconds, or zero while less than one accrual period has passed.
// Missed periods are not compounded: the whole elapsed span is prorated
// in one step.
func (p Params) Interest(debt decimal.Decimal, elapsedMs int64) decimal.Decimal {
	if elapsedMs < p.AccrualPeriod.Milliseconds() {
		return decimal.Zero
	}
	return debt.
		Mul(p.InterestRate).
		Mul(decimal.NewFromInt(elapsedMs)).
		DivRound(decimal.NewFromInt(msPerYear), p.Precision)
}

// IsCollateralSufficient applies DefaultParams to collateral and debt.
func IsCollateralSufficient(collateral, debt decimal.Decimal) bool {
	return DefaultParams().IsCollateralSufficient(collateral, debt)
}

// validateAmount rejects negative amounts supplied by callers.
func validateAmount(field string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must not be negative, got %s", amount),
			Err:     ErrInvalidAmount,
		}
	}
	return nil
}
