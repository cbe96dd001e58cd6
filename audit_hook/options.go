package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// actionCategories maps every known action to the category it is
// recorded under.
var actionCategories = map[string]string{
	ActionPositionOpened:      CategoryLending,
	ActionPositionClosed:      CategoryLending,
	ActionCollateralDeposited: CategoryLending,
	ActionCollateralWithdrawn: CategoryLending,
	ActionDebtDrawn:           CategoryLending,
	ActionDebtRepaid:          CategoryLending,
	ActionInterestAccrued:     CategoryLending,
	ActionOperationRejected:   CategoryRisk,
	ActionPositionLiquidated:  CategoryRisk,
	ActionSettlementSubmitted: CategorySettlement,
	ActionSettlementFailed:    CategorySettlement,
}

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions restricts auditing to the given actions.
// Without it every action is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithCategories restricts auditing to actions in the given categories,
// e.g. CategorySettlement for an operator-facing settlement trail.
func WithCategories(categories ...string) Option {
	return func(e *Extension) {
		want := make(map[string]bool, len(categories))
		for _, c := range categories {
			want[c] = true
		}
		e.enabled = make(map[string]bool)
		for a, c := range actionCategories {
			if want[c] {
				e.enabled[a] = true
			}
		}
	}
}

// WithDisabledActions skips the given actions.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = make(map[string]bool, len(actionCategories))
			for a := range actionCategories {
				e.enabled[a] = true
			}
		}
		for _, a := range actions {
			delete(e.enabled, a)
		}
	}
}
