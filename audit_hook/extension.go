// Package audithook bridges CDP ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter, or
// use LogRecorder to write the trail through slog.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/plugin"
	"github.com/xraph/cdp/position"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnPositionOpened      = (*Extension)(nil)
	_ plugin.OnPositionClosed      = (*Extension)(nil)
	_ plugin.OnCollateralChanged   = (*Extension)(nil)
	_ plugin.OnDebtChanged         = (*Extension)(nil)
	_ plugin.OnInterestAccrued     = (*Extension)(nil)
	_ plugin.OnOperationRejected   = (*Extension)(nil)
	_ plugin.OnLiquidated          = (*Extension)(nil)
	_ plugin.OnSettlementSubmitted = (*Extension)(nil)
	_ plugin.OnSettlementFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events as structured log records. A nil logger
// uses slog.Default().
func LogRecorder(logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		level := slog.LevelInfo
		switch event.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityError, SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", event.Action),
			slog.String("resource", event.Resource),
			slog.String("resource_id", event.ResourceID),
			slog.String("category", event.Category),
			slog.String("outcome", event.Outcome),
			slog.String("reason", event.Reason),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	})
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Position lifecycle hooks
// ──────────────────────────────────────────────────

// OnPositionOpened implements plugin.OnPositionOpened.
func (e *Extension) OnPositionOpened(ctx context.Context, p *position.Position) error {
	return e.record(ctx, ActionPositionOpened, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryLending, nil,
		"owner", p.Owner,
		"collateral", p.Collateral.String(),
	)
}

// OnPositionClosed implements plugin.OnPositionClosed.
func (e *Extension) OnPositionClosed(ctx context.Context, p *position.Position, released decimal.Decimal) error {
	return e.record(ctx, ActionPositionClosed, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryLending, nil,
		"owner", p.Owner,
		"released", released.String(),
	)
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnCollateralChanged implements plugin.OnCollateralChanged.
func (e *Extension) OnCollateralChanged(ctx context.Context, p *position.Position, delta decimal.Decimal) error {
	action := ActionCollateralDeposited
	if delta.Sign() < 0 {
		action = ActionCollateralWithdrawn
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryLending, nil,
		"amount", delta.Abs().String(),
		"collateral", p.Collateral.String(),
		"debt", p.Debt.String(),
	)
}

// OnDebtChanged implements plugin.OnDebtChanged.
func (e *Extension) OnDebtChanged(ctx context.Context, p *position.Position, delta decimal.Decimal) error {
	action := ActionDebtDrawn
	if delta.Sign() < 0 {
		action = ActionDebtRepaid
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryLending, nil,
		"amount", delta.Abs().String(),
		"collateral", p.Collateral.String(),
		"debt", p.Debt.String(),
	)
}

// OnInterestAccrued implements plugin.OnInterestAccrued.
func (e *Extension) OnInterestAccrued(ctx context.Context, p *position.Position, interest decimal.Decimal, elapsed time.Duration) error {
	return e.record(ctx, ActionInterestAccrued, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryLending, nil,
		"interest", interest.String(),
		"elapsed_ms", elapsed.Milliseconds(),
		"debt", p.Debt.String(),
	)
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, cdpID id.CDPID, err error) error {
	return e.record(ctx, ActionOperationRejected, SeverityWarning, OutcomeFailure,
		ResourcePosition, cdpID.String(), CategoryRisk, err,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Liquidation hooks
// ──────────────────────────────────────────────────

// OnLiquidated implements plugin.OnLiquidated.
func (e *Extension) OnLiquidated(ctx context.Context, l *liquidation.Liquidation) error {
	return e.record(ctx, ActionPositionLiquidated, SeverityWarning, OutcomeSuccess,
		ResourceLiquidation, l.ID.String(), CategoryRisk, nil,
		"cdp_id", l.Snapshot.CDPID.String(),
		"owner", l.Snapshot.Owner,
		"collateral", l.Snapshot.Collateral.String(),
		"debt", l.Snapshot.Debt.String(),
	)
}

// OnSettlementSubmitted implements plugin.OnSettlementSubmitted.
func (e *Extension) OnSettlementSubmitted(ctx context.Context, l *liquidation.Liquidation, elapsed time.Duration) error {
	return e.record(ctx, ActionSettlementSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceLiquidation, l.ID.String(), CategorySettlement, nil,
		"cdp_id", l.Snapshot.CDPID.String(),
		"tx_id", l.TxID,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (e *Extension) OnSettlementFailed(ctx context.Context, l *liquidation.Liquidation, err error) error {
	return e.record(ctx, ActionSettlementFailed, SeverityCritical, OutcomeFailure,
		ResourceLiquidation, l.ID.String(), CategorySettlement, err,
		"cdp_id", l.Snapshot.CDPID.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
