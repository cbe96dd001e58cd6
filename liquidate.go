package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
	"github.com/xraph/cdp/types"
)

// CheckForLiquidation liquidates the position if its collateral no longer
// covers its debt at the minimum ratio. It returns nil when the position
// is safe. This is the only way a ratio breach has consequences; the
// ledger never liquidates on its own.
func (l *Ledger) CheckForLiquidation(ctx context.Context, cdpID id.CDPID) (*liquidation.Liquidation, error) {
	return l.liquidate(ctx, "check_for_liquidation", cdpID, true)
}

// Liquidate unconditionally liquidates the position: the snapshot is
// inscribed, the position is removed and the payload is queued for the
// settlement node. Settlement happens in the background; its outcome is
// written to the returned record's history entry and reported to plugins.
// If inscription fails the position is kept and an ErrInscription error
// is returned.
func (l *Ledger) Liquidate(ctx context.Context, cdpID id.CDPID) (*liquidation.Liquidation, error) {
	return l.liquidate(ctx, "liquidate", cdpID, false)
}

// GetLiquidation returns a liquidation history entry.
func (l *Ledger) GetLiquidation(ctx context.Context, liqID id.LiquidationID) (*liquidation.Liquidation, error) {
	liq, err := l.store.GetLiquidation(ctx, liqID)
	if err != nil {
		return nil, fmt.Errorf("get liquidation %s: %w", liqID, err)
	}
	return liq, nil
}

// ListLiquidations returns liquidation history entries oldest first.
func (l *Ledger) ListLiquidations(ctx context.Context, opts liquidation.ListOpts) ([]*liquidation.Liquidation, error) {
	return l.store.ListLiquidations(ctx, opts)
}

func (l *Ledger) liquidate(ctx context.Context, op string, cdpID id.CDPID, onlyIfUnsafe bool) (*liquidation.Liquidation, error) {
	l.mu.Lock()
	p, err := l.loadLocked(ctx, cdpID)
	if err != nil {
		l.mu.Unlock()
		return nil, l.rejected(ctx, op, cdpID, fmt.Errorf("%s %s: %w", op, cdpID, err))
	}

	if onlyIfUnsafe && l.params.IsCollateralSufficient(p.Collateral, p.Debt) {
		l.mu.Unlock()
		l.logger.Debug("position is safe",
			"cdp_id", cdpID,
			"collateral", p.Collateral.String(),
			"debt", p.Debt.String(),
		)
		return nil, nil
	}

	liq, queueErr, err := l.liquidateLocked(ctx, p)
	l.mu.Unlock()

	if err != nil {
		return nil, l.rejected(ctx, op, cdpID, fmt.Errorf("%s %s: %w", op, cdpID, err))
	}

	l.logger.Info("position liquidated",
		"cdp_id", cdpID,
		"liquidation_id", liq.ID,
		"collateral", liq.Snapshot.Collateral.String(),
		"debt", liq.Snapshot.Debt.String(),
	)
	l.plugins.EmitLiquidated(ctx, liq.Clone())

	if queueErr != nil {
		l.settlementFailed(liq, queueErr)
	}

	return liq.Clone(), nil
}

// liquidateLocked inscribes and removes p, records the liquidation and
// queues its settlement. The caller holds l.mu. A non-nil queueErr means
// the position is gone but settlement could not be queued.
func (l *Ledger) liquidateLocked(ctx context.Context, p *position.Position) (liq *liquidation.Liquidation, queueErr, err error) {
	if l.inscriber == nil {
		return nil, nil, fmt.Errorf("%w: no inscriber configured", ErrInscription)
	}

	payload, err := l.inscriber.CreateInscription(ctx, p.ID, p.Collateral, p.Debt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInscription, err)
	}

	if err := l.store.DeletePosition(ctx, p.ID); err != nil {
		return nil, nil, err
	}

	liq = &liquidation.Liquidation{
		Entity: types.NewEntity(l.clock.Now()),
		ID:     id.NewLiquidationID(),
		Snapshot: liquidation.Snapshot{
			CDPID:      p.ID,
			Owner:      p.Owner,
			Collateral: p.Collateral,
			Debt:       p.Debt,
		},
		Payload: payload,
		Status:  liquidation.StatusPending,
	}
	if err := l.store.CreateLiquidation(ctx, liq); err != nil {
		l.logger.Warn("failed to record liquidation",
			"liquidation_id", liq.ID,
			"cdp_id", p.ID,
			"error", err,
		)
	}

	queued := liq.Clone()
	select {
	case l.settlements <- queued:
		return liq, nil, nil
	default:
		return liq, ErrSettlementQueueFull, nil
	}
}

// settlementWorker submits queued liquidation payloads one at a time.
func (l *Ledger) settlementWorker() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			l.drainSettlements()
			return

		case liq := <-l.settlements:
			l.settle(liq)
		}
	}
}

// drainSettlements submits everything still queued.
func (l *Ledger) drainSettlements() {
	for {
		select {
		case liq := <-l.settlements:
			l.settle(liq)
		default:
			return
		}
	}
}

func (l *Ledger) settle(liq *liquidation.Liquidation) {
	if l.node == nil {
		l.settlementFailed(liq, errors.New("no settlement node configured"))
		return
	}

	ctx, cancel := context.WithTimeout(l.baseCtx, l.settlementTimeout)
	defer cancel()

	start := time.Now()
	txID, err := l.node.Submit(ctx, liq.Payload)
	elapsed := time.Since(start)
	if err != nil {
		l.settlementFailed(liq, err)
		return
	}

	now := l.clock.Now()
	liq.Status = liquidation.StatusSubmitted
	liq.TxID = txID
	liq.SubmittedAt = now
	liq.Touch(now)
	l.saveLiquidation(liq)

	l.logger.Info("liquidation submitted",
		"liquidation_id", liq.ID,
		"cdp_id", liq.Snapshot.CDPID,
		"tx_id", txID,
		"elapsed", elapsed,
	)
	l.plugins.EmitSettlementSubmitted(l.baseCtx, liq.Clone(), elapsed)
}

// settlementFailed records and reports a settlement that did not happen.
// The position stays removed and nothing is retried.
func (l *Ledger) settlementFailed(liq *liquidation.Liquidation, cause error) {
	err := fmt.Errorf("%w: %w", ErrSubmission, cause)

	liq.Status = liquidation.StatusFailed
	liq.Error = err.Error()
	liq.Touch(l.clock.Now())
	l.saveLiquidation(liq)

	l.logger.Error("liquidation settlement failed",
		"liquidation_id", liq.ID,
		"cdp_id", liq.Snapshot.CDPID,
		"error", err,
	)
	l.plugins.EmitSettlementFailed(l.baseCtx, liq.Clone(), err)
}

func (l *Ledger) saveLiquidation(liq *liquidation.Liquidation) {
	if err := l.store.UpdateLiquidation(l.baseCtx, liq); err != nil {
		l.logger.Warn("failed to update liquidation",
			"liquidation_id", liq.ID,
			"status", liq.Status,
			"error", err,
		)
	}
}

// accrualKeeper periodically accrues interest on every open position.
func (l *Ledger) accrualKeeper() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.accrualInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return

		case <-ticker.C:
			total, err := l.AccrueAll(l.baseCtx)
			if err != nil && !errors.Is(err, ErrStopped) {
				l.logger.Warn("interest accrual sweep failed", "error", err)
			}
			if !total.IsZero() {
				l.logger.Debug("interest accrual sweep", "interest", total.String())
			}
		}
	}
}
