package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/clock"
	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/plugin"
	"github.com/xraph/cdp/position"
	"github.com/xraph/cdp/store"
	"github.com/xraph/cdp/types"
)

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateRunning
	stateStopped
)

// Ledger owns every collateralized debt position in the process. All
// operations are serialized by a single mutex, so each read-check-write
// sequence is atomic with respect to every other operation.
type Ledger struct {
	mu    sync.Mutex
	state lifecycle
	seq   id.Sequence

	store     store.Store
	inscriber Inscriber
	node      SettlementNode
	clock     clock.Clock
	params    Params
	plugins   *plugin.Registry
	logger    *slog.Logger

	// Background workers
	baseCtx     context.Context
	settlements chan *liquidation.Liquidation
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// Configuration
	settlementBuffer  int
	settlementTimeout time.Duration
	accrualInterval   time.Duration
}

// New creates a new Ledger. The inscriber and settlement node are the
// outbound ports used by liquidation.
func New(s store.Store, inscriber Inscriber, node SettlementNode, opts ...Option) *Ledger {
	l := &Ledger{
		store:             s,
		inscriber:         inscriber,
		node:              node,
		clock:             clock.System{},
		params:            DefaultParams(),
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		baseCtx:           context.Background(),
		stopChan:          make(chan struct{}),
		settlementBuffer:  1024,
		settlementTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.settlements = make(chan *liquidation.Liquidation, l.settlementBuffer)

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithClock sets the time source used for timestamps and accrual.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithParams replaces the default risk parameters.
func WithParams(p Params) Option {
	return func(l *Ledger) {
		l.params = p
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSettlementConfig sizes the settlement queue and bounds each call to
// the settlement node. Non-positive values keep the defaults.
func WithSettlementConfig(buffer int, timeout time.Duration) Option {
	return func(l *Ledger) {
		if buffer > 0 {
			l.settlementBuffer = buffer
		}
		if timeout > 0 {
			l.settlementTimeout = timeout
		}
	}
}

// WithAccrualInterval makes Start run a keeper that accrues interest on
// every open position each interval. The keeper never liquidates.
func WithAccrualInterval(d time.Duration) Option {
	return func(l *Ledger) {
		l.accrualInterval = d
	}
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Clock returns the time source the ledger stamps positions with.
func (l *Ledger) Clock() clock.Clock { return l.clock }

// Params returns the risk parameters in force.
func (l *Ledger) Params() Params { return l.params }

// Start begins background workers. Positions can be used before Start;
// liquidations queued in the meantime are submitted once it runs.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.params.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	switch l.state {
	case stateRunning:
		l.mu.Unlock()
		return fmt.Errorf("cdp: ledger already started: %w", ErrAlreadyExists)
	case stateStopped:
		l.mu.Unlock()
		return ErrStopped
	}

	if err := l.store.Migrate(ctx); err != nil {
		l.mu.Unlock()
		return err
	}

	l.wg.Add(1)
	go l.settlementWorker()

	if l.accrualInterval > 0 {
		l.wg.Add(1)
		go l.accrualKeeper()
	}

	l.state = stateRunning
	l.mu.Unlock()

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("cdp ledger started",
		"settlement_buffer", l.settlementBuffer,
		"settlement_timeout", l.settlementTimeout,
		"accrual_interval", l.accrualInterval,
		"min_collateral_ratio", l.params.MinCollateralRatio.String(),
	)

	return nil
}

// Stop shuts down the Ledger. Queued settlements are submitted before it
// returns and the store is closed. Once Stop has been called every
// mutating operation fails with ErrStopped; reads keep working.
func (l *Ledger) Stop() error {
	l.mu.Lock()
	if l.state == stateStopped {
		l.mu.Unlock()
		return nil
	}
	wasRunning := l.state == stateRunning
	l.state = stateStopped
	l.mu.Unlock()

	close(l.stopChan)
	if wasRunning {
		l.wg.Wait()
	} else {
		l.drainSettlements()
	}

	l.plugins.EmitShutdown(l.baseCtx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Position lifecycle
// ──────────────────────────────────────────────────

// Open creates a position for owner backed by collateral, which must be
// at least the minimum collateral. The position starts without debt.
func (l *Ledger) Open(ctx context.Context, owner string, collateral decimal.Decimal) (id.CDPID, error) {
	if collateral.LessThan(l.params.MinCollateral) {
		err := ValidationError{
			Field:   "collateral",
			Message: fmt.Sprintf("must be at least %s, got %s", l.params.MinCollateral, collateral),
			Err:     ErrInvalidAmount,
		}
		return "", l.rejected(ctx, "open", "", err)
	}

	l.mu.Lock()
	if l.state == stateStopped {
		l.mu.Unlock()
		return "", l.rejected(ctx, "open", "", fmt.Errorf("open: %w", ErrStopped))
	}
	now := l.clock.Now()
	p := &position.Position{
		Entity:              types.NewEntity(now),
		ID:                  l.seq.Next(),
		Owner:               owner,
		Collateral:          collateral,
		Debt:                decimal.Zero,
		LastInterestAccrual: now,
	}
	err := l.store.CreatePosition(ctx, p)
	l.mu.Unlock()

	if err != nil {
		return "", l.rejected(ctx, "open", p.ID, fmt.Errorf("open %s: %w", p.ID, err))
	}

	l.logger.Debug("position opened",
		"cdp_id", p.ID,
		"owner", owner,
		"collateral", collateral.String(),
	)
	l.plugins.EmitPositionOpened(ctx, p)

	return p.ID, nil
}

// Close removes a debt-free position and returns the collateral released
// to its owner.
func (l *Ledger) Close(ctx context.Context, cdpID id.CDPID) (decimal.Decimal, error) {
	l.mu.Lock()
	p, err := l.loadLocked(ctx, cdpID)
	if err == nil && p.HasDebt() {
		err = fmt.Errorf("%w: %s owes %s", ErrOutstandingDebt, cdpID, p.Debt)
	}
	if err == nil {
		err = l.store.DeletePosition(ctx, cdpID)
	}
	l.mu.Unlock()

	if err != nil {
		return decimal.Zero, l.rejected(ctx, "close", cdpID, fmt.Errorf("close %s: %w", cdpID, err))
	}

	l.logger.Debug("position closed",
		"cdp_id", cdpID,
		"released", p.Collateral.String(),
	)
	l.plugins.EmitPositionClosed(ctx, p, p.Collateral)

	return p.Collateral, nil
}

// Get returns a copy of the position.
func (l *Ledger) Get(ctx context.Context, cdpID id.CDPID) (*position.Position, error) {
	p, err := l.store.GetPosition(ctx, cdpID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cdpID, err)
	}
	return p, nil
}

// List returns open positions ordered by id.
func (l *Ledger) List(ctx context.Context, opts position.ListOpts) ([]*position.Position, error) {
	return l.store.ListPositions(ctx, opts)
}

// Ratio returns the position's collateral/debt ratio. ok is false when
// the position has no debt.
func (l *Ledger) Ratio(ctx context.Context, cdpID id.CDPID) (ratio decimal.Decimal, ok bool, err error) {
	p, err := l.Get(ctx, cdpID)
	if err != nil {
		return decimal.Zero, false, err
	}
	ratio, ok = l.params.Ratio(p.Collateral, p.Debt)
	return ratio, ok, nil
}

// ──────────────────────────────────────────────────
// Collateral and debt
// ──────────────────────────────────────────────────

// Deposit adds amount to the position's collateral.
func (l *Ledger) Deposit(ctx context.Context, cdpID id.CDPID, amount decimal.Decimal) error {
	p, err := l.mutate(ctx, "deposit", cdpID, amount, func(p *position.Position) error {
		p.Collateral = p.Collateral.Add(amount)
		return nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitCollateralChanged(ctx, p, amount)
	return nil
}

// Withdraw removes amount from the position's collateral. Only the
// balance is checked: a withdrawal may leave the position below the
// minimum ratio, which is acted on by CheckForLiquidation.
func (l *Ledger) Withdraw(ctx context.Context, cdpID id.CDPID, amount decimal.Decimal) error {
	p, err := l.mutate(ctx, "withdraw", cdpID, amount, func(p *position.Position) error {
		next := p.Collateral.Sub(amount)
		if next.Sign() < 0 {
			return fmt.Errorf("%w: cannot withdraw %s from %s", ErrInsufficientCollateral, amount, p.Collateral)
		}
		p.Collateral = next
		return nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitCollateralChanged(ctx, p, amount.Neg())
	return nil
}

// DrawDebt adds amount to the position's debt if the collateral still
// covers the new debt at the minimum ratio.
func (l *Ledger) DrawDebt(ctx context.Context, cdpID id.CDPID, amount decimal.Decimal) error {
	p, err := l.mutate(ctx, "draw_debt", cdpID, amount, func(p *position.Position) error {
		next := p.Debt.Add(amount)
		if !l.params.IsCollateralSufficient(p.Collateral, next) {
			return fmt.Errorf("%w: collateral %s cannot back debt %s", ErrInsufficientCollateral, p.Collateral, next)
		}
		p.Debt = next
		return nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitDebtChanged(ctx, p, amount)
	return nil
}

// RepayDebt subtracts amount from the position's debt.
func (l *Ledger) RepayDebt(ctx context.Context, cdpID id.CDPID, amount decimal.Decimal) error {
	p, err := l.mutate(ctx, "repay_debt", cdpID, amount, func(p *position.Position) error {
		next := p.Debt.Sub(amount)
		if next.Sign() < 0 {
			return fmt.Errorf("%w: cannot repay %s of %s", ErrOverRepayment, amount, p.Debt)
		}
		p.Debt = next
		return nil
	})
	if err != nil {
		return err
	}

	l.plugins.EmitDebtChanged(ctx, p, amount.Neg())
	return nil
}

// AccrueInterest adds simple interest for the time since the last
// accrual, provided at least one accrual period has passed. It returns
// the interest added, which is zero when the call is gated or the
// position has no debt. Plugins only hear about non-zero accruals.
func (l *Ledger) AccrueInterest(ctx context.Context, cdpID id.CDPID) (decimal.Decimal, error) {
	var (
		interest = decimal.Zero
		elapsed  int64
	)

	p, err := l.mutate(ctx, "accrue_interest", cdpID, decimal.Zero, func(p *position.Position) error {
		now := l.clock.Now()
		elapsed = now - p.LastInterestAccrual
		interest = l.params.Interest(p.Debt, elapsed)
		if elapsed < l.params.AccrualPeriod.Milliseconds() {
			return errGated
		}
		p.Debt = p.Debt.Add(interest)
		p.LastInterestAccrual = now
		return nil
	})
	if errors.Is(err, errGated) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	// Debt-free positions only move their accrual timestamp.
	if interest.IsZero() {
		return interest, nil
	}

	l.logger.Debug("interest accrued",
		"cdp_id", cdpID,
		"interest", interest.String(),
		"elapsed_ms", elapsed,
		"debt", p.Debt.String(),
	)
	l.plugins.EmitInterestAccrued(ctx, p, interest, time.Duration(elapsed)*time.Millisecond)

	return interest, nil
}

// AccrueAll runs AccrueInterest over every open position and returns the
// total interest added. Positions removed while it runs are skipped.
func (l *Ledger) AccrueAll(ctx context.Context) (decimal.Decimal, error) {
	positions, err := l.store.ListPositions(ctx, position.ListOpts{})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	var errs MultiError
	for _, p := range positions {
		if ctx.Err() != nil {
			errs.Add(ctx.Err())
			break
		}
		interest, accErr := l.AccrueInterest(ctx, p.ID)
		if IsNotFound(accErr) {
			continue
		}
		if errors.Is(accErr, ErrStopped) {
			errs.Add(accErr)
			break
		}
		errs.Add(accErr)
		total = total.Add(interest)
	}

	return total, errs.ErrorOrNil()
}

// errGated aborts a mutation without reporting a failure.
var errGated = errors.New("cdp: accrual period not reached")

// mutate loads a position, applies fn and commits the result under the
// ledger lock. Nothing is written if amount is negative or fn fails.
func (l *Ledger) mutate(ctx context.Context, op string, cdpID id.CDPID, amount decimal.Decimal, fn func(*position.Position) error) (*position.Position, error) {
	if err := validateAmount("amount", amount); err != nil {
		return nil, l.rejected(ctx, op, cdpID, fmt.Errorf("%s %s: %w", op, cdpID, err))
	}

	l.mu.Lock()
	p, err := l.loadLocked(ctx, cdpID)
	if err == nil {
		err = fn(p)
	}
	if err == nil {
		p.Touch(l.clock.Now())
		err = l.store.UpdatePosition(ctx, p)
	}
	l.mu.Unlock()

	if errors.Is(err, errGated) {
		return nil, err
	}
	if err != nil {
		return nil, l.rejected(ctx, op, cdpID, fmt.Errorf("%s %s: %w", op, cdpID, err))
	}
	return p, nil
}

// loadLocked fetches a position for modification. The caller holds l.mu.
func (l *Ledger) loadLocked(ctx context.Context, cdpID id.CDPID) (*position.Position, error) {
	if l.state == stateStopped {
		return nil, ErrStopped
	}
	return l.store.GetPosition(ctx, cdpID)
}

// rejected reports a failed operation to plugins and returns err.
func (l *Ledger) rejected(ctx context.Context, op string, cdpID id.CDPID, err error) error {
	l.logger.Debug("operation rejected",
		"op", op,
		"cdp_id", cdpID,
		"error", err,
	)
	l.plugins.EmitOperationRejected(ctx, op, cdpID, err)
	return err
}
