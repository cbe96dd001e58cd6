package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/id"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
)

// DefaultTimeout bounds how long a single hook may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onPositionOpened      []OnPositionOpened
	onPositionClosed      []OnPositionClosed
	onCollateralChanged   []OnCollateralChanged
	onDebtChanged         []OnDebtChanged
	onInterestAccrued     []OnInterestAccrued
	onOperationRejected   []OnOperationRejected
	onLiquidated          []OnLiquidated
	onSettlementSubmitted []OnSettlementSubmitted
	onSettlementFailed    []OnSettlementFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnPositionOpened); ok {
		r.onPositionOpened = append(r.onPositionOpened, v)
		hooks = append(hooks, "OnPositionOpened")
	}
	if v, ok := p.(OnPositionClosed); ok {
		r.onPositionClosed = append(r.onPositionClosed, v)
		hooks = append(hooks, "OnPositionClosed")
	}
	if v, ok := p.(OnCollateralChanged); ok {
		r.onCollateralChanged = append(r.onCollateralChanged, v)
		hooks = append(hooks, "OnCollateralChanged")
	}
	if v, ok := p.(OnDebtChanged); ok {
		r.onDebtChanged = append(r.onDebtChanged, v)
		hooks = append(hooks, "OnDebtChanged")
	}
	if v, ok := p.(OnInterestAccrued); ok {
		r.onInterestAccrued = append(r.onInterestAccrued, v)
		hooks = append(hooks, "OnInterestAccrued")
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
		hooks = append(hooks, "OnOperationRejected")
	}
	if v, ok := p.(OnLiquidated); ok {
		r.onLiquidated = append(r.onLiquidated, v)
		hooks = append(hooks, "OnLiquidated")
	}
	if v, ok := p.(OnSettlementSubmitted); ok {
		r.onSettlementSubmitted = append(r.onSettlementSubmitted, v)
		hooks = append(hooks, "OnSettlementSubmitted")
	}
	if v, ok := p.(OnSettlementFailed); ok {
		r.onSettlementFailed = append(r.onSettlementFailed, v)
		hooks = append(hooks, "OnSettlementFailed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitPositionOpened emits a position opened event.
func (r *Registry) EmitPositionOpened(ctx context.Context, pos *position.Position) {
	r.mu.RLock()
	plugins := r.onPositionOpened
	r.mu.RUnlock()

	emit(ctx, r, "OnPositionOpened", plugins, func(p OnPositionOpened) error {
		return p.OnPositionOpened(ctx, pos)
	})
}

// EmitPositionClosed emits a position closed event.
func (r *Registry) EmitPositionClosed(ctx context.Context, pos *position.Position, released decimal.Decimal) {
	r.mu.RLock()
	plugins := r.onPositionClosed
	r.mu.RUnlock()

	emit(ctx, r, "OnPositionClosed", plugins, func(p OnPositionClosed) error {
		return p.OnPositionClosed(ctx, pos, released)
	})
}

// EmitCollateralChanged emits a collateral change event.
func (r *Registry) EmitCollateralChanged(ctx context.Context, pos *position.Position, delta decimal.Decimal) {
	r.mu.RLock()
	plugins := r.onCollateralChanged
	r.mu.RUnlock()

	emit(ctx, r, "OnCollateralChanged", plugins, func(p OnCollateralChanged) error {
		return p.OnCollateralChanged(ctx, pos, delta)
	})
}

// EmitDebtChanged emits a debt change event.
func (r *Registry) EmitDebtChanged(ctx context.Context, pos *position.Position, delta decimal.Decimal) {
	r.mu.RLock()
	plugins := r.onDebtChanged
	r.mu.RUnlock()

	emit(ctx, r, "OnDebtChanged", plugins, func(p OnDebtChanged) error {
		return p.OnDebtChanged(ctx, pos, delta)
	})
}

// EmitInterestAccrued emits an interest accrual event.
func (r *Registry) EmitInterestAccrued(ctx context.Context, pos *position.Position, interest decimal.Decimal, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onInterestAccrued
	r.mu.RUnlock()

	emit(ctx, r, "OnInterestAccrued", plugins, func(p OnInterestAccrued) error {
		return p.OnInterestAccrued(ctx, pos, interest, elapsed)
	})
}

// EmitOperationRejected emits a rejected operation event.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, cdpID id.CDPID, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	emit(ctx, r, "OnOperationRejected", plugins, func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, op, cdpID, opErr)
	})
}

// EmitLiquidated emits a liquidation event.
func (r *Registry) EmitLiquidated(ctx context.Context, l *liquidation.Liquidation) {
	r.mu.RLock()
	plugins := r.onLiquidated
	r.mu.RUnlock()

	emit(ctx, r, "OnLiquidated", plugins, func(p OnLiquidated) error {
		return p.OnLiquidated(ctx, l)
	})
}

// EmitSettlementSubmitted emits a successful settlement event.
func (r *Registry) EmitSettlementSubmitted(ctx context.Context, l *liquidation.Liquidation, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSettlementSubmitted
	r.mu.RUnlock()

	emit(ctx, r, "OnSettlementSubmitted", plugins, func(p OnSettlementSubmitted) error {
		return p.OnSettlementSubmitted(ctx, l, elapsed)
	})
}

// EmitSettlementFailed emits a failed settlement event.
func (r *Registry) EmitSettlementFailed(ctx context.Context, l *liquidation.Liquidation, subErr error) {
	r.mu.RLock()
	plugins := r.onSettlementFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnSettlementFailed", plugins, func(p OnSettlementFailed) error {
		return p.OnSettlementFailed(ctx, l, subErr)
	})
}

// emit calls fn for every plugin, logging rather than returning failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
