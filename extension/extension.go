// Package extension provides the Forge extension adapter for the CDP ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.cdp" or "cdp" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/cdp"
	audithook "github.com/xraph/cdp/audit_hook"
	"github.com/xraph/cdp/clock"
	"github.com/xraph/cdp/inscription"
	"github.com/xraph/cdp/natsrelay"
	"github.com/xraph/cdp/observability"
	"github.com/xraph/cdp/store"
	"github.com/xraph/cdp/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "cdp"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Collateralized debt position ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// relay is the connection-owning settlement node built from NATS config.
type relay interface {
	Ping(ctx context.Context) error
	Close() error
}

// Extension adapts the CDP ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *cdp.Ledger
	store      store.Store
	inscriber  cdp.Inscriber
	node       cdp.SettlementNode
	relay      relay
	registerer prometheus.Registerer
	ledgerOpts []cdp.Option
}

// New creates a new CDP Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *cdp.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(context.Background()); err != nil {
		return err
	}
	if e.node == nil {
		e.Logger().Warn("cdp: no settlement node configured; liquidations will be reported as failed")
	}

	return vessel.Provide(fapp.Container(), func() (*cdp.Ledger, error) {
		return e.engine, nil
	})
}

// build fills in defaults for anything not supplied programmatically and
// constructs the engine from the resolved config.
func (e *Extension) build(ctx context.Context) error {
	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	if e.store == nil {
		e.store = memory.New()
	}

	var eng *cdp.Ledger
	if e.inscriber == nil {
		// Envelope timestamps follow the ledger's clock, including one
		// injected through WithLedgerOption(cdp.WithClock(...)).
		e.inscriber = inscription.NewJSON(inscription.WithClock(clock.Func(func() int64 {
			return eng.Clock().Now()
		})))
	}

	if e.node == nil && e.config.NATSURL != "" {
		nodeConn, err := natsrelay.Dial(ctx, e.config.NATSURL, e.config.NATSStream,
			natsrelay.WithSubject(e.config.NATSSubject),
		)
		if err != nil {
			return err
		}
		e.relay = nodeConn
		e.node = nodeConn
	}

	eng = cdp.New(e.store, e.inscriber, e.node, opts...)
	e.engine = eng
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("cdp: extension not initialized")
	}

	if !e.config.DisableStart {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	err := e.shutdown()
	e.MarkStopped()
	return err
}

// shutdown stops the ledger, which drains its settlement queue, before
// closing the relay connection the queue is drained into.
func (e *Extension) shutdown() error {
	var errs []error
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	if e.relay != nil {
		errs = append(errs, e.relay.Close())
	}
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cdp: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.relay != nil {
		return e.relay.Ping(ctx)
	}
	return nil
}

// buildLedgerOpts constructs cdp.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]cdp.Option, error) {
	params, err := e.config.Params()
	if err != nil {
		return nil, err
	}

	opts := make([]cdp.Option, 0, len(e.ledgerOpts)+5)
	opts = append(opts,
		cdp.WithParams(params),
		cdp.WithSettlementConfig(e.config.SettlementBuffer, e.config.SettlementTimeout),
	)

	if e.config.AccrualInterval > 0 {
		opts = append(opts, cdp.WithAccrualInterval(e.config.AccrualInterval))
	}

	if e.config.Metrics {
		reg := e.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		opts = append(opts, cdp.WithPlugin(
			observability.NewMetricsExtension(observability.NewPrometheusFactory(reg)),
		))
	}

	if e.config.Audit {
		opts = append(opts, cdp.WithPlugin(audithook.New(audithook.LogRecorder(nil))))
	}

	// Pass-through options last so they win over config.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("cdp: configuration is required but not found in config files; " +
				"ensure 'extensions.cdp' or 'cdp' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("cdp: configuration loaded",
		forge.F("disable_start", e.config.DisableStart),
		forge.F("settlement_buffer", e.config.SettlementBuffer),
		forge.F("settlement_timeout", e.config.SettlementTimeout),
		forge.F("accrual_interval", e.config.AccrualInterval),
		forge.F("nats", e.config.NATSURL != ""),
		forge.F("metrics", e.config.Metrics),
		forge.F("audit", e.config.Audit),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.cdp", "cdp"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("cdp: failed to bind config",
				forge.F("key", key),
				forge.F("error", fmt.Sprint(err)),
			)
			continue
		}
		e.Logger().Debug("cdp: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}
