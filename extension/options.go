package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/cdp"
	"github.com/xraph/cdp/plugin"
	"github.com/xraph/cdp/store"
)

// Option configures the CDP Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithInscriber sets the inscription service. The JSON inscriber is used
// when none is given.
func WithInscriber(i cdp.Inscriber) Option {
	return func(e *Extension) {
		e.inscriber = i
	}
}

// WithSettlementNode sets the settlement node, taking precedence over a
// configured NATS relay.
func WithSettlementNode(n cdp.SettlementNode) Option {
	return func(e *Extension) {
		e.node = n
	}
}

// WithLedgerOption passes a cdp.Option through to the underlying engine.
func WithLedgerOption(opt cdp.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, cdp.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableStart keeps background workers from starting with the app.
func WithDisableStart() Option {
	return func(e *Extension) { e.config.DisableStart = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSettlement sizes the settlement queue and bounds node calls.
func WithSettlement(buffer int, timeout time.Duration) Option {
	return func(e *Extension) {
		e.config.SettlementBuffer = buffer
		e.config.SettlementTimeout = timeout
	}
}

// WithAccrualInterval enables the interest keeper.
func WithAccrualInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.AccrualInterval = d }
}

// WithNATS relays settlement payloads to a JetStream server.
func WithNATS(url string) Option {
	return func(e *Extension) { e.config.NATSURL = url }
}

// WithMetrics registers the Prometheus metrics plugin against reg.
// A nil reg uses prometheus.DefaultRegisterer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.config.Metrics = true
		e.registerer = reg
	}
}

// WithAudit registers the audit plugin.
func WithAudit() Option {
	return func(e *Extension) { e.config.Audit = true }
}
