package extension

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp"
	"github.com/xraph/cdp/natsrelay"
)

// Config holds the CDP extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.cdp" or "cdp" keys).
type Config struct {
	// DisableStart keeps the ledger's background workers from starting
	// with the application. Operations still work; settlement waits.
	DisableStart bool `json:"disable_start" mapstructure:"disable_start" yaml:"disable_start"`

	// SettlementBuffer is the number of liquidations that can wait for the
	// settlement node (default: 1024).
	SettlementBuffer int `json:"settlement_buffer" mapstructure:"settlement_buffer" yaml:"settlement_buffer"`

	// SettlementTimeout bounds each call to the settlement node (default: 30s).
	SettlementTimeout time.Duration `json:"settlement_timeout" mapstructure:"settlement_timeout" yaml:"settlement_timeout"`

	// AccrualInterval runs an interest keeper over every open position.
	// Zero disables the keeper.
	AccrualInterval time.Duration `json:"accrual_interval" mapstructure:"accrual_interval" yaml:"accrual_interval"`

	// MinCollateral, MinCollateralRatio and InterestRate are decimal
	// strings. Empty values keep the ledger defaults (1, 1.5 and 0.05).
	MinCollateral      string `json:"min_collateral" mapstructure:"min_collateral" yaml:"min_collateral"`
	MinCollateralRatio string `json:"min_collateral_ratio" mapstructure:"min_collateral_ratio" yaml:"min_collateral_ratio"`
	InterestRate       string `json:"interest_rate" mapstructure:"interest_rate" yaml:"interest_rate"`

	// NATSURL enables the JetStream settlement relay when set and no
	// settlement node was supplied programmatically.
	NATSURL     string `json:"nats_url" mapstructure:"nats_url" yaml:"nats_url"`
	NATSStream  string `json:"nats_stream" mapstructure:"nats_stream" yaml:"nats_stream"`
	NATSSubject string `json:"nats_subject" mapstructure:"nats_subject" yaml:"nats_subject"`

	// Metrics registers the Prometheus metrics plugin.
	Metrics bool `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// Audit registers the audit plugin, writing events to the log.
	Audit bool `json:"audit" mapstructure:"audit" yaml:"audit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SettlementBuffer:  1024,
		SettlementTimeout: 30 * time.Second,
		NATSStream:        natsrelay.DefaultStream,
		NATSSubject:       natsrelay.DefaultSubject,
	}
}

// Params resolves the configured risk parameters on top of the defaults.
func (c Config) Params() (cdp.Params, error) {
	p := cdp.DefaultParams()

	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"min_collateral", c.MinCollateral, &p.MinCollateral},
		{"min_collateral_ratio", c.MinCollateralRatio, &p.MinCollateralRatio},
		{"interest_rate", c.InterestRate, &p.InterestRate},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return cdp.Params{}, fmt.Errorf("cdp: config %s: %w", f.name, err)
		}
		*f.dst = d
	}

	if err := p.Validate(); err != nil {
		return cdp.Params{}, err
	}
	return p, nil
}

func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SettlementBuffer == 0 {
		cfg.SettlementBuffer = defaults.SettlementBuffer
	}
	if cfg.SettlementTimeout == 0 {
		cfg.SettlementTimeout = defaults.SettlementTimeout
	}
	if cfg.NATSStream == "" {
		cfg.NATSStream = defaults.NATSStream
	}
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = defaults.NATSSubject
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableStart {
		yamlConfig.DisableStart = true
	}
	if programmaticConfig.Metrics {
		yamlConfig.Metrics = true
	}
	if programmaticConfig.Audit {
		yamlConfig.Audit = true
	}

	fillString := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fillString(&yamlConfig.MinCollateral, programmaticConfig.MinCollateral)
	fillString(&yamlConfig.MinCollateralRatio, programmaticConfig.MinCollateralRatio)
	fillString(&yamlConfig.InterestRate, programmaticConfig.InterestRate)
	fillString(&yamlConfig.NATSURL, programmaticConfig.NATSURL)
	fillString(&yamlConfig.NATSStream, programmaticConfig.NATSStream)
	fillString(&yamlConfig.NATSSubject, programmaticConfig.NATSSubject)

	if yamlConfig.SettlementBuffer == 0 {
		yamlConfig.SettlementBuffer = programmaticConfig.SettlementBuffer
	}
	if yamlConfig.SettlementTimeout == 0 {
		yamlConfig.SettlementTimeout = programmaticConfig.SettlementTimeout
	}
	if yamlConfig.AccrualInterval == 0 {
		yamlConfig.AccrualInterval = programmaticConfig.AccrualInterval
	}

	return mergeWithDefaults(yamlConfig)
}
