// Package inscription builds the payloads the ledger hands to its
// settlement node when a position is liquidated.
//
// JSON is the default Inscriber. It encodes the liquidation snapshot as a
// small JSON document in the style of ordinal text inscriptions:
//
//	{"p":"cdp","op":"liquidate","id":"CDP-7","collateral":"6","debt":"6","ts":1700000000000}
package inscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/cdp/clock"
	"github.com/xraph/cdp/id"
)

const (
	// ContentType is the MIME type of JSON payloads.
	ContentType = "application/json"

	// Protocol tags every envelope produced by this package.
	Protocol = "cdp"

	// OpLiquidate marks a liquidation envelope.
	OpLiquidate = "liquidate"
)

// Envelope is the decoded form of a JSON payload.
type Envelope struct {
	Protocol   string          `json:"p"`
	Op         string          `json:"op"`
	ID         id.CDPID        `json:"id"`
	Collateral decimal.Decimal `json:"collateral"`
	Debt       decimal.Decimal `json:"debt"`
	Timestamp  int64           `json:"ts"`
}

// JSON creates JSON inscription payloads.
type JSON struct {
	clock clock.Clock
}

// Option configures a JSON inscriber.
type Option func(*JSON)

// WithClock sets the clock used to stamp envelopes.
func WithClock(c clock.Clock) Option {
	return func(j *JSON) {
		j.clock = c
	}
}

// NewJSON returns a JSON inscriber.
func NewJSON(opts ...Option) *JSON {
	j := &JSON{clock: clock.System{}}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// CreateInscription encodes the snapshot of a liquidated position.
func (j *JSON) CreateInscription(ctx context.Context, cdpID id.CDPID, collateral, debt decimal.Decimal) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cdpID == "" {
		return nil, errors.New("inscription: empty cdp id")
	}

	payload, err := json.Marshal(Envelope{
		Protocol:   Protocol,
		Op:         OpLiquidate,
		ID:         cdpID,
		Collateral: collateral,
		Debt:       debt,
		Timestamp:  j.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("inscription: encode %s: %w", cdpID, err)
	}
	return payload, nil
}

// Decode parses a payload produced by JSON.
func Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("inscription: decode: %w", err)
	}
	if env.Protocol != Protocol {
		return nil, fmt.Errorf("inscription: unexpected protocol %q", env.Protocol)
	}
	return &env, nil
}
