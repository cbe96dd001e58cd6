// Package id defines identity types for CDP ledger entities.
//
// Positions use short sequential identifiers of the form "CDP-n" (see
// CDPID). Liquidation records carry a TypeID instead: "liq_" followed by
// a UUIDv7 suffix, so history entries sort by creation time.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the type tag of a TypeID.
type Prefix string

// PrefixLiquidation tags liquidation records.
const PrefixLiquidation Prefix = "liq"

// ID is a prefixed TypeID. The zero value is the nil ID and renders as "".
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver.
type ID struct {
	tid typeid.TypeID
	ok  bool
}

// LiquidationID identifies a liquidation record.
type LiquidationID = ID

// Nil is the zero-value ID.
var Nil ID

// New generates an ID tagged with prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, ok: true}
}

// NewLiquidationID generates a liquidation record id.
func NewLiquidationID() LiquidationID { return New(PrefixLiquidation) }

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, ok: true}, nil
}

// ParseLiquidationID parses s and requires the "liq" prefix.
func ParseLiquidationID(s string) (LiquidationID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if v.Prefix() != PrefixLiquidation {
		return Nil, fmt.Errorf("id: %q is not a liquidation id", s)
	}
	return v, nil
}

func (i ID) String() string {
	if !i.ok {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the type tag, or "" for the nil ID.
func (i ID) Prefix() Prefix {
	if !i.ok {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.ok }

// MarshalText implements encoding.TextMarshaler. The nil ID encodes as
// empty text.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
