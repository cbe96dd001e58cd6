package id

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// cdpPrefix is the literal text before the sequence number of a CDPID.
const cdpPrefix = "CDP-"

// CDPID identifies a collateralized debt position, e.g. "CDP-1".
// Identifiers are never reused within a ledger instance, even after the
// position they named has been closed or liquidated.
type CDPID string

// String returns the identifier text.
func (c CDPID) String() string { return string(c) }

// Seq returns the sequence number encoded in c.
func (c CDPID) Seq() (uint64, error) {
	rest, ok := strings.CutPrefix(string(c), cdpPrefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("id: parse cdp %q: missing %q prefix", string(c), cdpPrefix)
	}

	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("id: parse cdp %q: invalid sequence", string(c))
	}

	return n, nil
}

// FormatCDP renders sequence number n as a CDPID.
func FormatCDP(n uint64) CDPID {
	return CDPID(cdpPrefix + strconv.FormatUint(n, 10))
}

// ParseCDP validates s as a CDPID.
func ParseCDP(s string) (CDPID, error) {
	c := CDPID(s)
	if _, err := c.Seq(); err != nil {
		return "", err
	}
	return c, nil
}

// Sequence hands out CDPIDs starting at "CDP-1". The zero value is ready
// to use and safe for concurrent callers.
type Sequence struct {
	last atomic.Uint64
}

// Next returns the next unused identifier.
func (s *Sequence) Next() CDPID {
	return FormatCDP(s.last.Add(1))
}

// Last returns the sequence number of the most recently issued
// identifier, or 0 if none has been issued.
func (s *Sequence) Last() uint64 {
	return s.last.Load()
}
