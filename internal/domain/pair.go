// Package domain defines core data structures used throughout the signal engine.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pair trading pair, e.g. BTC/USDT or EUR/USD.
type Pair struct {
	// From base currency symbol.
	From string
	// To quote currency symbol.
	To string
}

// ParsePair parses "BTC_USDT", "EUR/USD" or "ETH-USD".
func ParsePair(s string) (Pair, error) {
	s = NormalizeSymbol(s)
	for _, sep := range []string{"_", "/", "-"} {
		parts := strings.Split(s, sep)
		if len(parts) != 2 {
			continue
		}
		if parts[0] == "" || parts[1] == "" {
			break
		}
		return Pair{From: parts[0], To: parts[1]}, nil
	}
	return Pair{}, errors.Wrapf(ErrInvalidSymbol, "%q is not a pair", s)
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// Slash returns the pair in forex notation.
func (p Pair) Slash() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}
