package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// MarketKind is the asset class an instrument belongs to.
type MarketKind string

const (
	MarketCrypto MarketKind = "crypto"
	MarketForex  MarketKind = "forex"
)

// ParseMarketKind parses "crypto" or "forex".
func ParseMarketKind(s string) (MarketKind, error) {
	switch MarketKind(strings.ToLower(strings.TrimSpace(s))) {
	case MarketCrypto:
		return MarketCrypto, nil
	case MarketForex:
		return MarketForex, nil
	default:
		return "", errors.Errorf("unsupported market %q", s)
	}
}

func (m MarketKind) String() string {
	return string(m)
}
