package domain

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const maxSymbolLen = 20

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+([/_-][A-Z0-9]+)?$`)

// Instrument identifies what a signal is generated for.
type Instrument struct {
	Symbol string     `json:"symbol" yaml:"symbol"`
	Market MarketKind `json:"market" yaml:"market"`
	// Name is a human readable name, e.g. "Bitcoin". Optional.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// NormalizeSymbol uppercases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateSymbol checks the uppercase ticker convention.
func ValidateSymbol(s string) error {
	if s == "" {
		return errors.Wrap(ErrInvalidSymbol, "symbol is empty")
	}
	if len(s) > maxSymbolLen {
		return errors.Wrapf(ErrInvalidSymbol, "symbol %q is longer than %d characters", s, maxSymbolLen)
	}
	if !symbolPattern.MatchString(s) {
		return errors.Wrapf(ErrInvalidSymbol, "symbol %q must be uppercase letters and digits", s)
	}
	return nil
}

// Validate validates the instrument.
func (i Instrument) Validate() error {
	if err := ValidateSymbol(i.Symbol); err != nil {
		return err
	}
	if _, err := ParseMarketKind(string(i.Market)); err != nil {
		return err
	}
	return nil
}

// Pair splits the symbol into base and quote. Crypto tickers without separator are
// quoted in USDT.
func (i Instrument) Pair() (Pair, error) {
	if p, err := ParsePair(i.Symbol); err == nil {
		return p, nil
	}
	if i.Market == MarketCrypto {
		if err := ValidateSymbol(i.Symbol); err != nil {
			return Pair{}, err
		}
		return Pair{From: i.Symbol, To: "USDT"}, nil
	}
	return Pair{}, errors.Wrapf(ErrInvalidSymbol, "forex symbol %q must name both currencies", i.Symbol)
}
