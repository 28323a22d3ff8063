package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// SignalType is the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// ParseSignalType parses BUY, SELL or HOLD ignoring case and surrounding whitespace.
func ParseSignalType(s string) (SignalType, error) {
	t := SignalType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Errorf("unknown signal type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the three known signal types.
func (t SignalType) Valid() bool {
	switch t {
	case SignalBuy, SignalSell, SignalHold:
		return true
	}
	return false
}

// String returns the string representation of the signal type
func (t SignalType) String() string {
	return string(t)
}
