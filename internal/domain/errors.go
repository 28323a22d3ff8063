package domain

import "github.com/pkg/errors"

var (
	// ErrNoPriceData is returned when a price series has no points at all.
	ErrNoPriceData = errors.New("no price data")
	// ErrInsufficientData is returned by collectors when fewer points than required were fetched.
	ErrInsufficientData = errors.New("insufficient price data")
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrNonChronological = errors.New("price series is not chronological")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidVerdict   = errors.New("invalid verdict")
)
