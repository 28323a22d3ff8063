package aggregator

import "github.com/pkg/errors"

// ErrReasoningTimeout is returned when the reasoning call exceeded its deadline.
var ErrReasoningTimeout = errors.New("reasoning service timed out")
