package quote

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate    = errors.New("invalid coordinate")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDailyLimitExceeded   = errors.New("daily limit exceeded")
)

// DailyLimitExceededError reports a local amount above the merchant's
// remaining daily limit. It matches ErrDailyLimitExceeded under errors.Is.
type DailyLimitExceededError struct {
	Attempted float64
	Limit     float64
}

func (e *DailyLimitExceededError) Error() string {
	return fmt.Sprintf("daily limit exceeded: attempted %.2f, limit %.2f, short by %.2f",
		e.Attempted, e.Limit, e.Shortfall())
}

func (e *DailyLimitExceededError) Is(target error) bool {
	return target == ErrDailyLimitExceeded
}

// Shortfall is how far the attempted amount is over the limit.
func (e *DailyLimitExceededError) Shortfall() float64 {
	return e.Attempted - e.Limit
}
