package match

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParam             = errors.New("the param is invalid")
	ErrInvalidEnergy            = errors.New("energy must be positive")
	ErrMissingIdentity          = errors.New("required identity field is missing")
	ErrDuplicateOrder           = errors.New("duplicate order id")
	ErrInvalidMatch             = errors.New("match violates matching invariants")
	ErrInvalidAggregationPolicy = errors.New("unknown pay-as-clear aggregation algorithm")
	ErrUnknownMarketType        = errors.New("unknown market type")
	ErrExternalMatching         = errors.New("matching is delegated to an external matcher")
	ErrShutdown                 = errors.New("matching engine is shutting down")
)

// SlotError reports a failure confined to one market and time slot.
// Callers can skip that slot and keep the rest of the round.
type SlotError struct {
	MarketID string
	TimeSlot string
	Err      error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("market %s, time slot %s: %v", e.MarketID, e.TimeSlot, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}
