package match

import (
	"github.com/shopspring/decimal"
)

type clearingKey struct {
	marketID string
	timeSlot string
}

// PayAsClear clears every market slot at one rate derived from the aggregated
// supply and demand curves, then allocates energy at that rate.
//
// The clearing states it keeps are per instance and unsynchronized: one instance
// must be owned by a single market and never be shared between concurrent rounds.
type PayAsClear struct {
	policy AggregationPolicy
	states map[clearingKey]*MarketClearingState
}

// NewPayAsClear creates a pay-as-clear matcher using the given aggregation policy.
func NewPayAsClear(policy AggregationPolicy) (*PayAsClear, error) {
	if _, err := ParseAggregationPolicy(int(policy)); err != nil {
		return nil, err
	}
	return &PayAsClear{
		policy: policy,
		states: make(map[clearingKey]*MarketClearingState),
	}, nil
}

func (a *PayAsClear) Name() string {
	return string(MarketTypePayAsClear)
}

func (a *PayAsClear) Policy() AggregationPolicy {
	return a.policy
}

// ClearingPoint aggregates the orders and resolves the clearing point. It does not
// touch the instance state, so repeated calls on the same orders agree.
func (a *PayAsClear) ClearingPoint(bids []*Bid, offers []*Offer) *MarketClearingState {
	if len(bids) == 0 || len(offers) == 0 {
		return newMarketClearingState()
	}

	switch a.policy {
	case DiscreteRelaxation:
		return discreteClearingPoint(bids, offers)
	default:
		return continuousClearingPoint(sortedByRate(bids, true), sortedByRate(offers, false))
	}
}

// State returns the clearing state of the market slot from the current round.
func (a *PayAsClear) State(marketID, timeSlot string) (*MarketClearingState, bool) {
	state, ok := a.states[clearingKey{marketID: marketID, timeSlot: timeSlot}]
	return state, ok
}

// resetStates forgets the clearing states of the previous round.
func (a *PayAsClear) resetStates() {
	clear(a.states)
}

// Match recommends trades for one market slot, all at the slot's clearing rate.
func (a *PayAsClear) Match(marketID, timeSlot string, bids []*Bid, offers []*Offer) []*BidOfferMatch {
	key := clearingKey{marketID: marketID, timeSlot: timeSlot}
	if len(bids) == 0 || len(offers) == 0 {
		delete(a.states, key)
		return nil
	}

	state := a.ClearingPoint(bids, offers)
	a.states[key] = state
	if state.Clearing == nil {
		logger.Debug("no clearing point", "market_id", marketID, "time_slot", timeSlot)
		return nil
	}

	logger.Debug("clearing point resolved",
		"market_id", marketID,
		"time_slot", timeSlot,
		"rate", state.Clearing.Rate.String(),
		"energy", state.Clearing.Energy.String(),
	)

	offerQueue := newAscendingQueue[*Offer]()
	for _, offer := range offers {
		offerQueue.insertOrder(offer)
	}
	return allocateAtClearingRate(marketID, timeSlot, *state.Clearing, sortedByRate(bids, true), offerQueue)
}

// allocateAtClearingRate walks bids from the highest rate and fills each from the
// cheapest offers until the clearing energy is reached. Offer energy left over by a
// partial fill is tracked in a side map, so input orders are never changed.
func allocateAtClearingRate(marketID, timeSlot string, clearing Clearing, sortedBids []*Bid, offers *queue[*Offer]) []*BidOfferMatch {
	matches := make([]*BidOfferMatch, 0, len(sortedBids))
	residualEnergy := make(map[string]decimal.Decimal)
	cumulative := decimal.Zero

	offerLimit := clearing.Rate.Add(FloatingPointTolerance)
	bidLimit := clearing.Rate.Sub(FloatingPointTolerance)

	for _, bid := range sortedBids {
		if bid.EnergyRate().LessThan(bidLimit) {
			break
		}

		remaining := bid.Energy()
		for remaining.GreaterThan(FloatingPointTolerance) {
			open := clearing.Energy.Sub(cumulative)
			if open.LessThanOrEqual(FloatingPointTolerance) {
				return matches
			}

			var offer *Offer
			offers.each(func(candidate *Offer) bool {
				if candidate.EnergyRate().GreaterThan(offerLimit) {
					return false
				}
				if isSelfTrade(bid, candidate) {
					return true
				}
				offer = candidate
				return false
			})
			if offer == nil {
				break
			}

			available, ok := residualEnergy[offer.ID]
			if !ok {
				available = offer.Energy()
			}
			selected := decimal.Min(remaining, available, open)
			matches = append(matches, newBidOfferMatch(marketID, timeSlot, bid, offer, selected, clearing.Rate, nil))

			remaining = remaining.Sub(selected)
			cumulative = cumulative.Add(selected)

			if left := available.Sub(selected); left.GreaterThan(FloatingPointTolerance) {
				residualEnergy[offer.ID] = left
			} else {
				offers.removeOrder(offer.ID)
				delete(residualEnergy, offer.ID)
			}
		}

		if clearing.Energy.Sub(cumulative).LessThanOrEqual(FloatingPointTolerance) {
			break
		}
	}

	return matches
}
