package match

import (
	"errors"

	"github.com/gridsim/matching-engine/protocol"
	pkgerrors "github.com/pkg/errors"
)

// MatchingAlgorithm recommends bid/offer matches for one market slot.
// Implementations never change the orders they are given.
type MatchingAlgorithm interface {
	Name() string
	Match(marketID, timeSlot string, bids []*Bid, offers []*Offer) []*BidOfferMatch
}

// NewMatchingAlgorithm creates the algorithm for a market type. The aggregation
// policy only matters for pay-as-clear.
func NewMatchingAlgorithm(marketType MarketType, policy AggregationPolicy) (MatchingAlgorithm, error) {
	switch marketType {
	case MarketTypePayAsBid:
		return NewPayAsBid(), nil
	case MarketTypePayAsClear:
		return NewPayAsClear(policy)
	case MarketTypePreferredPartners:
		return NewPreferredPartners(), nil
	case MarketTypeAttributed:
		return NewAttributed(), nil
	case MarketTypeExternal:
		return nil, ErrExternalMatching
	}
	return nil, pkgerrors.Wrapf(ErrUnknownMarketType, "%q", marketType)
}

// MatchesRecommendations runs alg over every market slot of data, markets and slots
// in ascending id order. Slots with malformed orders are skipped and reported in the
// returned error; the matches of all other slots are still returned.
func MatchesRecommendations(alg MatchingAlgorithm, data protocol.MatchingData) ([]*BidOfferMatch, error) {
	matches := make([]*BidOfferMatch, 0)
	var errs []error
	startRound(alg)
	for _, marketID := range data.MarketIDs() {
		marketMatches, marketErrs := recommendMarket(alg, marketID, data[marketID], nil)
		matches = append(matches, marketMatches...)
		errs = append(errs, marketErrs...)
	}
	return matches, errors.Join(errs...)
}

// roundState is implemented by algorithms keeping per-slot state between calls.
type roundState interface {
	resetStates()
}

// startRound drops the state alg kept from the previous round.
func startRound(alg MatchingAlgorithm) {
	if r, ok := alg.(roundState); ok {
		r.resetStates()
	}
}

func recommendMarket(alg MatchingAlgorithm, marketID string, slots map[string]protocol.SlotData, metrics *Metrics) ([]*BidOfferMatch, []error) {
	matches := make([]*BidOfferMatch, 0)
	var errs []error

	for _, timeSlot := range protocol.SortedTimeSlots(slots) {
		slotMatches, err := recommendSlot(alg, marketID, timeSlot, slots[timeSlot], metrics)
		if err != nil {
			metrics.observeSlotError()
			logger.Warn("skip market slot", "market_id", marketID, "time_slot", timeSlot, "error", err)
			errs = append(errs, &SlotError{MarketID: marketID, TimeSlot: timeSlot, Err: err})
			continue
		}
		metrics.observeMatches(alg.Name(), slotMatches)
		matches = append(matches, slotMatches...)
	}
	return matches, errs
}

func recommendSlot(alg MatchingAlgorithm, marketID, timeSlot string, slot protocol.SlotData, metrics *Metrics) ([]*BidOfferMatch, error) {
	bids, offers, err := decodeSlot(slot)
	if err != nil {
		return nil, err
	}

	matches := alg.Match(marketID, timeSlot, bids, offers)
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	if clearing, ok := alg.(*PayAsClear); ok && len(bids) > 0 && len(offers) > 0 {
		if state, found := clearing.State(marketID, timeSlot); found && state.Clearing == nil {
			metrics.observeClearingMiss()
		}
	}
	return matches, nil
}

// decodeSlot turns the order snapshots of one slot into bids and offers.
func decodeSlot(slot protocol.SlotData) ([]*Bid, []*Offer, error) {
	bids := make([]*Bid, 0, len(slot.Bids))
	seen := make(map[string]struct{}, len(slot.Bids))
	for _, v := range slot.Bids {
		bid, err := BidFromView(v)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := seen[bid.ID]; ok {
			return nil, nil, pkgerrors.Wrapf(ErrDuplicateOrder, "bid %s", bid.ID)
		}
		seen[bid.ID] = struct{}{}
		bids = append(bids, bid)
	}

	offers := make([]*Offer, 0, len(slot.Offers))
	seen = make(map[string]struct{}, len(slot.Offers))
	for _, v := range slot.Offers {
		offer, err := OfferFromView(v)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := seen[offer.ID]; ok {
			return nil, nil, pkgerrors.Wrapf(ErrDuplicateOrder, "offer %s", offer.ID)
		}
		seen[offer.ID] = struct{}{}
		offers = append(offers, offer)
	}
	return bids, offers, nil
}
