package match

import (
	"slices"

	"github.com/gridsim/matching-engine/protocol"
)

// Attributed runs three passes over one market slot: preferred partners first,
// then bids requesting an energy type against offers advertising it, then plain
// pay-as-bid on whatever is left. An order matched in one pass is not offered to
// the later ones.
type Attributed struct {
	payAsBid *PayAsBid
}

func NewAttributed() *Attributed {
	return &Attributed{payAsBid: NewPayAsBid()}
}

func (a *Attributed) Name() string {
	return string(MarketTypeAttributed)
}

func (a *Attributed) Match(marketID, timeSlot string, bids []*Bid, offers []*Offer) []*BidOfferMatch {
	if len(bids) == 0 || len(offers) == 0 {
		return nil
	}

	matches, touchedBids, touchedOffers := matchPreferredPartners(marketID, timeSlot, bids, offers)
	bids = withoutOrders(bids, touchedBids)
	offers = withoutOrders(offers, touchedOffers)

	for _, energyType := range requestedEnergyTypes(bids) {
		typedBids := make([]*Bid, 0)
		for _, bid := range bids {
			if energyTypeRequirement(bid, energyType) != nil {
				typedBids = append(typedBids, bid)
			}
		}
		typedOffers := make([]*Offer, 0)
		for _, offer := range offers {
			if offer.EnergyType() == energyType {
				typedOffers = append(typedOffers, offer)
			}
		}

		attributeMatches := a.payAsBid.Match(marketID, timeSlot, typedBids, typedOffers)
		if len(attributeMatches) == 0 {
			continue
		}

		bidsByID := make(map[string]*Bid, len(typedBids))
		for _, bid := range typedBids {
			bidsByID[bid.ID] = bid
		}
		matchedBids := make(map[string]struct{}, len(attributeMatches))
		matchedOffers := make(map[string]struct{}, len(attributeMatches))
		for _, m := range attributeMatches {
			if req := energyTypeRequirement(bidsByID[m.Bid.ID], energyType); req != nil {
				m.MatchingRequirements = &MatchingRequirements{BidRequirement: req}
			}
			matchedBids[m.Bid.ID] = struct{}{}
			matchedOffers[m.Offer.ID] = struct{}{}
		}
		matches = append(matches, attributeMatches...)
		bids = withoutOrders(bids, matchedBids)
		offers = withoutOrders(offers, matchedOffers)
	}

	return append(matches, a.payAsBid.Match(marketID, timeSlot, bids, offers)...)
}

// requestedEnergyTypes lists the energy types bids ask for, in first-seen order.
func requestedEnergyTypes(bids []*Bid) []string {
	types := make([]string, 0)
	for _, bid := range bids {
		for _, req := range bid.Requirements {
			for _, energyType := range req.EnergyType {
				if !slices.Contains(types, energyType) {
					types = append(types, energyType)
				}
			}
		}
	}
	return types
}

// energyTypeRequirement returns the first requirement of bid asking for energyType.
func energyTypeRequirement(bid *Bid, energyType string) *protocol.Requirement {
	if bid == nil {
		return nil
	}
	for i := range bid.Requirements {
		if slices.Contains(bid.Requirements[i].EnergyType, energyType) {
			return &bid.Requirements[i]
		}
	}
	return nil
}

// withoutOrders drops the orders whose id is in ids.
func withoutOrders[T orderRef](orders []T, ids map[string]struct{}) []T {
	if len(ids) == 0 {
		return orders
	}
	result := make([]T, 0, len(orders))
	for _, order := range orders {
		if _, ok := ids[order.base().ID]; !ok {
			result = append(result, order)
		}
	}
	return result
}
