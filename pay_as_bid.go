package match

import "github.com/shopspring/decimal"

// PayAsBid matches each offer with the highest-rated compatible bid. Buyers pay
// their own bid rate. It holds no state between calls.
type PayAsBid struct{}

func NewPayAsBid() *PayAsBid {
	return &PayAsBid{}
}

func (a *PayAsBid) Name() string {
	return string(MarketTypePayAsBid)
}

// Match recommends at most one bid per offer and uses every bid at most once.
func (a *PayAsBid) Match(marketID, timeSlot string, bids []*Bid, offers []*Offer) []*BidOfferMatch {
	if len(bids) == 0 || len(offers) == 0 {
		return nil
	}

	sortedBids := sortedByRate(bids, true)
	sortedOffers := sortedByRate(offers, true)

	selected := make(map[string]struct{}, len(sortedBids))
	matches := make([]*BidOfferMatch, 0, min(len(sortedBids), len(sortedOffers)))

	for _, offer := range sortedOffers {
		for _, bid := range sortedBids {
			if _, ok := selected[bid.ID]; ok || isSelfTrade(bid, offer) {
				continue
			}
			// Bids are sorted by descending rate, so no later bid can cover this offer.
			if offer.EnergyRate().Sub(bid.EnergyRate()).GreaterThan(FloatingPointTolerance) {
				break
			}

			selected[bid.ID] = struct{}{}
			energy := decimal.Min(bid.Energy(), offer.Energy())
			matches = append(matches, newBidOfferMatch(marketID, timeSlot, bid, offer, energy, bid.EnergyRate(), nil))
			break
		}
	}

	return matches
}
