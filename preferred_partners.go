package match

import (
	"github.com/gridsim/matching-engine/protocol"
	"github.com/shopspring/decimal"
)

// PreferredPartners matches bids only with the sellers their requirements name.
// Orders without a trading_partners requirement are left alone.
type PreferredPartners struct{}

func NewPreferredPartners() *PreferredPartners {
	return &PreferredPartners{}
}

func (a *PreferredPartners) Name() string {
	return string(MarketTypePreferredPartners)
}

func (a *PreferredPartners) Match(marketID, timeSlot string, bids []*Bid, offers []*Offer) []*BidOfferMatch {
	if len(bids) == 0 || len(offers) == 0 {
		return nil
	}
	matches, _, _ := matchPreferredPartners(marketID, timeSlot, bids, offers)
	return matches
}

// sellerIndex maps seller ids and seller origin ids to their offers.
type sellerIndex map[string][]*Offer

func newSellerIndex(offers []*Offer) sellerIndex {
	index := make(sellerIndex)
	for _, offer := range offers {
		if len(offer.Seller.ID) > 0 {
			index[offer.Seller.ID] = append(index[offer.Seller.ID], offer)
		}
		// Seller and origin may be the same party.
		if origin := offer.Seller.OriginID; len(origin) > 0 && origin != offer.Seller.ID {
			index[origin] = append(index[origin], offer)
		}
	}
	return index
}

// lookup returns the offers of all partners, each offer once, in partner order.
func (s sellerIndex) lookup(partners []string) []*Offer {
	seen := make(map[string]struct{})
	result := make([]*Offer, 0)
	for _, partner := range partners {
		for _, offer := range s[partner] {
			if _, ok := seen[offer.ID]; ok {
				continue
			}
			seen[offer.ID] = struct{}{}
			result = append(result, offer)
		}
	}
	return result
}

// energyLedger tracks the energy still available per order id during one call.
type energyLedger struct {
	bids   map[string]decimal.Decimal
	offers map[string]decimal.Decimal
}

func newEnergyLedger() *energyLedger {
	return &energyLedger{
		bids:   make(map[string]decimal.Decimal),
		offers: make(map[string]decimal.Decimal),
	}
}

func (l *energyLedger) bidEnergy(bid *Bid) decimal.Decimal {
	if energy, ok := l.bids[bid.ID]; ok {
		return energy
	}
	return bid.Energy()
}

func (l *energyLedger) offerEnergy(offer *Offer) decimal.Decimal {
	if energy, ok := l.offers[offer.ID]; ok {
		return energy
	}
	return offer.Energy()
}

func (l *energyLedger) consume(bid *Bid, offer *Offer, energy decimal.Decimal) {
	l.bids[bid.ID] = l.bidEnergy(bid).Sub(energy)
	l.offers[offer.ID] = l.offerEnergy(offer).Sub(energy)
}

// requiredEnergy caps the requirement's energy at the order's energy.
func requiredEnergy(order *Order, req *protocol.Requirement) decimal.Decimal {
	if req == nil || req.Energy == nil {
		return order.Energy()
	}
	return decimal.Min(*req.Energy, order.Energy())
}

// bidRequiredEnergyAndRate returns the energy a bid asks for under req and the rate
// it is willing to pay for it. ok is false when the requirement leaves no energy.
func bidRequiredEnergyAndRate(bid *Bid, req *protocol.Requirement) (energy, rate decimal.Decimal, ok bool) {
	energy = requiredEnergy(&bid.Order, req)
	if energy.LessThanOrEqual(FloatingPointTolerance) {
		return decimal.Zero, decimal.Zero, false
	}
	if req != nil && req.Price != nil {
		return energy, req.Price.Div(energy), true
	}
	return energy, bid.EnergyRate(), true
}

func offerRequiredEnergyAndRate(offer *Offer, req *protocol.Requirement) (energy, rate decimal.Decimal, ok bool) {
	energy = requiredEnergy(&offer.Order, req)
	if energy.LessThanOrEqual(FloatingPointTolerance) {
		return decimal.Zero, decimal.Zero, false
	}
	return energy, offer.EnergyRate(), true
}

// matchPreferredPartners runs the partner pass: every bid requirement naming trading
// partners is tried against the offers of those partners. It also returns the ids of
// all bids and offers that took part in a match.
func matchPreferredPartners(marketID, timeSlot string, bids []*Bid, offers []*Offer) ([]*BidOfferMatch, map[string]struct{}, map[string]struct{}) {
	matches := make([]*BidOfferMatch, 0)
	touchedBids := make(map[string]struct{})
	touchedOffers := make(map[string]struct{})

	index := newSellerIndex(sortedByRate(offers, false))
	ledger := newEnergyLedger()

	for _, bid := range sortedByRate(bids, true) {
		for i := range bid.Requirements {
			bidReq := &bid.Requirements[i]
			if len(bidReq.TradingPartners) == 0 {
				continue
			}
			bidEnergy, bidRate, ok := bidRequiredEnergyAndRate(bid, bidReq)
			if !ok {
				continue
			}

			for _, offer := range index.lookup(bidReq.TradingPartners) {
				if bidEnergy.LessThanOrEqual(FloatingPointTolerance) || ledger.bidEnergy(bid).LessThanOrEqual(FloatingPointTolerance) {
					break
				}
				if isSelfTrade(bid, offer) {
					continue
				}

				offerReqs := make([]*protocol.Requirement, 0, len(offer.Requirements))
				for j := range offer.Requirements {
					offerReqs = append(offerReqs, &offer.Requirements[j])
				}
				if len(offerReqs) == 0 {
					offerReqs = append(offerReqs, nil)
				}

				for _, offerReq := range offerReqs {
					offerEnergy, offerRate, ok := offerRequiredEnergyAndRate(offer, offerReq)
					if !ok {
						continue
					}
					if offerRate.Sub(bidRate).GreaterThan(FloatingPointTolerance) {
						continue
					}

					selected := decimal.Min(bidEnergy, offerEnergy, ledger.bidEnergy(bid), ledger.offerEnergy(offer))
					if selected.LessThanOrEqual(FloatingPointTolerance) {
						continue
					}
					if !BidRequirementChecker.IsSatisfied(offer, bid, *bidReq, bidRate, selected) {
						continue
					}
					if offerReq != nil && !OfferRequirementChecker.IsSatisfied(offer, bid, *offerReq, bidRate, selected) {
						continue
					}

					requirements := &MatchingRequirements{BidRequirement: bidReq, OfferRequirement: offerReq}
					matches = append(matches, newBidOfferMatch(marketID, timeSlot, bid, offer, selected, bidRate, requirements))

					ledger.consume(bid, offer, selected)
					bidEnergy = bidEnergy.Sub(selected)
					touchedBids[bid.ID] = struct{}{}
					touchedOffers[offer.ID] = struct{}{}
					break
				}
			}
		}
	}

	return matches, touchedBids, touchedOffers
}
