package match

import (
	"github.com/gridsim/matching-engine/protocol"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// MatchingRequirements names the bid and offer requirement dicts that justified a match.
type MatchingRequirements struct {
	BidRequirement   *protocol.Requirement `json:"bid_requirement,omitempty"`
	OfferRequirement *protocol.Requirement `json:"offer_requirement,omitempty"`
}

// BidOfferMatch is a recommendation to trade SelectedEnergy of the bid and offer
// at TradeRate. It is not a trade: execution belongs to the caller.
type BidOfferMatch struct {
	MarketID             string                `json:"market_id"`
	TimeSlot             string                `json:"time_slot"`
	Bid                  protocol.OrderView    `json:"bid"`
	Offer                protocol.OrderView    `json:"offer"`
	SelectedEnergy       decimal.Decimal       `json:"selected_energy"`
	TradeRate            decimal.Decimal       `json:"trade_rate"`
	MatchingRequirements *MatchingRequirements `json:"matching_requirements,omitempty"`
}

func newBidOfferMatch(marketID, timeSlot string, bid *Bid, offer *Offer, selectedEnergy, tradeRate decimal.Decimal, requirements *MatchingRequirements) *BidOfferMatch {
	return &BidOfferMatch{
		MarketID:             marketID,
		TimeSlot:             timeSlot,
		Bid:                  bid.View(),
		Offer:                offer.View(),
		SelectedEnergy:       selectedEnergy,
		TradeRate:            tradeRate,
		MatchingRequirements: requirements,
	}
}

// Validate checks the invariants every recommendation must hold.
func (m *BidOfferMatch) Validate() error {
	if m.SelectedEnergy.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidMatch, "bid %s, offer %s: selected energy %s", m.Bid.ID, m.Offer.ID, m.SelectedEnergy)
	}

	limit := decimal.Min(m.Bid.Energy, m.Offer.Energy).Add(FloatingPointTolerance)
	if m.SelectedEnergy.GreaterThan(limit) {
		return errors.Wrapf(ErrInvalidMatch, "bid %s, offer %s: selected energy %s exceeds order energy", m.Bid.ID, m.Offer.ID, m.SelectedEnergy)
	}

	buyer := TraderDetails{Name: m.Bid.Buyer, ID: m.Bid.BuyerID}
	seller := TraderDetails{Name: m.Offer.Seller, ID: m.Offer.SellerID}
	if buyer.sameParty(seller) {
		return errors.Wrapf(ErrInvalidMatch, "bid %s, offer %s: self trade", m.Bid.ID, m.Offer.ID)
	}
	return nil
}
