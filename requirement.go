package match

import (
	"slices"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/shopspring/decimal"
)

// RequirementKind enumerates the rules a requirement dict can carry.
type RequirementKind uint8

const (
	TradingPartners RequirementKind = iota + 1
	EnergyType
	SelectedEnergy
	PriceLimit
)

func (k RequirementKind) String() string {
	switch k {
	case TradingPartners:
		return protocol.RequirementTradingPartners
	case EnergyType:
		return protocol.RequirementEnergyType
	case SelectedEnergy:
		return protocol.RequirementEnergy
	case PriceLimit:
		return protocol.RequirementPrice
	}
	return "unknown"
}

// requirementKinds lists the rules present in req, in a fixed order.
func requirementKinds(req protocol.Requirement) []RequirementKind {
	kinds := make([]RequirementKind, 0, 4)
	if req.TradingPartners != nil {
		kinds = append(kinds, TradingPartners)
	}
	if req.EnergyType != nil {
		kinds = append(kinds, EnergyType)
	}
	if req.Energy != nil {
		kinds = append(kinds, SelectedEnergy)
	}
	if req.Price != nil {
		kinds = append(kinds, PriceLimit)
	}
	return kinds
}

// isSatisfied evaluates one rule for a candidate match.
func (k RequirementKind) isSatisfied(offer *Offer, bid *Bid, req protocol.Requirement, clearingRate, selectedEnergy decimal.Decimal) bool {
	switch k {
	case TradingPartners:
		if len(req.TradingPartners) == 0 {
			return true
		}
		for _, id := range []string{bid.Buyer.ID, bid.Buyer.OriginID, offer.Seller.ID, offer.Seller.OriginID} {
			if len(id) > 0 && slices.Contains(req.TradingPartners, id) {
				return true
			}
		}
		return false
	case EnergyType:
		return len(req.EnergyType) == 0 || slices.Contains(req.EnergyType, offer.EnergyType())
	case SelectedEnergy:
		return req.Energy.Add(FloatingPointTolerance).GreaterThanOrEqual(selectedEnergy)
	case PriceLimit:
		return req.Price.Add(FloatingPointTolerance).GreaterThanOrEqual(selectedEnergy.Mul(clearingRate))
	}
	return false
}

// RequirementChecker evaluates requirement dicts for one order side.
type RequirementChecker struct {
	supported []RequirementKind
}

var (
	// BidRequirementChecker supports every rule kind.
	BidRequirementChecker = NewRequirementChecker(TradingPartners, EnergyType, SelectedEnergy, PriceLimit)
	// OfferRequirementChecker only supports trading partner preferences.
	OfferRequirementChecker = NewRequirementChecker(TradingPartners)
)

// NewRequirementChecker creates a checker accepting the given rule kinds.
func NewRequirementChecker(supported ...RequirementKind) RequirementChecker {
	return RequirementChecker{supported: supported}
}

// IsSatisfied reports whether every rule of req holds. A dict carrying a rule this
// checker does not support, or a key nobody knows, never holds.
func (c RequirementChecker) IsSatisfied(offer *Offer, bid *Bid, req protocol.Requirement, clearingRate, selectedEnergy decimal.Decimal) bool {
	if len(req.Unsupported) > 0 {
		return false
	}
	for _, kind := range requirementKinds(req) {
		if !slices.Contains(c.supported, kind) {
			return false
		}
		if !kind.isSatisfied(offer, bid, req, clearingRate, selectedEnergy) {
			return false
		}
	}
	return true
}
