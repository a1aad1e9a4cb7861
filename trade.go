package match

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Trade records an executed match. Exactly one of Offer or Bid is set: the order
// that was consumed. The unconsumed remainder of that order, if any, is kept as
// the residual of the same side.
type Trade struct {
	ID           string
	CreationTime time.Time
	TimeSlot     *time.Time

	Offer         *Offer
	OfferResidual *Offer
	Bid           *Bid
	BidResidual   *Bid

	Seller       TraderDetails
	Buyer        TraderDetails
	TradedEnergy decimal.Decimal
	TradePrice   decimal.Decimal
	FeePrice     decimal.Decimal

	MatchingRequirements *MatchingRequirements
}

// NewOfferTrade executes energy of offer for buyer at tradeRate.
func NewOfferTrade(offer *Offer, buyer TraderDetails, energy, tradeRate, feePrice decimal.Decimal) (*Trade, error) {
	if err := buyer.validate(); err != nil {
		return nil, errors.Wrapf(err, "trade on offer %s: buyer", offer.ID)
	}
	accepted, residual, err := offer.Split(energy)
	if err != nil {
		return nil, err
	}

	return &Trade{
		ID:            xid.New().String(),
		CreationTime:  time.Now().UTC(),
		TimeSlot:      offer.TimeSlot,
		Offer:         accepted,
		OfferResidual: residual,
		Seller:        offer.Seller,
		Buyer:         buyer,
		TradedEnergy:  accepted.Energy(),
		TradePrice:    tradeRate.Mul(accepted.Energy()),
		FeePrice:      feePrice,
	}, nil
}

// NewBidTrade executes energy of bid for seller at tradeRate.
func NewBidTrade(bid *Bid, seller TraderDetails, energy, tradeRate, feePrice decimal.Decimal) (*Trade, error) {
	if err := seller.validate(); err != nil {
		return nil, errors.Wrapf(err, "trade on bid %s: seller", bid.ID)
	}
	accepted, residual, err := bid.Split(energy)
	if err != nil {
		return nil, err
	}

	return &Trade{
		ID:           xid.New().String(),
		CreationTime: time.Now().UTC(),
		TimeSlot:     bid.TimeSlot,
		Bid:          accepted,
		BidResidual:  residual,
		Seller:       seller,
		Buyer:        bid.Buyer,
		TradedEnergy: accepted.Energy(),
		TradePrice:   tradeRate.Mul(accepted.Energy()),
		FeePrice:     feePrice,
	}, nil
}

func (t *Trade) IsOfferTrade() bool {
	return t.Offer != nil
}

func (t *Trade) IsBidTrade() bool {
	return t.Bid != nil
}

// TradeRate returns the price per unit of traded energy.
func (t *Trade) TradeRate() decimal.Decimal {
	if t.TradedEnergy.IsZero() {
		return decimal.Zero
	}
	return t.TradePrice.Div(t.TradedEnergy)
}

// Validate checks the structural invariants of the trade.
func (t *Trade) Validate() error {
	if t.IsOfferTrade() == t.IsBidTrade() {
		return errors.Wrapf(ErrInvalidParam, "trade %s: exactly one of offer or bid must be set", t.ID)
	}
	if t.OfferResidual != nil && !t.IsOfferTrade() || t.BidResidual != nil && !t.IsBidTrade() {
		return errors.Wrapf(ErrInvalidParam, "trade %s: residual side differs from the traded order", t.ID)
	}
	if t.TradedEnergy.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidEnergy, "trade %s", t.ID)
	}
	if t.Seller.sameParty(t.Buyer) {
		return errors.Wrapf(ErrInvalidMatch, "trade %s: seller and buyer are the same party", t.ID)
	}
	return nil
}

func (t *Trade) String() string {
	orderID := ""
	if t.Offer != nil {
		orderID = t.Offer.ID
	} else if t.Bid != nil {
		orderID = t.Bid.ID
	}
	return fmt.Sprintf("{%s} [%s -> %s] %s kWh @ %s [%s]",
		t.ID, t.Seller.Name, t.Buyer.Name, t.TradedEnergy, t.TradeRate(), orderID)
}
