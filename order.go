package match

import (
	"maps"
	"slices"
	"time"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// TraderDetails identifies the party behind an order and the origin it acts for.
type TraderDetails struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	OriginName string `json:"origin_name,omitempty"`
	OriginID   string `json:"origin_id,omitempty"`
}

func (t TraderDetails) validate() error {
	if len(t.Name) == 0 && len(t.ID) == 0 {
		return ErrMissingIdentity
	}
	return nil
}

// sameParty reports whether both details point at the same trader.
func (t TraderDetails) sameParty(other TraderDetails) bool {
	return len(t.Name) > 0 && t.Name == other.Name ||
		len(t.ID) > 0 && t.ID == other.ID
}

// Order is the state shared by bids and offers.
// Price, energy and energy rate are only changed together so the rate never goes stale.
type Order struct {
	ID            string
	CreationTime  time.Time
	TimeSlot      *time.Time
	OriginalPrice decimal.Decimal
	Attributes    map[string]any
	Requirements  []protocol.Requirement

	price      decimal.Decimal
	energy     decimal.Decimal
	energyRate decimal.Decimal
}

// OrderOption customizes an order at construction time.
type OrderOption func(*Order)

// WithCreationTime sets the creation time. Defaults to now.
func WithCreationTime(t time.Time) OrderOption {
	return func(o *Order) {
		o.CreationTime = t
	}
}

// WithTimeSlot sets the delivery time slot.
func WithTimeSlot(t time.Time) OrderOption {
	return func(o *Order) {
		o.TimeSlot = &t
	}
}

// WithOriginalPrice sets the price before any fees were applied. Defaults to the price.
func WithOriginalPrice(price decimal.Decimal) OrderOption {
	return func(o *Order) {
		o.OriginalPrice = price
	}
}

// WithAttributes attaches free-form tags such as energy_type.
func WithAttributes(attributes map[string]any) OrderOption {
	return func(o *Order) {
		o.Attributes = attributes
	}
}

// WithRequirements attaches requirement dicts.
func WithRequirements(requirements ...protocol.Requirement) OrderOption {
	return func(o *Order) {
		o.Requirements = requirements
	}
}

func newOrder(id string, price, energy decimal.Decimal, opts []OrderOption) (Order, error) {
	if len(id) == 0 {
		return Order{}, errors.Wrap(ErrMissingIdentity, "order id")
	}
	if energy.LessThanOrEqual(decimal.Zero) {
		return Order{}, errors.Wrapf(ErrInvalidEnergy, "order %s: energy %s", id, energy)
	}

	o := Order{
		ID:            id,
		CreationTime:  time.Now().UTC(),
		OriginalPrice: price,
	}
	o.setPriceEnergy(price, energy)

	for _, opt := range opts {
		opt(&o)
	}
	return o, nil
}

func (o *Order) base() *Order {
	return o
}

func (o *Order) setPriceEnergy(price, energy decimal.Decimal) {
	o.price = price
	o.energy = energy
	o.energyRate = price.Div(energy)
}

// Price returns the total price of the order.
func (o *Order) Price() decimal.Decimal {
	return o.price
}

// Energy returns the energy of the order in kWh.
func (o *Order) Energy() decimal.Decimal {
	return o.energy
}

// EnergyRate returns price per unit of energy.
func (o *Order) EnergyRate() decimal.Decimal {
	return o.energyRate
}

// EnergyType returns the energy_type attribute, or "" when absent.
func (o *Order) EnergyType() string {
	energyType, _ := o.Attributes[protocol.AttributeEnergyType].(string)
	return energyType
}

// UpdatePrice changes the total price and recomputes the energy rate.
func (o *Order) UpdatePrice(price decimal.Decimal) {
	o.setPriceEnergy(price, o.energy)
}

// UpdateEnergy changes the energy and recomputes the energy rate.
func (o *Order) UpdateEnergy(energy decimal.Decimal) error {
	return o.UpdatePriceEnergy(o.price, energy)
}

// UpdatePriceEnergy changes price and energy together.
func (o *Order) UpdatePriceEnergy(price, energy decimal.Decimal) error {
	if energy.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidEnergy, "order %s: energy %s", o.ID, energy)
	}
	o.setPriceEnergy(price, energy)
	return nil
}

func (o *Order) clone() Order {
	cpy := *o
	cpy.Attributes = maps.Clone(o.Attributes)
	cpy.Requirements = slices.Clone(o.Requirements)
	if o.TimeSlot != nil {
		slot := *o.TimeSlot
		cpy.TimeSlot = &slot
	}
	return cpy
}

// split cuts energy off the order. The accepted part keeps the id; the residual,
// if any energy is left beyond the tolerance, gets a fresh id. Prices are split pro rata.
func (o *Order) split(energy decimal.Decimal) (accepted Order, residual *Order, err error) {
	if energy.LessThanOrEqual(decimal.Zero) || energy.GreaterThan(o.energy.Add(FloatingPointTolerance)) {
		return Order{}, nil, errors.Wrapf(ErrInvalidEnergy, "order %s: cannot split %s from %s", o.ID, energy, o.energy)
	}

	accepted = o.clone()
	remaining := o.energy.Sub(energy)
	if remaining.LessThanOrEqual(FloatingPointTolerance) {
		return accepted, nil, nil
	}

	ratio := energy.Div(o.energy)
	accepted.setPriceEnergy(o.price.Mul(ratio), energy)
	accepted.OriginalPrice = o.OriginalPrice.Mul(ratio)

	rest := o.clone()
	rest.ID = xid.New().String()
	rest.setPriceEnergy(o.price.Sub(accepted.price), remaining)
	rest.OriginalPrice = o.OriginalPrice.Sub(accepted.OriginalPrice)
	return accepted, &rest, nil
}

func (o *Order) view(orderType protocol.OrderType) protocol.OrderView {
	created := o.CreationTime
	v := protocol.OrderView{
		Type:          orderType,
		ID:            o.ID,
		CreationTime:  &created,
		Energy:        o.energy,
		EnergyRate:    o.energyRate,
		Price:         o.price,
		OriginalPrice: o.OriginalPrice,
		Attributes:    o.Attributes,
		Requirements:  o.Requirements,
	}
	if o.TimeSlot != nil {
		slot := *o.TimeSlot
		v.TimeSlot = &slot
	}
	return v
}

func orderFromView(v protocol.OrderView) (Order, error) {
	price := v.Price
	if price.IsZero() && !v.EnergyRate.IsZero() {
		price = v.EnergyRate.Mul(v.Energy)
	}

	opts := []OrderOption{WithAttributes(v.Attributes), WithRequirements(v.Requirements...)}
	if v.CreationTime != nil {
		opts = append(opts, WithCreationTime(*v.CreationTime))
	}
	if v.TimeSlot != nil {
		opts = append(opts, WithTimeSlot(*v.TimeSlot))
	}
	if !v.OriginalPrice.IsZero() {
		opts = append(opts, WithOriginalPrice(v.OriginalPrice))
	}
	return newOrder(v.ID, price, v.Energy, opts)
}

// Bid is a request to buy energy.
type Bid struct {
	Order
	Buyer TraderDetails
}

// NewBid creates a bid for energy kWh at a total price.
func NewBid(id string, price, energy decimal.Decimal, buyer TraderDetails, opts ...OrderOption) (*Bid, error) {
	if err := buyer.validate(); err != nil {
		return nil, errors.Wrapf(err, "bid %s: buyer", id)
	}
	order, err := newOrder(id, price, energy, opts)
	if err != nil {
		return nil, err
	}
	return &Bid{Order: order, Buyer: buyer}, nil
}

// BidFromView validates a bid snapshot and turns it into a Bid.
func BidFromView(v protocol.OrderView) (*Bid, error) {
	if len(v.Type) > 0 && v.Type != protocol.OrderTypeBid {
		return nil, errors.Wrapf(ErrInvalidParam, "order %s: type %q is not a bid", v.ID, v.Type)
	}
	order, err := orderFromView(v)
	if err != nil {
		return nil, err
	}

	bid := &Bid{
		Order: order,
		Buyer: TraderDetails{
			Name:       v.Buyer,
			ID:         v.BuyerID,
			OriginName: v.BuyerOrigin,
			OriginID:   v.BuyerOriginID,
		},
	}
	if err := bid.Buyer.validate(); err != nil {
		return nil, errors.Wrapf(err, "bid %s: buyer", v.ID)
	}
	return bid, nil
}

// View returns the serialized snapshot of the bid.
func (b *Bid) View() protocol.OrderView {
	v := b.view(protocol.OrderTypeBid)
	v.Buyer = b.Buyer.Name
	v.BuyerID = b.Buyer.ID
	v.BuyerOrigin = b.Buyer.OriginName
	v.BuyerOriginID = b.Buyer.OriginID
	return v
}

// Split returns the part of the bid covering energy and the residual bid, if any.
func (b *Bid) Split(energy decimal.Decimal) (*Bid, *Bid, error) {
	accepted, rest, err := b.split(energy)
	if err != nil {
		return nil, nil, err
	}
	if rest == nil {
		return &Bid{Order: accepted, Buyer: b.Buyer}, nil, nil
	}
	return &Bid{Order: accepted, Buyer: b.Buyer}, &Bid{Order: *rest, Buyer: b.Buyer}, nil
}

// Offer is a request to sell energy.
type Offer struct {
	Order
	Seller TraderDetails
}

// NewOffer creates an offer for energy kWh at a total price.
func NewOffer(id string, price, energy decimal.Decimal, seller TraderDetails, opts ...OrderOption) (*Offer, error) {
	if err := seller.validate(); err != nil {
		return nil, errors.Wrapf(err, "offer %s: seller", id)
	}
	order, err := newOrder(id, price, energy, opts)
	if err != nil {
		return nil, err
	}
	return &Offer{Order: order, Seller: seller}, nil
}

// OfferFromView validates an offer snapshot and turns it into an Offer.
func OfferFromView(v protocol.OrderView) (*Offer, error) {
	if len(v.Type) > 0 && v.Type != protocol.OrderTypeOffer {
		return nil, errors.Wrapf(ErrInvalidParam, "order %s: type %q is not an offer", v.ID, v.Type)
	}
	order, err := orderFromView(v)
	if err != nil {
		return nil, err
	}

	offer := &Offer{
		Order: order,
		Seller: TraderDetails{
			Name:       v.Seller,
			ID:         v.SellerID,
			OriginName: v.SellerOrigin,
			OriginID:   v.SellerOriginID,
		},
	}
	if err := offer.Seller.validate(); err != nil {
		return nil, errors.Wrapf(err, "offer %s: seller", v.ID)
	}
	return offer, nil
}

// View returns the serialized snapshot of the offer.
func (o *Offer) View() protocol.OrderView {
	v := o.view(protocol.OrderTypeOffer)
	v.Seller = o.Seller.Name
	v.SellerID = o.Seller.ID
	v.SellerOrigin = o.Seller.OriginName
	v.SellerOriginID = o.Seller.OriginID
	return v
}

// Split returns the part of the offer covering energy and the residual offer, if any.
func (o *Offer) Split(energy decimal.Decimal) (*Offer, *Offer, error) {
	accepted, rest, err := o.split(energy)
	if err != nil {
		return nil, nil, err
	}
	if rest == nil {
		return &Offer{Order: accepted, Seller: o.Seller}, nil, nil
	}
	return &Offer{Order: accepted, Seller: o.Seller}, &Offer{Order: *rest, Seller: o.Seller}, nil
}

// isSelfTrade reports whether bid and offer belong to the same party.
func isSelfTrade(bid *Bid, offer *Offer) bool {
	return bid.Buyer.sameParty(offer.Seller)
}
