package protocol

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType tells a bid snapshot from an offer snapshot.
type OrderType string

const (
	OrderTypeBid   OrderType = "Bid"
	OrderTypeOffer OrderType = "Offer"
)

// AttributeEnergyType is the attribute key an offer uses to advertise its energy source.
const AttributeEnergyType = "energy_type"

// OrderView is the plain serialized form of a bid or an offer.
// The matching engine only ever receives these snapshots, never live orders.
type OrderView struct {
	Type          OrderType       `json:"type"`
	ID            string          `json:"id"`
	CreationTime  *time.Time      `json:"creation_time,omitempty"`
	TimeSlot      *time.Time      `json:"time_slot,omitempty"`
	Energy        decimal.Decimal `json:"energy"`
	EnergyRate    decimal.Decimal `json:"energy_rate"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`

	// Seller fields, only set on offers
	Seller         string `json:"seller,omitempty"`
	SellerID       string `json:"seller_id,omitempty"`
	SellerOrigin   string `json:"seller_origin,omitempty"`
	SellerOriginID string `json:"seller_origin_id,omitempty"`

	// Buyer fields, only set on bids
	Buyer         string `json:"buyer,omitempty"`
	BuyerID       string `json:"buyer_id,omitempty"`
	BuyerOrigin   string `json:"buyer_origin,omitempty"`
	BuyerOriginID string `json:"buyer_origin_id,omitempty"`

	Attributes   map[string]any `json:"attributes,omitempty"`
	Requirements []Requirement  `json:"requirements,omitempty"`
}

// SlotData holds the order snapshots of one market for one delivery time slot.
type SlotData struct {
	Bids        []OrderView `json:"bids"`
	Offers      []OrderView `json:"offers"`
	CurrentTime string      `json:"current_time,omitempty"`
}

// MatchingData is the input of a matching round: market id -> time slot -> orders.
type MatchingData map[string]map[string]SlotData

// MarketIDs returns the market ids in ascending order.
func (d MatchingData) MarketIDs() []string {
	return sortedKeys(d)
}

// TimeSlots returns the time slots of a market in ascending order.
func (d MatchingData) TimeSlots(marketID string) []string {
	return SortedTimeSlots(d[marketID])
}

// SortedTimeSlots returns the keys of slots in ascending order.
func SortedTimeSlots(slots map[string]SlotData) []string {
	return sortedKeys(slots)
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
