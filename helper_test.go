package match

import (
	"testing"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

// createBid builds a bid from an energy rate instead of a total price.
func createBid(t *testing.T, id, rate, energy string, buyer TraderDetails, opts ...OrderOption) *Bid {
	t.Helper()
	bid, err := NewBid(id, dec(rate).Mul(dec(energy)), dec(energy), buyer, opts...)
	require.NoError(t, err)
	return bid
}

func createOffer(t *testing.T, id, rate, energy string, seller TraderDetails, opts ...OrderOption) *Offer {
	t.Helper()
	offer, err := NewOffer(id, dec(rate).Mul(dec(energy)), dec(energy), seller, opts...)
	require.NoError(t, err)
	return offer
}

func trader(name string) TraderDetails {
	return TraderDetails{Name: name, ID: name + "-id"}
}

func bidView(id, rate, energy, buyer string) protocol.OrderView {
	return protocol.OrderView{
		Type:       protocol.OrderTypeBid,
		ID:         id,
		Energy:     dec(energy),
		EnergyRate: dec(rate),
		Buyer:      buyer,
		BuyerID:    buyer + "-id",
	}
}

func offerView(id, rate, energy, seller string) protocol.OrderView {
	return protocol.OrderView{
		Type:       protocol.OrderTypeOffer,
		ID:         id,
		Energy:     dec(energy),
		EnergyRate: dec(rate),
		Seller:     seller,
		SellerID:   seller + "-id",
	}
}

func totalSelectedEnergy(matches []*BidOfferMatch) decimal.Decimal {
	total := decimal.Zero
	for _, m := range matches {
		total = total.Add(m.SelectedEnergy)
	}
	return total
}
