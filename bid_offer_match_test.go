package match

import (
	"testing"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidOfferMatchValidate(t *testing.T) {
	bid := createBid(t, "bid-1", "3", "5", trader("B"))
	offer := createOffer(t, "offer-1", "1", "4", trader("S"))

	assert.NoError(t, newBidOfferMatch(testMarket, testSlot, bid, offer, dec("4"), dec("3"), nil).Validate())
	assert.NoError(t, newBidOfferMatch(testMarket, testSlot, bid, offer, dec("4.000000001"), dec("3"), nil).Validate())

	err := newBidOfferMatch(testMarket, testSlot, bid, offer, dec("4.1"), dec("3"), nil).Validate()
	assert.ErrorIs(t, err, ErrInvalidMatch)

	err = newBidOfferMatch(testMarket, testSlot, bid, offer, dec("0"), dec("3"), nil).Validate()
	assert.ErrorIs(t, err, ErrInvalidMatch)

	self := createOffer(t, "offer-2", "1", "4", trader("B"))
	err = newBidOfferMatch(testMarket, testSlot, bid, self, dec("1"), dec("3"), nil).Validate()
	assert.ErrorIs(t, err, ErrInvalidMatch)
}

func TestBidOfferMatchJSON(t *testing.T) {
	bid := createBid(t, "bid-1", "3", "5", trader("B"))
	offer := createOffer(t, "offer-1", "1", "4", trader("S"))
	req := protocol.Requirement{TradingPartners: []string{"S-id"}}
	m := newBidOfferMatch(testMarket, testSlot, bid, offer, dec("4"), dec("3"),
		&MatchingRequirements{BidRequirement: &req})

	serializer := protocol.DefaultJSONSerializer{}
	raw, err := serializer.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, serializer.Unmarshal(raw, &decoded))
	for _, key := range []string{"market_id", "time_slot", "bid", "offer", "selected_energy", "trade_rate", "matching_requirements"} {
		assert.Contains(t, decoded, key)
	}
	requirements := decoded["matching_requirements"].(map[string]any)
	assert.Contains(t, requirements, "bid_requirement")
	assert.NotContains(t, requirements, "offer_requirement")
}
