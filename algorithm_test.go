package match

import (
	"errors"
	"testing"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatchingAlgorithm(t *testing.T) {
	for _, marketType := range []MarketType{MarketTypePayAsBid, MarketTypePayAsClear, MarketTypePreferredPartners, MarketTypeAttributed} {
		alg, err := NewMatchingAlgorithm(marketType, ContinuousSweep)
		require.NoError(t, err)
		assert.Equal(t, string(marketType), alg.Name())
	}

	_, err := NewMatchingAlgorithm(MarketTypeExternal, ContinuousSweep)
	assert.ErrorIs(t, err, ErrExternalMatching)

	_, err = NewMatchingAlgorithm(MarketType("dutch"), ContinuousSweep)
	assert.ErrorIs(t, err, ErrUnknownMarketType)

	_, err = NewMatchingAlgorithm(MarketTypePayAsClear, AggregationPolicy(0))
	assert.ErrorIs(t, err, ErrInvalidAggregationPolicy)
}

func TestMatchesRecommendations(t *testing.T) {
	t.Run("OrderedByMarketAndSlot", func(t *testing.T) {
		data := protocol.MatchingData{
			"market-b": {
				"slot-1": {Bids: []protocol.OrderView{bidView("b3", "3", "1", "B")}, Offers: []protocol.OrderView{offerView("o3", "1", "1", "S")}},
			},
			"market-a": {
				"slot-2": {Bids: []protocol.OrderView{bidView("b2", "3", "1", "B")}, Offers: []protocol.OrderView{offerView("o2", "1", "1", "S")}},
				"slot-1": {Bids: []protocol.OrderView{bidView("b1", "3", "1", "B")}, Offers: []protocol.OrderView{offerView("o1", "1", "1", "S")}},
			},
		}

		matches, err := MatchesRecommendations(NewPayAsBid(), data)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "b1", matches[0].Bid.ID)
		assert.Equal(t, "b2", matches[1].Bid.ID)
		assert.Equal(t, "b3", matches[2].Bid.ID)
		assert.Equal(t, "market-b", matches[2].MarketID)
	})

	t.Run("MalformedSlotSkipped", func(t *testing.T) {
		data := protocol.MatchingData{
			"market-a": {
				"slot-1": {Bids: []protocol.OrderView{bidView("b1", "3", "1", "B")}, Offers: []protocol.OrderView{offerView("o1", "1", "1", "S")}},
				"slot-2": {Bids: []protocol.OrderView{bidView("b2", "3", "0", "B")}, Offers: []protocol.OrderView{offerView("o2", "1", "1", "S")}},
			},
		}

		matches, err := MatchesRecommendations(NewPayAsBid(), data)
		require.Error(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "slot-1", matches[0].TimeSlot)

		var slotErr *SlotError
		require.True(t, errors.As(err, &slotErr))
		assert.Equal(t, "market-a", slotErr.MarketID)
		assert.Equal(t, "slot-2", slotErr.TimeSlot)
		assert.ErrorIs(t, err, ErrInvalidEnergy)
	})

	t.Run("DuplicateOrder", func(t *testing.T) {
		data := protocol.MatchingData{
			"market-a": {
				"slot-1": {
					Bids:   []protocol.OrderView{bidView("b1", "3", "1", "B")},
					Offers: []protocol.OrderView{offerView("o1", "1", "1", "S"), offerView("o1", "2", "1", "T")},
				},
			},
		}

		matches, err := MatchesRecommendations(NewPayAsBid(), data)
		assert.ErrorIs(t, err, ErrDuplicateOrder)
		assert.Empty(t, matches)
	})

	t.Run("EmptyOffers", func(t *testing.T) {
		data := protocol.MatchingData{
			"market-a": {
				"slot-1": {Bids: []protocol.OrderView{bidView("b1", "3", "1", "B")}},
			},
		}

		matches, err := MatchesRecommendations(NewPayAsBid(), data)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
