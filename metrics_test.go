package match

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	bids := []*Bid{createBid(t, "bid-1", "3", "2.5", trader("B"))}
	offers := []*Offer{createOffer(t, "offer-1", "1", "4", trader("S"))}
	matches := NewPayAsBid().Match(testMarket, testSlot, bids, offers)
	require.Len(t, matches, 1)

	m.observeMatches("pay_as_bid", matches)
	m.observeMatches("pay_as_bid", nil)
	m.observeClearingMiss()
	m.observeSlotError()
	m.observeSlotError()
	m.observeRound(time.Now())

	assert.InDelta(t, 1, testutil.ToFloat64(m.Recommendations.WithLabelValues("pay_as_bid")), 1e-9)
	assert.InDelta(t, 2.5, testutil.ToFloat64(m.SelectedEnergy.WithLabelValues("pay_as_bid")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ClearingMisses), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SlotErrors), 1e-9)

	count, err := testutil.GatherAndCount(reg, "matching_recommendations_total", "matching_round_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeMatches("pay_as_bid", []*BidOfferMatch{{SelectedEnergy: dec("1")}})
		m.observeClearingMiss()
		m.observeSlotError()
		m.observeRound(time.Now())
	})
}

func TestMemoryPublishMatch(t *testing.T) {
	publisher := NewMemoryPublishMatch()
	publisher.PublishMatches(&BidOfferMatch{MarketID: "a"}, &BidOfferMatch{MarketID: "b"})
	publisher.PublishMatches()

	assert.Equal(t, 2, publisher.Count())
	assert.Equal(t, "b", publisher.Get(1).MarketID)

	snapshot := publisher.Matches()
	snapshot[0] = nil
	assert.NotNil(t, publisher.Get(0))

	NewDiscardPublishMatch().PublishMatches(&BidOfferMatch{})
}

func TestNewLogger(t *testing.T) {
	l, sync, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Debug("logger ready", "component", "test")
	_ = sync()

	_, _, err = NewLogger("loud")
	assert.ErrorIs(t, err, ErrInvalidParam)
}
