package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gridsim/matching-engine/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
	engine    *Engine
	publisher *MemoryPublishMatch
	metrics   *Metrics
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.publisher = NewMemoryPublishMatch()
	s.metrics = NewMetrics(prometheus.NewRegistry())

	cfg := DefaultConfig()
	cfg.MarketType = MarketTypePayAsClear
	engine, err := NewEngine(cfg, WithPublisher(s.publisher), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.engine = engine
}

func crossingSlot() protocol.SlotData {
	return protocol.SlotData{
		Bids: []protocol.OrderView{
			bidView("bid-1", "5", "10", "B1"),
			bidView("bid-2", "3", "10", "B2"),
		},
		Offers: []protocol.OrderView{
			offerView("offer-1", "2", "8", "S1"),
			offerView("offer-2", "4", "8", "S2"),
		},
	}
}

func (s *EngineTestSuite) TestRecommend() {
	data := protocol.MatchingData{
		"market-b": {"slot-1": crossingSlot()},
		"market-a": {"slot-2": crossingSlot(), "slot-1": crossingSlot()},
	}

	matches, err := s.engine.Recommend(context.Background(), data)
	s.Require().NoError(err)
	s.Require().Len(matches, 6)

	s.Equal("market-a", matches[0].MarketID)
	s.Equal("slot-1", matches[0].TimeSlot)
	s.Equal("slot-2", matches[2].TimeSlot)
	s.Equal("market-b", matches[4].MarketID)
	for _, m := range matches {
		s.Equal("5", m.TradeRate.String())
	}

	s.Equal(6, s.publisher.Count())
	s.Equal("bid-1", s.publisher.Get(0).Bid.ID)
	s.Equal([]string{"market-a", "market-b"}, s.engine.Markets())

	s.InDelta(6, testutil.ToFloat64(s.metrics.Recommendations.WithLabelValues("pay_as_clear")), 1e-9)
	s.InDelta(30, testutil.ToFloat64(s.metrics.SelectedEnergy.WithLabelValues("pay_as_clear")), 1e-9)
	s.Equal(1, testutil.CollectAndCount(s.metrics.RoundDuration))
}

func (s *EngineTestSuite) TestClearingState() {
	_, ok := s.engine.ClearingState("market-a", "slot-1")
	s.False(ok)

	_, err := s.engine.Recommend(context.Background(), protocol.MatchingData{
		"market-a": {"slot-1": crossingSlot()},
	})
	s.Require().NoError(err)

	state, ok := s.engine.ClearingState("market-a", "slot-1")
	s.Require().True(ok)
	s.Require().NotNil(state.Clearing)
	s.Equal("5", state.Clearing.Rate.String())
	s.Equal("10", state.Clearing.Energy.String())
}

func (s *EngineTestSuite) TestClearingStateOnlyKeepsLastRound() {
	_, err := s.engine.Recommend(context.Background(), protocol.MatchingData{
		"market-a": {"slot-1": crossingSlot()},
	})
	s.Require().NoError(err)

	_, err = s.engine.Recommend(context.Background(), protocol.MatchingData{
		"market-a": {"slot-2": crossingSlot()},
	})
	s.Require().NoError(err)

	_, ok := s.engine.ClearingState("market-a", "slot-1")
	s.False(ok)
	_, ok = s.engine.ClearingState("market-a", "slot-2")
	s.True(ok)
}

func (s *EngineTestSuite) TestSlotErrorsKeepRoundAlive() {
	broken := crossingSlot()
	broken.Bids[0].Energy = dec("0")

	matches, err := s.engine.Recommend(context.Background(), protocol.MatchingData{
		"market-a": {"slot-1": crossingSlot(), "slot-2": broken},
	})
	s.Require().Error(err)
	s.Len(matches, 2)

	var slotErr *SlotError
	s.Require().True(errors.As(err, &slotErr))
	s.Equal("slot-2", slotErr.TimeSlot)
	s.ErrorIs(err, ErrInvalidEnergy)
	s.InDelta(1, testutil.ToFloat64(s.metrics.SlotErrors), 1e-9)
}

func (s *EngineTestSuite) TestClearingMiss() {
	matches, err := s.engine.Recommend(context.Background(), protocol.MatchingData{
		"market-a": {"slot-1": {
			Bids:   []protocol.OrderView{bidView("bid-1", "1", "10", "B1")},
			Offers: []protocol.OrderView{offerView("offer-1", "5", "10", "S1")},
		}},
	})
	s.Require().NoError(err)
	s.Empty(matches)
	s.Equal(0, s.publisher.Count())
	s.InDelta(1, testutil.ToFloat64(s.metrics.ClearingMisses), 1e-9)
}

func (s *EngineTestSuite) TestBoundedParallelism() {
	cfg := DefaultConfig()
	cfg.MaxParallelMarkets = 2
	engine, err := NewEngine(cfg)
	s.Require().NoError(err)

	data := protocol.MatchingData{}
	for i := 0; i < 10; i++ {
		data[fmt.Sprintf("market-%02d", i)] = map[string]protocol.SlotData{"slot-1": crossingSlot()}
	}

	matches, err := engine.Recommend(context.Background(), data)
	s.Require().NoError(err)
	s.Len(matches, 20)
	s.Equal("market-00", matches[0].MarketID)
	s.Equal("market-09", matches[19].MarketID)
}

func (s *EngineTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.engine.Recommend(ctx, protocol.MatchingData{
		"market-a": {"slot-1": crossingSlot()},
	})
	s.ErrorIs(err, context.Canceled)
}

func (s *EngineTestSuite) TestShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.Require().NoError(s.engine.Shutdown(ctx))

	_, err := s.engine.Recommend(context.Background(), protocol.MatchingData{})
	s.ErrorIs(err, ErrShutdown)
	s.Empty(s.engine.Markets())
}

func (s *EngineTestSuite) TestInvalidConfig() {
	cfg := DefaultConfig()
	cfg.MarketType = MarketTypeExternal
	_, err := NewEngine(cfg)
	s.ErrorIs(err, ErrExternalMatching)

	cfg = DefaultConfig()
	cfg.AggregationAlgorithm = 7
	_, err = NewEngine(cfg)
	s.ErrorIs(err, ErrInvalidAggregationPolicy)
}
