package match

import (
	"cmp"
	"slices"

	"github.com/igrmk/treemap/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AggregationPolicy selects how pay-as-clear aggregates orders into supply and demand curves.
type AggregationPolicy uint8

const (
	// ContinuousSweep accumulates energy on exact rates and sweeps the demand curve.
	ContinuousSweep AggregationPolicy = 1
	// DiscreteRelaxation rounds rates to integers (bids down, offers up) and scans integer rates.
	DiscreteRelaxation AggregationPolicy = 2
)

// ParseAggregationPolicy validates the configured aggregation algorithm number.
func ParseAggregationPolicy(value int) (AggregationPolicy, error) {
	switch AggregationPolicy(value) {
	case ContinuousSweep, DiscreteRelaxation:
		return AggregationPolicy(value), nil
	}
	return 0, errors.Wrapf(ErrInvalidAggregationPolicy, "%d", value)
}

// Clearing is the single rate and energy one market slot clears at.
type Clearing struct {
	Rate   decimal.Decimal `json:"rate"`
	Energy decimal.Decimal `json:"energy"`
}

// CurvePoint is one (rate, cumulative energy) point of a supply or demand curve.
type CurvePoint struct {
	Rate   decimal.Decimal `json:"rate"`
	Energy decimal.Decimal `json:"energy"`
}

// MarketClearingState holds the aggregated curves of one market slot and the
// clearing point resolved from them. Clearing is nil when the curves never cross.
type MarketClearingState struct {
	CumulativeBids   *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
	CumulativeOffers *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
	Clearing         *Clearing
}

func newCurve() *treemap.TreeMap[decimal.Decimal, decimal.Decimal] {
	return treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	})
}

func newMarketClearingState() *MarketClearingState {
	return &MarketClearingState{
		CumulativeBids:   newCurve(),
		CumulativeOffers: newCurve(),
	}
}

// DemandCurve returns the cumulative bid curve in ascending rate order.
func (s *MarketClearingState) DemandCurve() []CurvePoint {
	return curvePoints(s.CumulativeBids)
}

// SupplyCurve returns the cumulative offer curve in ascending rate order.
func (s *MarketClearingState) SupplyCurve() []CurvePoint {
	return curvePoints(s.CumulativeOffers)
}

func curvePoints(curve *treemap.TreeMap[decimal.Decimal, decimal.Decimal]) []CurvePoint {
	points := make([]CurvePoint, 0, curve.Len())
	for it := curve.Iterator(); it.Valid(); it.Next() {
		points = append(points, CurvePoint{Rate: it.Key(), Energy: it.Value()})
	}
	return points
}

// accumulateEnergyPerRate stores the running energy sum at each rate, following the order given.
// Orders sharing a rate leave the largest running sum on that rate.
func accumulateEnergyPerRate[T orderRef](curve *treemap.TreeMap[decimal.Decimal, decimal.Decimal], orders []T) {
	sum := decimal.Zero
	for _, order := range orders {
		o := order.base()
		sum = sum.Add(o.Energy())
		curve.Set(o.EnergyRate(), sum)
	}
}

// continuousClearingPoint expects bids sorted by descending rate and offers by ascending rate.
func continuousClearingPoint(sortedBids []*Bid, sortedOffers []*Offer) *MarketClearingState {
	state := newMarketClearingState()
	accumulateEnergyPerRate(state.CumulativeBids, sortedBids)
	accumulateEnergyPerRate(state.CumulativeOffers, sortedOffers)

	// Sweep demand from the lowest rate up. The first demand point fully covered by
	// supply at a compatible rate clears; otherwise the last partially covered one does.
	var fallback *Clearing
	for bidIt := state.CumulativeBids.Iterator(); bidIt.Valid(); bidIt.Next() {
		bidRate, demand := bidIt.Key(), bidIt.Value()
		limit := bidRate.Add(FloatingPointTolerance)

		for offerIt := state.CumulativeOffers.Iterator(); offerIt.Valid() && offerIt.Key().LessThanOrEqual(limit); offerIt.Next() {
			supply := offerIt.Value()
			if supply.GreaterThanOrEqual(demand) {
				state.Clearing = &Clearing{Rate: bidRate, Energy: demand}
				return state
			}
			fallback = &Clearing{Rate: bidRate, Energy: supply}
		}
	}

	state.Clearing = fallback
	return state
}

// rateSteps is a step curve over integer rates. cumulative[i] holds the energy of rates[:i].
type rateSteps struct {
	rates      []int64
	cumulative []decimal.Decimal
}

func newRateSteps(energyPerRate map[int64]decimal.Decimal) rateSteps {
	rates := sortedKeys(energyPerRate)
	cumulative := make([]decimal.Decimal, len(rates)+1)
	for i, rate := range rates {
		cumulative[i+1] = cumulative[i].Add(energyPerRate[rate])
	}
	return rateSteps{rates: rates, cumulative: cumulative}
}

// atOrBelow sums the energy on rates <= rate.
func (s rateSteps) atOrBelow(rate int64) decimal.Decimal {
	i, _ := slices.BinarySearch(s.rates, rate+1)
	return s.cumulative[i]
}

// atOrAbove sums the energy on rates >= rate.
func (s rateSteps) atOrAbove(rate int64) decimal.Decimal {
	i, _ := slices.BinarySearch(s.rates, rate)
	return s.cumulative[len(s.rates)].Sub(s.cumulative[i])
}

// discreteClearingPoint aggregates on integer rates: bid rates are floored, offer rates ceiled.
// Offers priced below zero are available from rate 0 on.
func discreteClearingPoint(bids []*Bid, offers []*Offer) *MarketClearingState {
	state := newMarketClearingState()

	bidPoints := make(map[int64]decimal.Decimal)
	offerPoints := make(map[int64]decimal.Decimal)
	maxRate := int64(0)
	for _, bid := range bids {
		rate := bid.EnergyRate().Floor().IntPart()
		bidPoints[rate] = bidPoints[rate].Add(bid.Energy())
		maxRate = max(maxRate, rate)
	}
	for _, offer := range offers {
		rate := max(offer.EnergyRate().Ceil().IntPart(), 0)
		offerPoints[rate] = offerPoints[rate].Add(offer.Energy())
		maxRate = max(maxRate, rate)
	}

	// Demand counts bids at or above a rate, supply counts offers at or below it.
	// Both only change on the rates orders sit on, so only those points are stored.
	demand := newRateSteps(bidPoints)
	supply := newRateSteps(offerPoints)
	state.CumulativeBids.Set(decimal.Zero, demand.atOrAbove(0))
	state.CumulativeOffers.Set(decimal.Zero, supply.atOrBelow(0))
	for rate := range bidPoints {
		if rate > 0 {
			state.CumulativeBids.Set(decimal.NewFromInt(rate), demand.atOrAbove(rate))
		}
	}
	for rate := range offerPoints {
		state.CumulativeOffers.Set(decimal.NewFromInt(rate), supply.atOrBelow(rate))
	}

	// offers >= bids first holds at rate 1, on a rate supply grows, or just past a rate demand drops.
	candidates := map[int64]struct{}{1: {}}
	for rate := range offerPoints {
		candidates[rate] = struct{}{}
	}
	for rate := range bidPoints {
		candidates[rate+1] = struct{}{}
	}

	for _, rate := range sortedKeys(candidates) {
		if rate < 1 || rate > maxRate {
			continue
		}
		bidEnergy, offerEnergy := demand.atOrAbove(rate), supply.atOrBelow(rate)
		if offerEnergy.LessThan(bidEnergy) {
			continue
		}
		clearing := &Clearing{Rate: decimal.NewFromInt(rate), Energy: bidEnergy}
		if bidEnergy.IsZero() {
			// No demand left at this rate: clear one rate lower on the available supply.
			clearing = &Clearing{Rate: decimal.NewFromInt(rate - 1), Energy: supply.atOrBelow(rate - 1)}
		}
		if clearing.Energy.GreaterThan(FloatingPointTolerance) {
			state.Clearing = clearing
		}
		break
	}
	return state
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
