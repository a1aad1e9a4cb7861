package match

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridsim/matching-engine/protocol"
)

// Engine recommends matches for many markets. Each market gets its own algorithm
// instance, so markets can be matched in parallel without sharing state.
type Engine struct {
	// mu serializes rounds. Algorithm instances are only touched under it.
	mu         sync.Mutex
	isShutdown atomic.Bool
	config     Config
	algorithms sync.Map
	publisher  PublishMatch
	metrics    *Metrics
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithPublisher sends every round's matches to p.
func WithPublisher(p PublishMatch) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithMetrics records round metrics on m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine validates cfg and creates an engine. It fails with ErrExternalMatching
// when matching is configured to happen outside the engine.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MarketType == MarketTypeExternal {
		return nil, ErrExternalMatching
	}

	engine := &Engine{
		config:    cfg,
		publisher: NewDiscardPublishMatch(),
	}
	for _, opt := range opts {
		opt(engine)
	}

	logger.Info("matching engine created",
		"version", EngineVersion,
		"market_type", string(cfg.MarketType),
		"aggregation_algorithm", cfg.AggregationAlgorithm,
		"max_parallel_markets", cfg.MaxParallelMarkets,
	)
	return engine, nil
}

// Config returns the configuration the engine was created with.
func (engine *Engine) Config() Config {
	return engine.config
}

// algorithm returns the algorithm owned by marketID, creating it on first use.
func (engine *Engine) algorithm(marketID string) (MatchingAlgorithm, error) {
	if alg, ok := engine.algorithms.Load(marketID); ok {
		return alg.(MatchingAlgorithm), nil
	}
	alg, err := NewMatchingAlgorithm(engine.config.MarketType, engine.config.AggregationPolicy())
	if err != nil {
		return nil, err
	}
	actual, _ := engine.algorithms.LoadOrStore(marketID, alg)
	return actual.(MatchingAlgorithm), nil
}

// Recommend runs one matching round over every market slot of data. Markets are
// matched in parallel and the result is ordered by market id, then time slot.
// Slots that fail are reported as *SlotError values joined in the returned error,
// while the matches of every other slot are still returned and published.
func (engine *Engine) Recommend(ctx context.Context, data protocol.MatchingData) ([]*BidOfferMatch, error) {
	if engine.isShutdown.Load() {
		return nil, ErrShutdown
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	start := time.Now()
	marketIDs := data.MarketIDs()
	results := make([][]*BidOfferMatch, len(marketIDs))
	marketErrs := make([][]error, len(marketIDs))

	var sem chan struct{}
	if engine.config.MaxParallelMarkets > 0 {
		sem = make(chan struct{}, engine.config.MaxParallelMarkets)
	}

	var wg sync.WaitGroup
	for i, marketID := range marketIDs {
		alg, err := engine.algorithm(marketID)
		if err != nil {
			marketErrs[i] = []error{err}
			continue
		}

		wg.Add(1)
		go func(i int, marketID string, alg MatchingAlgorithm) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			startRound(alg)
			results[i], marketErrs[i] = recommendMarket(alg, marketID, data[marketID], engine.metrics)
		}(i, marketID, alg)
	}
	wg.Wait()

	matches := make([]*BidOfferMatch, 0)
	var errs []error
	for i := range marketIDs {
		matches = append(matches, results[i]...)
		errs = append(errs, marketErrs[i]...)
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	if len(matches) > 0 {
		engine.publisher.PublishMatches(matches...)
	}
	engine.metrics.observeRound(start)

	logger.Debug("matching round done",
		"markets", len(marketIDs),
		"matches", len(matches),
		"errors", len(errs),
		"duration", time.Since(start),
	)
	return matches, errors.Join(errs...)
}

// ClearingState returns the pay-as-clear state of the last round for a market slot.
// It reports false for markets that never ran or do not clear.
func (engine *Engine) ClearingState(marketID, timeSlot string) (*MarketClearingState, bool) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	alg, ok := engine.algorithms.Load(marketID)
	if !ok {
		return nil, false
	}
	clearing, ok := alg.(*PayAsClear)
	if !ok {
		return nil, false
	}
	return clearing.State(marketID, timeSlot)
}

// Markets returns the ids of markets the engine has matched, in ascending order.
func (engine *Engine) Markets() []string {
	ids := make([]string, 0)
	engine.algorithms.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	slices.Sort(ids)
	return ids
}

// Shutdown rejects new rounds and waits for the running one to finish.
func (engine *Engine) Shutdown(ctx context.Context) error {
	engine.isShutdown.Store(true)

	done := make(chan struct{})
	go func() {
		engine.mu.Lock()
		defer engine.mu.Unlock()

		engine.algorithms.Range(func(key, _ any) bool {
			engine.algorithms.Delete(key)
			return true
		})
		close(done)
	}()

	select {
	case <-done:
		logger.Info("matching engine shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
