package match

import (
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// MarketType selects the matching algorithm of a simulation run.
type MarketType string

const (
	MarketTypePayAsBid          MarketType = "pay_as_bid"
	MarketTypePayAsClear        MarketType = "pay_as_clear"
	MarketTypePreferredPartners MarketType = "preferred_partners"
	MarketTypeAttributed        MarketType = "attributed"
	// MarketTypeExternal leaves matching to a matcher outside this engine.
	MarketTypeExternal MarketType = "external"
)

// ParseMarketType validates a market type name.
func ParseMarketType(value string) (MarketType, error) {
	switch t := MarketType(value); t {
	case MarketTypePayAsBid, MarketTypePayAsClear, MarketTypePreferredPartners, MarketTypeAttributed, MarketTypeExternal:
		return t, nil
	}
	return "", errors.Wrapf(ErrUnknownMarketType, "%q", value)
}

func (t *MarketType) UnmarshalText(text []byte) error {
	parsed, err := ParseMarketType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Config is read once per simulation run.
type Config struct {
	MarketType           MarketType `env:"MARKET_TYPE" envDefault:"pay_as_bid"`
	AggregationAlgorithm int        `env:"PAY_AS_CLEAR_AGGREGATION_ALGORITHM" envDefault:"1"`
	LogLevel             string     `env:"LOG_LEVEL" envDefault:"info"`
	// MaxParallelMarkets bounds how many markets are matched at once. 0 means no bound.
	MaxParallelMarkets int `env:"MAX_PARALLEL_MARKETS" envDefault:"0"`
}

func DefaultConfig() Config {
	return Config{
		MarketType:           MarketTypePayAsBid,
		AggregationAlgorithm: int(ContinuousSweep),
		LogLevel:             "info",
	}
}

// LoadConfig reads the given .env files, or ./.env when none are given, then parses
// the environment. A missing .env file is not an error.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(err, "load env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails on values the engine cannot run with.
func (c Config) Validate() error {
	if _, err := ParseMarketType(string(c.MarketType)); err != nil {
		return err
	}
	if _, err := ParseAggregationPolicy(c.AggregationAlgorithm); err != nil {
		return err
	}
	if c.MaxParallelMarkets < 0 {
		return errors.Wrapf(ErrInvalidParam, "max parallel markets %d", c.MaxParallelMarkets)
	}
	return nil
}

// AggregationPolicy returns the validated pay-as-clear aggregation policy.
func (c Config) AggregationPolicy() AggregationPolicy {
	return AggregationPolicy(c.AggregationAlgorithm)
}
