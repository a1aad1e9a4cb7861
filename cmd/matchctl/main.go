package main

import (
	"context"
	"fmt"
	"os"

	match "github.com/gridsim/matching-engine"
	"github.com/gridsim/matching-engine/protocol"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var serializer protocol.Serializer = protocol.DefaultJSONSerializer{}

func main() {
	app := &cli.App{
		Name:    "matchctl",
		Usage:   "Recommend bid/offer matches for energy market snapshots",
		Version: match.EngineVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "specify a .env file to load before reading the environment",
			},
		},
		Commands: []*cli.Command{
			recommendCmd,
			clearingCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
}

var marketFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "input",
		Required: true,
		Usage:    "specify the input matching data json",
	},
	&cli.IntFlag{
		Name:  "aggregation",
		Usage: "specify the pay-as-clear aggregation algorithm (1 or 2)",
	},
}

var recommendCmd = &cli.Command{
	Name:    "recommend",
	Usage:   "Recommend matches for every market slot of the input",
	Aliases: []string{"r"},
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "specify the output json, stdout if empty",
		},
		&cli.StringFlag{
			Name:  "market-type",
			Usage: "specify the market type (pay_as_bid, pay_as_clear, preferred_partners, attributed)",
		},
	}, marketFlags...),
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		data, err := readMatchingData(ctx.String("input"))
		if err != nil {
			return err
		}
		return doRecommend(ctx.Context, cfg, data, ctx.String("output"))
	},
}

var clearingCmd = &cli.Command{
	Name:    "clearing",
	Usage:   "Print the pay-as-clear clearing point of every market slot of the input",
	Aliases: []string{"c"},
	Flags:   marketFlags,
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		data, err := readMatchingData(ctx.String("input"))
		if err != nil {
			return err
		}
		return doClearing(cfg, data)
	},
}

// loadConfig reads the environment, then applies the command line overrides.
func loadConfig(ctx *cli.Context) (match.Config, error) {
	var files []string
	if path := ctx.String("env"); len(path) > 0 {
		files = append(files, path)
	}
	cfg, err := match.LoadConfig(files...)
	if err != nil {
		return cfg, err
	}

	if ctx.IsSet("market-type") {
		cfg.MarketType = match.MarketType(ctx.String("market-type"))
	}
	if ctx.IsSet("aggregation") {
		cfg.AggregationAlgorithm = ctx.Int("aggregation")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	l, _, err := match.NewLogger(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	match.SetLogger(l)
	return cfg, nil
}

func readMatchingData(path string) (protocol.MatchingData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	var data protocol.MatchingData
	if err := serializer.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "decode matching data")
	}
	return data, nil
}

func doRecommend(ctx context.Context, cfg match.Config, data protocol.MatchingData, output string) error {
	engine, err := match.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Shutdown(context.Background()) }()

	matches, roundErr := engine.Recommend(ctx, data)
	if roundErr != nil {
		fmt.Fprintln(os.Stderr, "skipped:", roundErr)
	}

	raw, err := serializer.Marshal(matches)
	if err != nil {
		return errors.Wrap(err, "encode matches")
	}
	if len(output) == 0 {
		_, err = fmt.Println(string(raw))
		return err
	}
	return os.WriteFile(output, raw, 0o600)
}

type clearingReport struct {
	MarketID string             `json:"market_id"`
	TimeSlot string             `json:"time_slot"`
	Clearing *match.Clearing    `json:"clearing"`
	Demand   []match.CurvePoint `json:"demand"`
	Supply   []match.CurvePoint `json:"supply"`
}

func doClearing(cfg match.Config, data protocol.MatchingData) error {
	alg, err := match.NewPayAsClear(cfg.AggregationPolicy())
	if err != nil {
		return err
	}
	if _, err := match.MatchesRecommendations(alg, data); err != nil {
		fmt.Fprintln(os.Stderr, "skipped:", err)
	}

	reports := make([]clearingReport, 0)
	for _, marketID := range data.MarketIDs() {
		for _, timeSlot := range data.TimeSlots(marketID) {
			state, ok := alg.State(marketID, timeSlot)
			if !ok {
				continue
			}
			reports = append(reports, clearingReport{
				MarketID: marketID,
				TimeSlot: timeSlot,
				Clearing: state.Clearing,
				Demand:   state.DemandCurve(),
				Supply:   state.SupplyCurve(),
			})
		}
	}

	raw, err := serializer.Marshal(reports)
	if err != nil {
		return errors.Wrap(err, "encode clearing report")
	}
	_, err = fmt.Println(string(raw))
	return err
}
