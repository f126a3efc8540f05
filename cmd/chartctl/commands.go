package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/phuslu/log"

	"portfolioDashboard/internal/chart"
	"portfolioDashboard/internal/metrics"
	"portfolioDashboard/internal/payload"
	"portfolioDashboard/internal/render"
)

// output writes the dataset as indented JSON to out, or as a PNG to pngPath when set.
type output struct {
	pngPath string
	out     io.Writer
}

func (o *output) setFlags(f *flag.FlagSet) {
	f.StringVar(&o.pngPath, "png", "", "Write the rendered chart to this PNG file instead of printing JSON.")
}

func (o *output) write(ds chart.RenderDataset) error {
	if o.pngPath != "" {
		img, err := render.PNG(ds, render.DefaultOptions())
		if err != nil {
			return err
		}
		return os.WriteFile(o.pngPath, img, 0o644)
	}
	w := o.out
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

func decodeFile[T any](path string, decode func(io.Reader) (T, payload.Report, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, rep, err := decode(f)
	if err != nil {
		return zero, err
	}
	if rep.Dropped > 0 {
		log.Warn().Str("file", path).Int("rows", rep.Rows).Int("dropped", rep.Dropped).Msg("chartctl: dropped rows")
	}
	return v, nil
}

type priceCmd struct {
	output
	candles    string
	indicators string
	forecast   string
	title      string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "builds the price view from candle, indicator and forecast payloads" }
func (*priceCmd) Usage() string {
	return `chartctl price -candles <file> [-indicators <file>] [-forecast <file>] [-title <title>] [-png <out.png>]

  Builds the close price chart with moving averages and an optional forecast band.
  A forecast that does not start after the last candle is dropped with a warning.

Usage Examples:
$ chartctl price -candles prices.json -indicators ind.json -forecast fc.json -png aapl.png

`
}

func (p *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.candles, "candles", "", "Prices payload ({\"candles\":[...]}).")
	f.StringVar(&p.indicators, "indicators", "", "Indicators payload ({\"indicators\":{...}}).")
	f.StringVar(&p.forecast, "forecast", "", "Forecast result payload ({\"points\":[...]}).")
	f.StringVar(&p.title, "title", "", "Chart title.")
	p.output.setFlags(f)
}

func (p *priceCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.candles == "" {
		fmt.Fprintln(os.Stderr, "Error: -candles is required")
		return subcommands.ExitUsageError
	}
	candles, err := decodeFile(p.candles, payload.DecodeCandles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read candles: %v\n", err)
		return subcommands.ExitFailure
	}
	in := chart.PriceInput{Title: p.title, Candles: candles}
	if p.indicators != "" {
		if in.Indicators, err = decodeFile(p.indicators, payload.DecodeIndicators); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not read indicators: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	ds, err := chart.BuildPriceView(in)
	if p.forecast != "" {
		fc, ferr := decodeFile(p.forecast, payload.DecodeForecast)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error: could not read forecast: %v\n", ferr)
			return subcommands.ExitFailure
		}
		in.Forecast = &fc.Result
		ds, err = chart.BuildPriceView(in)
		var cerr *chart.CompositionError
		if errors.As(err, &cerr) {
			fmt.Fprintf(os.Stderr, "Warning: forecast dropped: %v\n", err)
			in.Forecast = nil
			ds, err = chart.BuildPriceView(in)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return p.finish(ds)
}

type performanceCmd struct {
	output
	in    string
	title string
}

func (*performanceCmd) Name() string { return "performance" }
func (*performanceCmd) Synopsis() string {
	return "builds the normalized portfolio vs benchmark view from a performance payload"
}
func (*performanceCmd) Usage() string {
	return `chartctl performance -in <file> [-title <title>] [-png <out.png>]

  Normalizes the portfolio and benchmark curves to percent change since their first value.
  Metrics missing from the payload are computed from the portfolio curve.

`
}

func (p *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.in, "in", "", "Performance payload ({\"series\":[...], \"benchmark\":{...}}).")
	f.StringVar(&p.title, "title", "Portfolio", "Chart title.")
	p.output.setFlags(f)
}

func (p *performanceCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		return subcommands.ExitUsageError
	}
	perf, err := decodeFile(p.in, payload.DecodePerformance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read performance: %v\n", err)
		return subcommands.ExitFailure
	}
	stats := perf.Metrics
	if len(stats) == 0 {
		if m, err := metrics.Compute(perf.Portfolio); err == nil {
			stats = m.Map()
		}
	}
	return p.finish(chart.BuildPerformanceView(chart.PerformanceInput{
		Title:     p.title,
		Portfolio: perf.Portfolio,
		Benchmark: perf.Benchmark,
		Metrics:   stats,
	}))
}

type sentimentCmd struct {
	output
	in    string
	title string
}

func (*sentimentCmd) Name() string     { return "sentiment" }
func (*sentimentCmd) Synopsis() string { return "builds the daily sentiment view from a sentiment payload" }
func (*sentimentCmd) Usage() string {
	return `chartctl sentiment -in <file> [-title <title>] [-png <out.png>]

  Stacks positive and negative article counts per day with the net score on a fixed [-1, 1] axis.

`
}

func (p *sentimentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.in, "in", "", "Sentiment payload ({\"daily\":[...]}).")
	f.StringVar(&p.title, "title", "Sentiment", "Chart title.")
	p.output.setFlags(f)
}

func (p *sentimentCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		return subcommands.ExitUsageError
	}
	days, err := decodeFile(p.in, payload.DecodeSentiment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read sentiment: %v\n", err)
		return subcommands.ExitFailure
	}
	return p.finish(chart.BuildSentimentView(p.title, days))
}

func (o *output) finish(ds chart.RenderDataset) subcommands.ExitStatus {
	if err := o.write(ds); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not write output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
