package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/google/subcommands"

	"stocktracker/pkg/marketdata"
)

type quoteCmd struct {
	timeout time.Duration
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "display quotes for one or more symbols" }
func (*quoteCmd) Usage() string {
	return `stocktracker quote <symbol>...

  Displays the latest quote for each symbol.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 10*time.Second, "Timeout for each quote")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return fail(subcommands.ExitUsageError, "at least one symbol is required")
	}
	core, err := openCore()
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	defer core.Close()

	quotes := make([]marketdata.Quote, 0, f.NArg())
	for _, symbol := range f.Args() {
		qctx, cancel := context.WithTimeout(ctx, c.timeout)
		q, err := core.Quote(qctx, symbol)
		cancel()
		if err != nil {
			return fail(subcommands.ExitFailure, "quote %s: %v", symbol, err)
		}
		quotes = append(quotes, q)
	}
	printMarkdown(quotesMarkdown(quotes))
	return subcommands.ExitSuccess
}

type chartCmd struct {
	rng string
	sma int
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "display price history for a symbol" }
func (*chartCmd) Usage() string {
	return `stocktracker chart [-r <range>] [-sma <n>] <symbol>

  Displays daily bars over the range (1D, 1W, 1M, 3M, 1Y, 5Y), optionally with
  a simple moving average of the closes.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rng, "r", "1M", "Time range")
	f.IntVar(&c.sma, "sma", 0, "Simple moving average window; 0 disables it")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail(subcommands.ExitUsageError, "exactly one symbol is required")
	}
	if c.sma < 0 {
		return fail(subcommands.ExitUsageError, "-sma must be >= 0")
	}
	core, err := openCore()
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	defer core.Close()

	symbol := marketdata.NormalizeSymbol(f.Arg(0))
	points, err := core.Chart(ctx, symbol, c.rng)
	if err != nil {
		return fail(subcommands.ExitFailure, "chart %s: %v", symbol, err)
	}
	var sma []marketdata.AveragePoint
	if c.sma > 0 {
		if sma, err = marketdata.SMA(points, c.sma); err != nil {
			return fail(subcommands.ExitUsageError, "%v", err)
		}
	}
	rng, _ := marketdata.ParseTimeRange(c.rng)
	printMarkdown(chartMarkdown(symbol, rng, points, sma))
	return subcommands.ExitSuccess
}

type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search stocks by symbol or name" }
func (*searchCmd) Usage() string {
	return `stocktracker search <query>

  Lists stocks whose symbol or company name contains the query.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fail(subcommands.ExitUsageError, "a query is required")
	}
	core, err := openCore()
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	defer core.Close()

	results, err := core.Search(ctx, query)
	if err != nil {
		return fail(subcommands.ExitFailure, "search: %v", err)
	}
	printMarkdown(searchMarkdown(query, results))
	return subcommands.ExitSuccess
}
