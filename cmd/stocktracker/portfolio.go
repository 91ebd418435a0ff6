package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

type replayCmd struct {
	prices  string
	refresh bool
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "record a JSON ledger and display the resulting holdings" }
func (*replayCmd) Usage() string {
	return `stocktracker replay [-prices AAPL=180,MSFT=400] [-refresh] <ledger.json|->

  Records every transaction of a JSON array (symbol, type, shares, price, fee,
  date, notes) into the ledger selected by -db, then displays holdings and
  totals. Prices are applied with -prices or fetched with -refresh.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.prices, "prices", "", "Comma separated SYMBOL=PRICE pairs")
	f.BoolVar(&c.refresh, "refresh", false, "Fetch current prices from the market source")
}

func (c *replayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail(subcommands.ExitUsageError, "exactly one ledger file is required")
	}
	prices, err := parsePrices(c.prices)
	if err != nil {
		return fail(subcommands.ExitUsageError, "%v", err)
	}
	inputs, err := readLedgerFile(f.Arg(0))
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}

	core, err := openCore()
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	defer core.Close()

	if err := replayLedger(ctx, core, inputs, prices, c.refresh); err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	printMarkdown(holdingsMarkdown(core.Portfolio().Holdings(), core.Portfolio().Totals()))
	return subcommands.ExitSuccess
}

// replayLedger records inputs in order, then applies prices.
func replayLedger(ctx context.Context, core *stocktracker.Core, inputs []stocktracker.TransactionInput, prices map[string]stocktracker.Amount, refresh bool) error {
	for i, in := range inputs {
		if _, err := core.Portfolio().AddTransaction(in); err != nil {
			return fmt.Errorf("transaction %d (%s): %w", i+1, in.Symbol, err)
		}
	}
	if refresh {
		result, err := core.RefreshPrices(ctx)
		if err != nil {
			return fmt.Errorf("refresh prices: %w", err)
		}
		if len(result.Failed) > 0 {
			fmt.Fprintf(os.Stderr, "Warning: no price for %s\n", strings.Join(result.Failed, ", "))
		}
	}
	for symbol, price := range prices {
		if _, err := core.SetPrice(symbol, price); err != nil {
			return fmt.Errorf("price %s: %w", symbol, err)
		}
	}
	return nil
}

// parsePrices parses "AAPL=180,MSFT=400.5" into normalized symbols.
func parsePrices(s string) (map[string]stocktracker.Amount, error) {
	prices := map[string]stocktracker.Amount{}
	if strings.TrimSpace(s) == "" {
		return prices, nil
	}
	for _, pair := range strings.Split(s, ",") {
		symbol, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		symbol = marketdata.NormalizeSymbol(symbol)
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid price %q, want SYMBOL=PRICE", pair)
		}
		price, err := stocktracker.ParseAmount(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", symbol, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("price for %s must be >= 0", symbol)
		}
		prices[symbol] = price
	}
	return prices, nil
}

func readLedgerFile(name string) ([]stocktracker.TransactionInput, error) {
	if name == "-" {
		return decodeLedger(os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeLedger(f)
}

func decodeLedger(r io.Reader) ([]stocktracker.TransactionInput, error) {
	var inputs []stocktracker.TransactionInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return inputs, nil
}

type summaryCmd struct {
	limit   int
	refresh bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio summary of a ledger" }
func (*summaryCmd) Usage() string {
	return `stocktracker -db <ledger.db> summary [-limit <n>] [-refresh]

  Displays totals, day change, allocation, top movers and recent transactions.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 5, "Entries in the movers and recent transactions lists")
	f.BoolVar(&c.refresh, "refresh", true, "Fetch current prices before summarizing")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if *dbPath == "" {
		return fail(subcommands.ExitUsageError, "-db is required")
	}
	core, err := openCore()
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	defer core.Close()

	if c.refresh {
		if _, err := core.RefreshPrices(ctx); err != nil {
			return fail(subcommands.ExitFailure, "refresh prices: %v", err)
		}
	}
	summary, err := core.Portfolio().Summary(c.limit)
	if err != nil {
		return fail(subcommands.ExitFailure, "%v", err)
	}
	printMarkdown(summaryMarkdown(summary))
	return subcommands.ExitSuccess
}
