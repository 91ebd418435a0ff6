package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"stocktracker/internal/logging"
	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

var (
	dbPath     = flag.String("db", "", "SQLite ledger path; empty keeps the ledger in memory")
	delayScale = flag.Float64("delay", 0, "Scale of the simulated market-data latency")
	seed       = flag.Uint64("seed", 0, "Seed for reproducible market data; 0 picks one")
	rawOutput  = flag.Bool("raw", false, "Print markdown without terminal rendering")
	verbose    = flag.Bool("v", false, "Log debug output to stderr")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&quoteCmd{}, "market data")
	commander.Register(&chartCmd{}, "market data")
	commander.Register(&searchCmd{}, "market data")

	commander.Register(&replayCmd{}, "portfolio")
	commander.Register(&summaryCmd{}, "portfolio")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openCore opens a core configured from the global flags.
func openCore() (*stocktracker.Core, error) {
	return stocktracker.OpenWithOptions(stocktracker.Options{
		DBPath: *dbPath,
		Logger: cliLogger(),
		Source: marketdata.NewMockSource(marketdata.MockOptions{
			Seed:       *seed,
			DelayScale: *delayScale,
		}),
	})
}

func cliLogger() *slog.Logger {
	if *verbose {
		return logging.NewConsoleLogger(os.Stderr, slog.LevelDebug)
	}
	return logging.NewConsoleLogger(io.Discard, slog.LevelError)
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(status subcommands.ExitStatus, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return status
}
