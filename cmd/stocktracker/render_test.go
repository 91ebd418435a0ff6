package main

import (
	"strings"
	"testing"
	"time"

	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

func TestQuotesMarkdown(t *testing.T) {
	md := quotesMarkdown([]marketdata.Quote{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: 1500, Change: -2.5, ChangePercent: -0.17, Volume: 1200},
	})
	for _, want := range []string{"| AAPL | Apple Inc. | $1,500.00 | -2.50 | -0.17% | 1200 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in:\n%s", want, md)
		}
	}
}

func TestChartMarkdown(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []marketdata.ChartPoint{
		{Timestamp: start, Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
		{Timestamp: start.AddDate(0, 0, 1), Open: 2, High: 4, Low: 2, Close: 4, Volume: 20},
	}
	sma, err := marketdata.SMA(points, 2)
	if err != nil {
		t.Fatalf("SMA: %v", err)
	}

	md := chartMarkdown("AAPL", marketdata.TimeRange("1W"), points, sma)
	if !strings.Contains(md, "# AAPL (1W)") || !strings.Contains(md, " SMA |") {
		t.Fatalf("missing header:\n%s", md)
	}
	if !strings.Contains(md, "| 2024-05-01 | 1.00 | 2.00 | 1.00 | 2.00 | 10 | |") {
		t.Errorf("expected blank SMA cell for the first bar:\n%s", md)
	}
	if !strings.Contains(md, "| 2024-05-02 | 2.00 | 4.00 | 2.00 | 4.00 | 20 | 3.00 |") {
		t.Errorf("expected SMA value on the second bar:\n%s", md)
	}

	empty := chartMarkdown("AAPL", marketdata.TimeRange("1D"), nil, nil)
	if !strings.Contains(empty, "No price history.") {
		t.Errorf("unexpected empty chart:\n%s", empty)
	}
}

func TestSearchMarkdown(t *testing.T) {
	md := searchMarkdown("micro", []marketdata.Stock{{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", Sector: "Technology"}})
	if !strings.Contains(md, "| MSFT | Microsoft Corporation | NASDAQ | Technology |") {
		t.Errorf("unexpected search output:\n%s", md)
	}
	if !strings.Contains(searchMarkdown("zzz", nil), "No matches.") {
		t.Errorf("expected no matches message")
	}
}

func TestSummaryMarkdown(t *testing.T) {
	holding := stocktracker.Holding{
		Symbol:          "AAPL",
		Shares:          stocktracker.NewAmount(10),
		AveragePrice:    stocktracker.NewAmount(100),
		TotalCost:       stocktracker.NewAmount(1000),
		CurrentPrice:    stocktracker.NewAmount(150),
		MarketValue:     stocktracker.NewAmount(1500),
		GainLoss:        stocktracker.NewAmount(500),
		GainLossPercent: stocktracker.NewAmount(50),
	}
	summary := stocktracker.Summary{
		Holdings: []stocktracker.Holding{holding},
		Metrics: stocktracker.Metrics{
			Totals: stocktracker.Totals{
				TotalValue:           stocktracker.NewAmount(1500),
				TotalCost:            stocktracker.NewAmount(1000),
				TotalGainLoss:        stocktracker.NewAmount(500),
				TotalGainLossPercent: stocktracker.NewAmount(50),
			},
			DayChange:        stocktracker.NewAmount(-20),
			DayChangePercent: stocktracker.NewAmount(-1.3158),
			Diversification:  map[string]stocktracker.Amount{"AAPL": stocktracker.NewAmount(100)},
		},
		TopGainers: []stocktracker.Holding{holding},
		RecentTransactions: []stocktracker.Transaction{{
			Symbol: "AAPL",
			Kind:   stocktracker.KindBuy,
			Shares: stocktracker.NewAmount(10),
			Price:  stocktracker.NewAmount(100),
			Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}},
	}

	md := summaryMarkdown(summary)
	for _, want := range []string{
		"- Total value: $1,500.00",
		"- Gain/loss: $500.00 (50.00%)",
		"- Day change: -$20.00 (-1.32%)",
		"- AAPL: 100.00%",
		"## Top Gainers",
		"| 2024-01-02 | BUY | AAPL | 10 | $100.00 | $0.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Top Losers") {
		t.Errorf("expected no losers section:\n%s", md)
	}
}
