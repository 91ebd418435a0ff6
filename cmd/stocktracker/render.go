package main

import (
	"fmt"
	"strings"

	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

func money(a stocktracker.Amount) string {
	return a.Display(stocktracker.DefaultCurrency)
}

func percent(a stocktracker.Amount) string {
	return a.StringFixed(2) + "%"
}

func signedFloat(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func quotesMarkdown(quotes []marketdata.Quote) string {
	var sb strings.Builder
	sb.WriteString("# Quotes\n\n")
	sb.WriteString("| Symbol | Name | Price | Change | Change % | Volume |\n")
	sb.WriteString("|:---|:---|---:|---:|---:|---:|\n")
	for _, q := range quotes {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s%% | %d |\n",
			q.Symbol, q.Name,
			money(stocktracker.NewAmount(q.Price)),
			signedFloat(q.Change), signedFloat(q.ChangePercent), q.Volume)
	}
	return sb.String()
}

func chartMarkdown(symbol string, rng marketdata.TimeRange, points []marketdata.ChartPoint, sma []marketdata.AveragePoint) string {
	averages := make(map[int64]float64, len(sma))
	for _, a := range sma {
		averages[a.Timestamp.Unix()] = a.Value
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s)\n\n", symbol, rng)
	if len(points) == 0 {
		sb.WriteString("No price history.\n")
		return sb.String()
	}
	sb.WriteString("| Date | Open | High | Low | Close | Volume |")
	if len(sma) > 0 {
		sb.WriteString(" SMA |")
	}
	sb.WriteString("\n|:---|---:|---:|---:|---:|---:|")
	if len(sma) > 0 {
		sb.WriteString("---:|")
	}
	sb.WriteString("\n")
	for _, p := range points {
		fmt.Fprintf(&sb, "| %s | %.2f | %.2f | %.2f | %.2f | %d |",
			p.Timestamp.Format("2006-01-02"), p.Open, p.High, p.Low, p.Close, p.Volume)
		if len(sma) > 0 {
			if v, ok := averages[p.Timestamp.Unix()]; ok {
				fmt.Fprintf(&sb, " %.2f |", v)
			} else {
				sb.WriteString(" |")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func searchMarkdown(query string, stocks []marketdata.Stock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Search: %s\n\n", query)
	if len(stocks) == 0 {
		sb.WriteString("No matches.\n")
		return sb.String()
	}
	sb.WriteString("| Symbol | Name | Exchange | Sector |\n")
	sb.WriteString("|:---|:---|:---|:---|\n")
	for _, s := range stocks {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", s.Symbol, s.Name, s.Exchange, s.Sector)
	}
	return sb.String()
}

func holdingsTable(sb *strings.Builder, holdings []stocktracker.Holding) {
	if len(holdings) == 0 {
		sb.WriteString("No holdings.\n")
		return
	}
	sb.WriteString("| Symbol | Shares | Avg Price | Cost | Price | Value | Gain/Loss | Gain/Loss % |\n")
	sb.WriteString("|:---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, h := range holdings {
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			h.Symbol, h.Shares.String(),
			money(h.AveragePrice), money(h.TotalCost),
			money(h.CurrentPrice), money(h.MarketValue),
			money(h.GainLoss), percent(h.GainLossPercent))
	}
}

func totalsList(sb *strings.Builder, t stocktracker.Totals) {
	fmt.Fprintf(sb, "- Total value: %s\n", money(t.TotalValue))
	fmt.Fprintf(sb, "- Total cost: %s\n", money(t.TotalCost))
	fmt.Fprintf(sb, "- Gain/loss: %s (%s)\n", money(t.TotalGainLoss), percent(t.TotalGainLossPercent))
}

func holdingsMarkdown(holdings []stocktracker.Holding, totals stocktracker.Totals) string {
	var sb strings.Builder
	sb.WriteString("# Holdings\n\n")
	holdingsTable(&sb, holdings)
	sb.WriteString("\n## Totals\n\n")
	totalsList(&sb, totals)
	return sb.String()
}

func summaryMarkdown(s stocktracker.Summary) string {
	var sb strings.Builder
	sb.WriteString("# Portfolio Summary\n\n")
	totalsList(&sb, s.Metrics.Totals)
	fmt.Fprintf(&sb, "- Day change: %s (%s)\n", money(s.Metrics.DayChange), percent(s.Metrics.DayChangePercent))

	sb.WriteString("\n## Holdings\n\n")
	holdingsTable(&sb, s.Holdings)

	if len(s.Holdings) > 0 {
		sb.WriteString("\n## Allocation\n\n")
		for _, h := range s.Holdings {
			fmt.Fprintf(&sb, "- %s: %s\n", h.Symbol, percent(s.Metrics.Diversification[h.Symbol]))
		}
	}

	moversList(&sb, "Top Gainers", s.TopGainers)
	moversList(&sb, "Top Losers", s.TopLosers)

	if len(s.RecentTransactions) > 0 {
		sb.WriteString("\n## Recent Transactions\n\n")
		sb.WriteString("| Date | Type | Symbol | Shares | Price | Fee |\n")
		sb.WriteString("|:---|:---|:---|---:|---:|---:|\n")
		for _, tx := range s.RecentTransactions {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				tx.Date.Format("2006-01-02"), tx.Kind, tx.Symbol,
				tx.Shares.String(), money(tx.Price), money(tx.Fee))
		}
	}
	return sb.String()
}

func moversList(sb *strings.Builder, title string, holdings []stocktracker.Holding) {
	if len(holdings) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, h := range holdings {
		fmt.Fprintf(sb, "- %s: %s (%s)\n", h.Symbol, money(h.GainLoss), percent(h.GainLossPercent))
	}
}
