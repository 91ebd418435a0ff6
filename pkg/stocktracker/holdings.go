package stocktracker

import (
	"sort"
	"time"
)

// RecomputeHoldings replays txs in the given order and returns the holdings
// with a strictly positive share count. Prices start at zero.
func RecomputeHoldings(txs []Transaction) Holdings {
	return recomputeHoldings(txs, nil)
}

// oversellFunc is called when a SELL exceeds the shares held before it.
type oversellFunc func(tx Transaction, held Amount)

func recomputeHoldings(txs []Transaction, onOversell oversellFunc) Holdings {
	work := map[string]*Holding{}
	for _, tx := range txs {
		h, ok := work[tx.Symbol]
		if !ok {
			h = &Holding{Symbol: tx.Symbol}
			work[tx.Symbol] = h
		}
		switch tx.Kind {
		case KindBuy:
			h.TotalCost = h.TotalCost.Add(tx.Shares.Mul(tx.Price))
			h.Shares = h.Shares.Add(tx.Shares)
			h.AveragePrice = h.TotalCost.Div(h.Shares)
			h.LastUpdated = tx.Date
			revalue(h)
		case KindSell:
			if onOversell != nil && tx.Shares.GreaterThan(h.Shares.Decimal) {
				onOversell(tx, h.Shares)
			}
			h.TotalCost = h.TotalCost.Sub(tx.Shares.Mul(h.AveragePrice))
			h.Shares = h.Shares.Sub(tx.Shares)
			if !h.Shares.IsPositive() {
				delete(work, tx.Symbol)
				continue
			}
			h.LastUpdated = tx.Date
			revalue(h)
		case KindDividend:
			// Cash flow only.
		}
	}

	result := make(Holdings, len(work))
	for symbol, h := range work {
		if h.Shares.IsPositive() {
			result[symbol] = *h
		}
	}
	return result
}

// ApplyPrice returns a copy of h with price applied to symbol. An unknown
// symbol leaves the copy unchanged.
func ApplyPrice(h Holdings, symbol string, price Amount, at time.Time) Holdings {
	out := make(Holdings, len(h))
	for k, v := range h {
		out[k] = v
	}
	holding, ok := out[symbol]
	if !ok {
		return out
	}
	holding.CurrentPrice = price
	holding.LastUpdated = at
	revalue(&holding)
	out[symbol] = holding
	return out
}

// RecomputeTotals sums the current holdings.
func RecomputeTotals(h Holdings) Totals {
	var t Totals
	for _, holding := range h {
		t.TotalValue = t.TotalValue.Add(holding.MarketValue)
		t.TotalCost = t.TotalCost.Add(holding.TotalCost)
	}
	t.TotalGainLoss = t.TotalValue.Sub(t.TotalCost)
	t.TotalGainLossPercent = t.TotalGainLoss.Percent(t.TotalCost)
	return t
}

// Sorted returns the holdings ordered by symbol.
func (h Holdings) Sorted() []Holding {
	out := make([]Holding, 0, len(h))
	for _, holding := range h {
		out = append(out, holding)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func revalue(h *Holding) {
	h.MarketValue = h.Shares.Mul(h.CurrentPrice)
	h.GainLoss = h.MarketValue.Sub(h.TotalCost)
	h.GainLossPercent = h.GainLoss.Percent(h.TotalCost)
}
