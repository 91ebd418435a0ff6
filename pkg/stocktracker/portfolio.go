package stocktracker

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"stocktracker/pkg/marketdata"
)

// defaultSummaryLimit bounds top gainers, top losers and recent transactions.
const defaultSummaryLimit = 5

// Portfolio owns the ledger and the holdings and totals derived from it.
// Every ledger mutation recomputes holdings from the full log and re-applies
// the last known price of each symbol.
type Portfolio struct {
	mu       sync.RWMutex
	store    TransactionStore
	book     PriceBook
	logger   *slog.Logger
	now      func() time.Time
	holdings Holdings
	totals   Totals
	prices   map[string]PricePoint
}

// NewPortfolio loads the ledger from store and derives holdings. When store
// also implements PriceBook, known prices are loaded and persisted there.
func NewPortfolio(store TransactionStore, logger *slog.Logger) (*Portfolio, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Portfolio{
		store:    store,
		logger:   logger,
		now:      time.Now,
		holdings: Holdings{},
		prices:   map[string]PricePoint{},
	}
	if book, ok := store.(PriceBook); ok {
		p.book = book
		prices, err := book.Prices()
		if err != nil {
			return nil, err
		}
		p.prices = prices
	}
	if err := p.recompute(); err != nil {
		return nil, err
	}
	return p, nil
}

// AddTransaction appends a transaction and recomputes holdings.
func (p *Portfolio) AddTransaction(in TransactionInput) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := p.store.Append(in)
	if err != nil {
		return Transaction{}, err
	}
	if err := p.recompute(); err != nil {
		return Transaction{}, err
	}
	p.logger.Info("transaction added", "id", tx.ID, "symbol", tx.Symbol, "type", tx.Kind, "shares", tx.Shares.String())
	return tx, nil
}

// RemoveTransaction removes a transaction and recomputes holdings. Unknown
// ids are ignored.
func (p *Portfolio) RemoveTransaction(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Remove(id); err != nil {
		return err
	}
	return p.recompute()
}

// Transactions returns the ledger in insertion order.
func (p *Portfolio) Transactions() ([]Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store.List()
}

// Holdings returns the current holdings ordered by symbol.
func (p *Portfolio) Holdings() []Holding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.holdings.Sorted()
}

// Holding returns the holding for symbol.
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.holdings[marketdata.NormalizeSymbol(symbol)]
	return h, ok
}

// Symbols returns the held symbols in order.
func (p *Portfolio) Symbols() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.holdings))
	for symbol := range p.holdings {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Totals returns the portfolio-wide figures.
func (p *Portfolio) Totals() Totals {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totals
}

// UpdatePrice records the latest price of a symbol and revalues its holding.
// It reports whether a holding was affected. A price for a symbol with no
// holding changes nothing now, but is kept and values the position opened by
// a later BUY until a fresher price arrives.
func (p *Portfolio) UpdatePrice(pp PricePoint) bool {
	pp.Symbol = marketdata.NormalizeSymbol(pp.Symbol)
	if pp.UpdatedAt.IsZero() {
		pp.UpdatedAt = p.now().UTC()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[pp.Symbol] = pp
	if p.book != nil {
		if err := p.book.SavePrice(pp); err != nil {
			p.logger.Warn("persist price failed", "symbol", pp.Symbol, "err", err)
		}
	}
	if _, ok := p.holdings[pp.Symbol]; !ok {
		return false
	}
	p.holdings = ApplyPrice(p.holdings, pp.Symbol, pp.Price, pp.UpdatedAt)
	p.totals = RecomputeTotals(p.holdings)
	return true
}

// Price returns the last known price of symbol.
func (p *Portfolio) Price(symbol string) (PricePoint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pp, ok := p.prices[marketdata.NormalizeSymbol(symbol)]
	return pp, ok
}

// Clear drops the ledger, the known prices and every holding.
func (p *Portfolio) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Clear(); err != nil {
		return err
	}
	if p.book != nil {
		if err := p.book.ClearPrices(); err != nil {
			return err
		}
	}
	p.prices = map[string]PricePoint{}
	p.holdings = Holdings{}
	p.totals = Totals{}
	p.logger.Info("portfolio cleared")
	return nil
}

// Summary builds the dashboard view. limit bounds the gainers, losers and
// recent transactions lists; values <= 0 use the default.
func (p *Portfolio) Summary(limit int) (Summary, error) {
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	txs, err := p.store.List()
	if err != nil {
		return Summary{}, err
	}

	holdings := p.holdings.Sorted()
	metrics := Metrics{
		Totals:          p.totals,
		Diversification: make(map[string]Amount, len(holdings)),
	}
	for _, h := range holdings {
		metrics.Diversification[h.Symbol] = h.MarketValue.Percent(p.totals.TotalValue)
		if pp, ok := p.prices[h.Symbol]; ok {
			metrics.DayChange = metrics.DayChange.Add(h.Shares.Mul(pp.Change))
		}
	}
	metrics.DayChangePercent = metrics.DayChange.Percent(p.totals.TotalValue.Sub(metrics.DayChange))

	return Summary{
		Holdings:           holdings,
		Metrics:            metrics,
		TopGainers:         topMovers(holdings, limit, true),
		TopLosers:          topMovers(holdings, limit, false),
		RecentTransactions: recentTransactions(txs, limit),
	}, nil
}

func (p *Portfolio) recompute() error {
	txs, err := p.store.List()
	if err != nil {
		return err
	}
	holdings := recomputeHoldings(txs, func(tx Transaction, held Amount) {
		p.logger.Warn("sell exceeds shares held, holding removed",
			"id", tx.ID, "symbol", tx.Symbol, "sold", tx.Shares.String(), "held", held.String())
	})
	for symbol := range holdings {
		if pp, ok := p.prices[symbol]; ok {
			holdings = ApplyPrice(holdings, symbol, pp.Price, pp.UpdatedAt)
		}
	}
	p.holdings = holdings
	p.totals = RecomputeTotals(holdings)
	return nil
}

func topMovers(holdings []Holding, limit int, gainers bool) []Holding {
	out := []Holding{}
	for _, h := range holdings {
		if (gainers && h.GainLoss.IsPositive()) || (!gainers && h.GainLoss.IsNegative()) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if gainers {
			return out[i].GainLossPercent.GreaterThan(out[j].GainLossPercent.Decimal)
		}
		return out[i].GainLossPercent.LessThan(out[j].GainLossPercent.Decimal)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// recentTransactions returns the last limit transactions, newest first.
func recentTransactions(txs []Transaction, limit int) []Transaction {
	out := make([]Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out
}
