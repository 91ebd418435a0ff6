package mobile

import (
	"context"
	"encoding/json"
	"time"

	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

const requestTimeout = 15 * time.Second

// Core wraps the stock tracker core for gomobile bindings. Values cross the
// binding as JSON strings.
type Core struct {
	core *stocktracker.Core
}

// SearchListener receives debounced search results as JSON.
type SearchListener interface {
	OnSearchResults(resultJSON string)
}

// Open initializes the core with a database path. An empty path keeps the
// ledger in memory.
func Open(dbPath string) (*Core, error) {
	core, err := stocktracker.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// GetHoldingsJSON returns holdings ordered by symbol.
func (c *Core) GetHoldingsJSON() (string, error) {
	return marshalJSON(c.core.Portfolio().Holdings())
}

// GetTotalsJSON returns the portfolio totals.
func (c *Core) GetTotalsJSON() (string, error) {
	return marshalJSON(c.core.Portfolio().Totals())
}

// GetSummaryJSON returns the dashboard summary.
func (c *Core) GetSummaryJSON(limit int) (string, error) {
	summary, err := c.core.Portfolio().Summary(limit)
	if err != nil {
		return "", err
	}
	return marshalJSON(summary)
}

// GetTransactionsJSON returns the ledger, optionally limited to one symbol.
func (c *Core) GetTransactionsJSON(symbol string) (string, error) {
	txs, err := c.core.Portfolio().Transactions()
	if err != nil {
		return "", err
	}
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol != "" {
		filtered := make([]stocktracker.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.Symbol == symbol {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	return marshalJSON(txs)
}

// AddTransactionJSON records a transaction and returns it as JSON.
func (c *Core) AddTransactionJSON(payloadJSON string) (string, error) {
	var in stocktracker.TransactionInput
	if err := json.Unmarshal([]byte(payloadJSON), &in); err != nil {
		return "", stocktracker.WrapError(stocktracker.ErrCodeInvalidInput, "invalid transaction payload", err)
	}
	tx, err := c.core.Portfolio().AddTransaction(in)
	if err != nil {
		return "", err
	}
	return marshalJSON(tx)
}

// DeleteTransaction removes a transaction by id.
func (c *Core) DeleteTransaction(id string) error {
	return c.core.Portfolio().RemoveTransaction(id)
}

// ClearPortfolio removes every transaction.
func (c *Core) ClearPortfolio() error {
	return c.core.Portfolio().Clear()
}

// ManualUpdatePrice applies a user-entered price. It reports whether a
// holding was revalued.
func (c *Core) ManualUpdatePrice(symbol string, price float64) (bool, error) {
	return c.core.SetPrice(symbol, stocktracker.NewAmount(price))
}

// RefreshPricesJSON fetches quotes for held and watched symbols.
func (c *Core) RefreshPricesJSON() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	result, err := c.core.RefreshPrices(ctx)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// GetQuoteJSON returns the latest quote for symbol.
func (c *Core) GetQuoteJSON(symbol string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	q, err := c.core.Quote(ctx, symbol)
	if err != nil {
		return "", err
	}
	return marshalJSON(q)
}

// GetChartJSON returns price history for symbol over rng.
func (c *Core) GetChartJSON(symbol, rng string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	points, err := c.core.Chart(ctx, symbol, rng)
	if err != nil {
		return "", err
	}
	return marshalJSON(points)
}

// GetWatchlistJSON returns the watchlist in display order.
func (c *Core) GetWatchlistJSON() (string, error) {
	return marshalJSON(c.core.Watchlist().Items())
}

// AddToWatchlistJSON adds a symbol and returns the item. Existing symbols
// are returned unchanged.
func (c *Core) AddToWatchlistJSON(payloadJSON string) (string, error) {
	var in stocktracker.WatchlistInput
	if err := json.Unmarshal([]byte(payloadJSON), &in); err != nil {
		return "", stocktracker.WrapError(stocktracker.ErrCodeInvalidInput, "invalid watchlist payload", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	item, _, err := c.core.AddToWatchlist(ctx, in)
	if err != nil {
		return "", err
	}
	return marshalJSON(item)
}

// RemoveFromWatchlist reports whether symbol was watched.
func (c *Core) RemoveFromWatchlist(symbol string) bool {
	return c.core.Watchlist().Remove(symbol)
}

// GetNotificationsJSON returns pending notifications, newest first.
func (c *Core) GetNotificationsJSON() (string, error) {
	return marshalJSON(c.core.UI().Notifications())
}

// DismissNotification reports whether the notification existed.
func (c *Core) DismissNotification(id string) bool {
	return c.core.UI().RemoveNotification(id)
}

// Search is a debounced symbol search bound to a listener.
type Search struct {
	search *stocktracker.DebouncedSearch
}

// NewSearch returns a search that delivers the latest results to listener.
func (c *Core) NewSearch(listener SearchListener) *Search {
	return &Search{search: c.core.NewSearch(func(r stocktracker.SearchResult) {
		payload := searchPayload{Seq: int64(r.Seq), Query: r.Query, Results: r.Results}
		if r.Err != nil {
			payload.Error = r.Err.Error()
		}
		data, err := marshalJSON(payload)
		if err != nil {
			return
		}
		listener.OnSearchResults(data)
	})}
}

// Input schedules a search for query and returns its sequence number.
func (s *Search) Input(query string) int64 {
	return int64(s.search.Input(query))
}

// Close stops pending searches.
func (s *Search) Close() {
	s.search.Close()
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type searchPayload struct {
	Seq     int64              `json:"seq"`
	Query   string             `json:"query"`
	Results []marketdata.Stock `json:"results"`
	Error   string             `json:"error,omitempty"`
}
