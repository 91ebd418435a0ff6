package stocktracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stocktracker/pkg/marketdata"
)

// Options controls Core initialization.
type Options struct {
	// DBPath selects the SQLite store. Empty keeps the ledger in memory.
	DBPath string
	// Store overrides DBPath with a custom ledger.
	Store  TransactionStore
	Logger *slog.Logger

	// Source provides market data. Defaults to a MockSource with real delays.
	Source  marketdata.Source
	Analyst marketdata.Analyst
	News    marketdata.NewsSource

	DisableCache       bool
	QuoteCacheTTL      time.Duration
	SourceFailLimit    int
	SourceFailWindow   time.Duration
	SourceCooldown     time.Duration
	RefreshConcurrency int
	SearchDelay        time.Duration
}

// Core owns the tracker's state slices and its market-data collaborators.
type Core struct {
	portfolio *Portfolio
	watchlist *Watchlist
	ui        *UIState

	source  marketdata.Source
	analyst marketdata.Analyst
	news    marketdata.NewsSource
	logger  *slog.Logger
	closer  io.Closer

	refreshConcurrency int
	searchDelay        time.Duration

	schedMu sync.Mutex
	sched   *scheduler
}

// Open initializes a Core persisting to dbPath, or in memory when empty.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var closer io.Closer
	store := opts.Store
	if store == nil {
		if opts.DBPath != "" {
			sqlStore, err := OpenSQLiteStore(opts.DBPath, logger)
			if err != nil {
				return nil, err
			}
			store, closer = sqlStore, sqlStore
		} else {
			store = NewMemoryStore()
		}
	}
	portfolio, err := NewPortfolio(store, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	source := opts.Source
	if source == nil {
		source = marketdata.NewMockSource(marketdata.MockOptions{DelayScale: 1})
	}
	analyst, news := opts.Analyst, opts.News
	if analyst == nil {
		analyst, _ = source.(marketdata.Analyst)
	}
	if news == nil {
		news, _ = source.(marketdata.NewsSource)
	}
	if !opts.DisableCache {
		source = marketdata.NewCached(source, marketdata.CacheOptions{
			Logger:        logger,
			TTL:           opts.QuoteCacheTTL,
			FailThreshold: opts.SourceFailLimit,
			FailWindow:    opts.SourceFailWindow,
			Cooldown:      opts.SourceCooldown,
		})
	}

	return &Core{
		portfolio:          portfolio,
		watchlist:          NewWatchlist(),
		ui:                 NewUIState(),
		source:             source,
		analyst:            analyst,
		news:               news,
		logger:             logger,
		closer:             closer,
		refreshConcurrency: defaultInt(opts.RefreshConcurrency, 4),
		searchDelay:        opts.SearchDelay,
	}, nil
}

// Close stops background refresh and releases storage.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	c.StopAutoRefresh()
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Portfolio returns the ledger and holdings slice.
func (c *Core) Portfolio() *Portfolio { return c.portfolio }

// Watchlist returns the watchlist slice.
func (c *Core) Watchlist() *Watchlist { return c.watchlist }

// UI returns the UI state slice.
func (c *Core) UI() *UIState { return c.ui }

// Logger returns the core logger.
func (c *Core) Logger() *slog.Logger { return c.logger }

// Quote fetches a quote for symbol.
func (c *Core) Quote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return marketdata.Quote{}, NewError(ErrCodeInvalidInput, "symbol is required")
	}
	q, err := c.source.Quote(ctx, symbol)
	if err != nil {
		return marketdata.Quote{}, c.dataError("quote "+symbol, err)
	}
	return q, nil
}

// Chart fetches price history for symbol over rng ("1D" … "5Y", empty for 1M).
func (c *Core) Chart(ctx context.Context, symbol, rng string) ([]marketdata.ChartPoint, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, NewError(ErrCodeInvalidInput, "symbol is required")
	}
	tr, err := marketdata.ParseTimeRange(rng)
	if err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "invalid range", err)
	}
	points, err := c.source.Chart(ctx, symbol, tr)
	if err != nil {
		return nil, c.dataError("chart "+symbol, err)
	}
	return points, nil
}

// Search finds stocks whose symbol or name contains query. A blank query
// matches nothing and does not reach the source.
func (c *Core) Search(ctx context.Context, query string) ([]marketdata.Stock, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []marketdata.Stock{}, nil
	}
	results, err := c.source.Search(ctx, query)
	if err != nil {
		return nil, c.dataError("search", err)
	}
	return results, nil
}

// NewSearch returns a debounced search over Search that calls deliver with
// the results of the latest query.
func (c *Core) NewSearch(deliver func(SearchResult)) *DebouncedSearch {
	return NewDebouncedSearch(c.Search, c.searchDelay, deliver)
}

// News fetches headlines for symbol.
func (c *Core) News(ctx context.Context, symbol string) ([]marketdata.NewsItem, error) {
	if c.news == nil {
		return nil, NewError(ErrCodeDataUnavailable, "news source not configured")
	}
	items, err := c.news.News(ctx, marketdata.NormalizeSymbol(symbol))
	if err != nil {
		return nil, c.dataError("news "+symbol, err)
	}
	return items, nil
}

// Analysis fetches an analyst recommendation for symbol.
func (c *Core) Analysis(ctx context.Context, symbol string) (marketdata.Analysis, error) {
	if c.analyst == nil {
		return marketdata.Analysis{}, NewError(ErrCodeDataUnavailable, "analyst not configured")
	}
	a, err := c.analyst.Analysis(ctx, marketdata.NormalizeSymbol(symbol))
	if err != nil {
		return marketdata.Analysis{}, c.dataError("analysis "+symbol, err)
	}
	return a, nil
}

// SetPrice applies a manually entered price to the portfolio and watchlist.
func (c *Core) SetPrice(symbol string, price Amount) (bool, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return false, NewError(ErrCodeInvalidInput, "symbol is required")
	}
	if price.IsNegative() {
		return false, NewError(ErrCodeInvalidInput, "price must be >= 0")
	}
	pp := PricePoint{Symbol: symbol, Price: price, UpdatedAt: time.Now().UTC()}
	if prev, ok := c.portfolio.Price(symbol); ok {
		pp.Change = prev.Change
		pp.ChangePercent = prev.ChangePercent
	}
	updated := c.portfolio.UpdatePrice(pp)
	c.notifyAlerts(c.watchlist.UpdatePrice(pp, c.watchlistVolume(symbol)), symbol)
	c.logger.Info("manual price update", "symbol", symbol, "price", price.String(), "holding_updated", updated)
	return updated, nil
}

// AddToWatchlist adds a symbol and fills its price from a quote when possible.
func (c *Core) AddToWatchlist(ctx context.Context, in WatchlistInput) (WatchlistItem, bool, error) {
	item, added, err := c.watchlist.Add(in)
	if err != nil || !added {
		return item, added, err
	}
	q, err := c.source.Quote(ctx, item.Symbol)
	if err != nil {
		c.logger.Warn("watchlist quote failed", "symbol", item.Symbol, "err", err)
		return item, true, nil
	}
	if item.Name == "" {
		name := q.Name
		if updated, err := c.watchlist.Update(item.Symbol, WatchlistUpdate{Name: &name}); err == nil {
			item = updated
		}
	}
	c.watchlist.UpdatePrice(quotePricePoint(q), q.Volume)
	if fresh, ok := c.watchlist.Item(item.Symbol); ok {
		item = fresh
	}
	return item, true, nil
}

func (c *Core) watchlistVolume(symbol string) int64 {
	if item, ok := c.watchlist.Item(symbol); ok {
		return item.Volume
	}
	return 0
}

func (c *Core) notifyAlerts(alerts []PriceAlert, symbol string) {
	for _, a := range alerts {
		c.ui.Notify(NotifyWarning, "Price alert",
			fmt.Sprintf("%s is %s %s", symbol, a.Type, a.Price.Display(DefaultCurrency)), false)
		c.logger.Info("price alert triggered", "symbol", symbol, "type", a.Type, "price", a.Price.String())
	}
}

// dataError classifies a market-data failure and records it for the UI.
func (c *Core) dataError(op string, err error) error {
	classified := classifyMarketError(op, err)
	if classified.Code != ErrCodeDataUnavailable {
		return classified
	}
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("market data request canceled", "op", op)
		return classified
	}
	c.logger.Warn("market data failed", "op", op, "err", err)
	c.ui.Notify(NotifyError, "Market data unavailable", fmt.Sprintf("%s: %v", op, err), true)
	return classified
}

func quotePricePoint(q marketdata.Quote) PricePoint {
	at := q.LastUpdated
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return PricePoint{
		Symbol:        q.Symbol,
		Price:         NewAmount(q.Price),
		Change:        NewAmount(q.Change),
		ChangePercent: NewAmount(q.ChangePercent),
		UpdatedAt:     at,
	}
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
