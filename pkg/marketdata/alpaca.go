package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// maxSearchResults caps the number of assets returned by AlpacaSource.Search.
const maxSearchResults = 10

// AlpacaOptions configures an AlpacaSource. Empty credentials make the SDK
// fall back to the APCA_API_KEY_ID / APCA_API_SECRET_KEY environment variables.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	BaseURL   string
	// AssetsTTL controls how long the tradable asset list is reused by Search.
	AssetsTTL time.Duration
}

// AlpacaSource serves quotes, daily bars and asset search from Alpaca.
type AlpacaSource struct {
	mdClient    *marketdata.Client
	tradeClient *alpaca.Client
	assetsTTL   time.Duration

	mu       sync.Mutex
	assets   []alpaca.Asset
	assetsAt time.Time
}

var _ Source = (*AlpacaSource)(nil)

// NewAlpacaSource returns a source backed by the Alpaca APIs.
func NewAlpacaSource(opts AlpacaOptions) *AlpacaSource {
	return &AlpacaSource{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
		}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		assetsTTL: defaultDuration(opts.AssetsTTL, time.Hour),
	}
}

// Quote builds a quote from the latest snapshot of symbol.
func (a *AlpacaSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if err := ctx.Err(); err != nil {
		return Quote{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	snap, err := a.mdClient.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
	if err != nil {
		return Quote{}, fmt.Errorf("failed to fetch quote for %s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	if snap == nil || snap.LatestTrade == nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrUnknownSymbol)
	}
	return snapshotQuote(symbol, snap), nil
}

// snapshotQuote maps a snapshot onto a Quote. Snapshots carry no average
// volume, so AvgVolume stays zero.
func snapshotQuote(symbol string, snap *marketdata.Snapshot) Quote {
	q := Quote{
		Symbol:      symbol,
		Name:        catalogName(symbol),
		Price:       round2(snap.LatestTrade.Price),
		LastUpdated: snap.LatestTrade.Timestamp.UTC(),
	}
	if bar := snap.DailyBar; bar != nil {
		q.OpenPrice = round2(bar.Open)
		q.DayHigh = round2(bar.High)
		q.DayLow = round2(bar.Low)
		q.Volume = int64(bar.Volume)
	}
	if prev := snap.PrevDailyBar; prev != nil {
		q.PreviousClose = round2(prev.Close)
		if prev.Close != 0 {
			change := snap.LatestTrade.Price - prev.Close
			q.Change = round2(change)
			q.ChangePercent = round2(change / prev.Close * 100)
		}
	}
	return q
}

// Chart returns daily bars covering rng, or hourly bars for 1D.
func (a *AlpacaSource) Chart(ctx context.Context, symbol string, rng TimeRange) ([]ChartPoint, error) {
	symbol = NormalizeSymbol(symbol)
	if !rng.Valid() {
		return nil, fmt.Errorf("chart: %w: %s", ErrInvalidRange, rng)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	timeframe := marketdata.OneDay
	if rng == Range1D {
		timeframe = marketdata.OneHour
	}
	end := time.Now()
	bars, err := a.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: timeframe,
		Start:     end.AddDate(0, 0, -rng.Days()),
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	points := make([]ChartPoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, ChartPoint{
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		})
	}
	return points, nil
}

// Search matches active US equities by symbol or name.
func (a *AlpacaSource) Search(ctx context.Context, query string) ([]Stock, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []Stock{}
	if q == "" {
		return results, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	assets, err := a.loadAssets()
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w: %w", ErrDataUnavailable, err)
	}
	for _, asset := range assets {
		if strings.Contains(strings.ToLower(asset.Symbol), q) || strings.Contains(strings.ToLower(asset.Name), q) {
			results = append(results, Stock{
				Symbol:   asset.Symbol,
				Name:     asset.Name,
				Exchange: asset.Exchange,
			})
			if len(results) >= maxSearchResults {
				break
			}
		}
	}
	return results, nil
}

func (a *AlpacaSource) loadAssets() ([]alpaca.Asset, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assets != nil && time.Since(a.assetsAt) <= a.assetsTTL {
		return a.assets, nil
	}
	assets, err := a.tradeClient.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return nil, err
	}
	a.assets = assets
	a.assetsAt = time.Now()
	return assets, nil
}
