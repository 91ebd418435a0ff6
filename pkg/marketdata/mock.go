package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Simulated network latency of the mock source.
const (
	mockQuoteDelay    = 500 * time.Millisecond
	mockChartDelay    = 300 * time.Millisecond
	mockSearchDelay   = 200 * time.Millisecond
	mockNewsDelay     = 400 * time.Millisecond
	mockAnalysisDelay = 300 * time.Millisecond

	// chartVolatility is the maximum relative move of one bar.
	chartVolatility = 0.02
)

// Catalog is the fixed set of stocks known to the mock source.
var Catalog = []Stock{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", Sector: "Technology", Industry: "Consumer Electronics"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ", Sector: "Technology", Industry: "Internet Software & Services"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", Sector: "Technology", Industry: "Software"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "NASDAQ", Sector: "Consumer Discretionary", Industry: "E-commerce"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ", Sector: "Consumer Discretionary", Industry: "Electric Vehicles"},
}

// MockOptions configures a MockSource.
type MockOptions struct {
	// Seed makes generated data reproducible. Zero picks a time-based seed.
	Seed uint64
	// DelayScale multiplies the simulated latencies. Zero disables delays.
	DelayScale float64
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// MockSource generates randomized market data with artificial latency.
type MockSource struct {
	delayScale float64
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

var (
	_ Source     = (*MockSource)(nil)
	_ Analyst    = (*MockSource)(nil)
	_ NewsSource = (*MockSource)(nil)
)

// NewMockSource returns a mock source.
func NewMockSource(opts MockOptions) *MockSource {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MockSource{
		delayScale: opts.DelayScale,
		now:        now,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Quote returns a random quote for symbol.
func (m *MockSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("quote: %w", ErrUnknownSymbol)
	}
	if err := m.wait(ctx, mockQuoteDelay); err != nil {
		return Quote{}, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	basePrice := m.rng.Float64()*200 + 50
	change := (m.rng.Float64() - 0.5) * 10
	return Quote{
		Symbol:        symbol,
		Name:          catalogName(symbol),
		Price:         round2(basePrice),
		Change:        round2(change),
		ChangePercent: round2(change / basePrice * 100),
		Volume:        m.rng.Int64N(10_000_000),
		AvgVolume:     m.rng.Int64N(5_000_000),
		MarketCap:     m.rng.Int64N(1_000_000_000_000),
		PERatio:       round2(m.rng.Float64()*30 + 5),
		High52Week:    round2(basePrice * 1.5),
		Low52Week:     round2(basePrice * 0.7),
		DividendYield: round2(m.rng.Float64() * 5),
		EPS:           round2(m.rng.Float64()*10 + 1),
		Beta:          round2(m.rng.Float64()*2 + 0.5),
		PreviousClose: round2(basePrice - change),
		DayHigh:       round2(basePrice * 1.05),
		DayLow:        round2(basePrice * 0.95),
		OpenPrice:     round2(basePrice * 0.98),
		LastUpdated:   m.now().UTC(),
	}, nil
}

// Chart returns a random walk with one bar per day, oldest first, ending today.
func (m *MockSource) Chart(ctx context.Context, symbol string, rng TimeRange) ([]ChartPoint, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("chart: %w", ErrUnknownSymbol)
	}
	if !rng.Valid() {
		return nil, fmt.Errorf("chart: %w: %s", ErrInvalidRange, rng)
	}
	if err := m.wait(ctx, mockChartDelay); err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	days := rng.Days()
	now := m.now().UTC()
	points := make([]ChartPoint, 0, days+1)
	price := m.rng.Float64()*200 + 50
	for i := days; i >= 0; i-- {
		change := (m.rng.Float64() - 0.5) * chartVolatility * price
		open := price
		closePrice := open + change
		high := math.Max(open, closePrice) * (1 + m.rng.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - m.rng.Float64()*0.01)
		points = append(points, ChartPoint{
			Timestamp: now.AddDate(0, 0, -i),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(closePrice),
			Volume:    m.rng.Int64N(10_000_000),
		})
		price = closePrice
	}
	return points, nil
}

// Search matches query against catalog symbols and names, case-insensitively.
func (m *MockSource) Search(ctx context.Context, query string) ([]Stock, error) {
	if err := m.wait(ctx, mockSearchDelay); err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	return searchCatalog(Catalog, query), nil
}

// News returns a single canned headline for symbol.
func (m *MockSource) News(ctx context.Context, symbol string) ([]NewsItem, error) {
	symbol = NormalizeSymbol(symbol)
	if err := m.wait(ctx, mockNewsDelay); err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
	}
	return []NewsItem{{
		ID:          "1",
		Headline:    fmt.Sprintf("%s Reports Strong Quarterly Earnings", symbol),
		Summary:     "Company exceeds analyst expectations with strong revenue growth.",
		Source:      "Financial News",
		PublishedAt: m.now().UTC(),
		URL:         "https://example.com/news/1",
		Sentiment:   "positive",
		Symbols:     []string{symbol},
	}}, nil
}

// Analysis returns a fixed consensus recommendation.
func (m *MockSource) Analysis(ctx context.Context, symbol string) (Analysis, error) {
	symbol = NormalizeSymbol(symbol)
	if err := m.wait(ctx, mockAnalysisDelay); err != nil {
		return Analysis{}, fmt.Errorf("failed to fetch analysis for %s: %w", symbol, err)
	}
	return Analysis{
		Symbol:         symbol,
		Recommendation: RecommendationBuy,
		TargetPrice:    150,
		AnalystCount:   25,
		StrongBuy:      10,
		Buy:            8,
		Hold:           5,
		Sell:           2,
		StrongSell:     0,
		LastUpdated:    m.now().UTC(),
	}, nil
}

func (m *MockSource) wait(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * m.delayScale)
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDataUnavailable, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func catalogName(symbol string) string {
	for _, s := range Catalog {
		if s.Symbol == symbol {
			return s.Name
		}
	}
	return symbol + " Inc."
}

func searchCatalog(stocks []Stock, query string) []Stock {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []Stock{}
	if q == "" {
		return results
	}
	for _, s := range stocks {
		if strings.Contains(strings.ToLower(s.Symbol), q) || strings.Contains(strings.ToLower(s.Name), q) {
			results = append(results, s)
		}
	}
	return results
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
