// Package marketdata defines the market-data collaborator consumed by the
// stock tracker: quotes, price-history charts, symbol search, news and
// analyst recommendations. Implementations include a randomized mock, an
// Alpaca-backed source and a caching wrapper.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Market data errors. Use errors.Is() to check for these conditions.
var (
	// ErrDataUnavailable indicates the source could not produce data (timeout,
	// rate limit, server error).
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInvalidRange indicates an unsupported chart time range.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrUnknownSymbol indicates the source has no data for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrCircuitOpen indicates the source is cooling down after repeated failures.
	ErrCircuitOpen = errors.New("market data source cooling down")
)

// Stock describes a listed security.
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Quote is a point-in-time market quote.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        int64     `json:"volume"`
	AvgVolume     int64     `json:"avgVolume"`
	MarketCap     int64     `json:"marketCap"`
	PERatio       float64   `json:"peRatio"`
	High52Week    float64   `json:"high52Week"`
	Low52Week     float64   `json:"low52Week"`
	DividendYield float64   `json:"dividendYield"`
	EPS           float64   `json:"eps"`
	Beta          float64   `json:"beta"`
	PreviousClose float64   `json:"previousClose"`
	DayHigh       float64   `json:"dayHigh"`
	DayLow        float64   `json:"dayLow"`
	OpenPrice     float64   `json:"openPrice"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ChartPoint is one OHLCV bar.
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// NewsItem is a headline related to one or more symbols.
type NewsItem struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	Sentiment   string    `json:"sentiment"`
	Symbols     []string  `json:"symbols"`
}

// Recommendation values reported by an Analyst.
const (
	RecommendationBuy  = "BUY"
	RecommendationSell = "SELL"
	RecommendationHold = "HOLD"
)

// Analysis summarizes analyst opinion on a symbol.
type Analysis struct {
	Symbol         string    `json:"symbol"`
	Recommendation string    `json:"recommendation"`
	TargetPrice    float64   `json:"targetPrice"`
	AnalystCount   int       `json:"analystCount"`
	StrongBuy      int       `json:"strongBuy"`
	Buy            int       `json:"buy"`
	Hold           int       `json:"hold"`
	Sell           int       `json:"sell"`
	StrongSell     int       `json:"strongSell"`
	Rationale      string    `json:"rationale,omitempty"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Source is the market-data collaborator used by the tracker.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Chart(ctx context.Context, symbol string, rng TimeRange) ([]ChartPoint, error)
	Search(ctx context.Context, query string) ([]Stock, error)
}

// Analyst produces buy/sell/hold recommendations.
type Analyst interface {
	Analysis(ctx context.Context, symbol string) (Analysis, error)
}

// NewsSource produces news for a symbol.
type NewsSource interface {
	News(ctx context.Context, symbol string) ([]NewsItem, error)
}

// TimeRange is a chart history window.
type TimeRange string

// Supported chart ranges.
const (
	Range1D TimeRange = "1D"
	Range1W TimeRange = "1W"
	Range1M TimeRange = "1M"
	Range3M TimeRange = "3M"
	Range1Y TimeRange = "1Y"
	Range5Y TimeRange = "5Y"
)

// TimeRanges lists every supported range in display order.
var TimeRanges = []TimeRange{Range1D, Range1W, Range1M, Range3M, Range1Y, Range5Y}

var rangeDays = map[TimeRange]int{
	Range1D: 1,
	Range1W: 7,
	Range1M: 30,
	Range3M: 90,
	Range1Y: 365,
	Range5Y: 1825,
}

// Days returns the number of calendar days covered by the range.
// Unknown ranges fall back to one month.
func (r TimeRange) Days() int {
	if d, ok := rangeDays[r]; ok {
		return d
	}
	return 30
}

// Valid reports whether r is one of the supported ranges.
func (r TimeRange) Valid() bool {
	_, ok := rangeDays[r]
	return ok
}

// ParseTimeRange parses a case-insensitive range such as "1m" or "5Y".
// An empty string yields the default 1M range.
func ParseTimeRange(s string) (TimeRange, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Range1M, nil
	}
	r := TimeRange(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRange, s)
	}
	return r, nil
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
