package stocktracker

import (
	"time"

	"stocktracker/pkg/marketdata"
)

// TransactionKind is the type of a ledger entry.
type TransactionKind string

// Transaction kinds.
const (
	KindBuy      TransactionKind = "BUY"
	KindSell     TransactionKind = "SELL"
	KindDividend TransactionKind = "DIVIDEND"
)

// TransactionKinds lists every supported kind.
var TransactionKinds = []TransactionKind{KindBuy, KindSell, KindDividend}

// Transaction is an immutable ledger record.
type Transaction struct {
	ID     string          `json:"id"`
	Symbol string          `json:"symbol"`
	Kind   TransactionKind `json:"type"`
	Shares Amount          `json:"shares"`
	Price  Amount          `json:"price"`
	Fee    Amount          `json:"fee"`
	Date   time.Time       `json:"date"`
	Notes  string          `json:"notes,omitempty"`
}

// TransactionInput defines inputs to record a transaction. The store assigns
// the ID; a zero Date is replaced with the current time.
type TransactionInput struct {
	Symbol string          `json:"symbol" validate:"required,max=16"`
	Kind   TransactionKind `json:"type" validate:"required,oneof=BUY SELL DIVIDEND"`
	Shares Amount          `json:"shares" validate:"gte=0"`
	Price  Amount          `json:"price" validate:"gte=0"`
	Fee    Amount          `json:"fee" validate:"gte=0"`
	Date   time.Time       `json:"date"`
	Notes  string          `json:"notes,omitempty" validate:"max=500"`
}

// Holding is the current aggregate position in one symbol.
type Holding struct {
	Symbol          string    `json:"symbol"`
	Shares          Amount    `json:"shares"`
	AveragePrice    Amount    `json:"averagePrice"`
	TotalCost       Amount    `json:"totalCost"`
	CurrentPrice    Amount    `json:"currentPrice"`
	MarketValue     Amount    `json:"marketValue"`
	GainLoss        Amount    `json:"gainLoss"`
	GainLossPercent Amount    `json:"gainLossPercent"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Holdings maps symbol to holding.
type Holdings map[string]Holding

// Totals are portfolio-wide figures over the current holdings.
type Totals struct {
	TotalValue           Amount `json:"totalValue"`
	TotalCost            Amount `json:"totalCost"`
	TotalGainLoss        Amount `json:"totalGainLoss"`
	TotalGainLossPercent Amount `json:"totalGainLossPercent"`
}

// PricePoint is the last known market price of a symbol.
type PricePoint struct {
	Symbol        string    `json:"symbol"`
	Price         Amount    `json:"price"`
	Change        Amount    `json:"change"`
	ChangePercent Amount    `json:"changePercent"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Metrics extends Totals with day change and diversification.
type Metrics struct {
	Totals
	DayChange        Amount            `json:"dayChange"`
	DayChangePercent Amount            `json:"dayChangePercent"`
	Diversification  map[string]Amount `json:"diversification"`
}

// Summary is the dashboard view of the portfolio.
type Summary struct {
	Holdings           []Holding     `json:"holdings"`
	Metrics            Metrics       `json:"metrics"`
	TopGainers         []Holding     `json:"topGainers"`
	TopLosers          []Holding     `json:"topLosers"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}

// AlertType is the crossing direction of a price alert.
type AlertType string

// Alert directions.
const (
	AlertAbove AlertType = "above"
	AlertBelow AlertType = "below"
)

// PriceAlert fires once when a watched price crosses Price.
type PriceAlert struct {
	ID          string     `json:"id"`
	Type        AlertType  `json:"type"`
	Price       Amount     `json:"price"`
	Enabled     bool       `json:"enabled"`
	Triggered   bool       `json:"triggered"`
	CreatedAt   time.Time  `json:"createdAt"`
	TriggeredAt *time.Time `json:"triggeredAt,omitempty"`
}

// WatchlistItem is a watched symbol with its latest quote figures.
type WatchlistItem struct {
	ID            string       `json:"id"`
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	CurrentPrice  Amount       `json:"currentPrice"`
	Change        Amount       `json:"change"`
	ChangePercent Amount       `json:"changePercent"`
	Volume        int64        `json:"volume"`
	TargetPrice   *Amount      `json:"targetPrice,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	AddedAt       time.Time    `json:"addedAt"`
	LastUpdated   time.Time    `json:"lastUpdated"`
	Alerts        []PriceAlert `json:"alerts"`
}

// WatchlistInput defines inputs to add a symbol to the watchlist.
type WatchlistInput struct {
	Symbol      string  `json:"symbol" validate:"required,max=16"`
	Name        string  `json:"name"`
	TargetPrice *Amount `json:"targetPrice,omitempty"`
	Notes       string  `json:"notes,omitempty" validate:"max=500"`
}

// WatchlistUpdate holds optional edits to a watchlist item.
type WatchlistUpdate struct {
	Name        *string `json:"name,omitempty"`
	TargetPrice *Amount `json:"targetPrice,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// WatchlistSortKey selects the watchlist ordering.
type WatchlistSortKey string

// Watchlist sort keys. Numeric keys sort descending.
const (
	SortBySymbol        WatchlistSortKey = "symbol"
	SortByPrice         WatchlistSortKey = "currentPrice"
	SortByChange        WatchlistSortKey = "change"
	SortByChangePercent WatchlistSortKey = "changePercent"
)

// NotificationType is the severity of a UI notification.
type NotificationType string

// Notification types.
const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

// Notification is a message shown to the user.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	AutoHide  bool             `json:"autoHide,omitempty"`
}

// Theme is the dashboard color scheme.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ChartType is the price chart style.
type ChartType string

// Chart types.
const (
	ChartLine        ChartType = "line"
	ChartCandlestick ChartType = "candlestick"
)

// Modal names.
const (
	ModalAddTransaction  = "addTransaction"
	ModalEditTransaction = "editTransaction"
	ModalAddToWatchlist  = "addToWatchlist"
)

// UISnapshot is a copy of the UI state slice.
type UISnapshot struct {
	SidebarOpen       bool                 `json:"sidebarOpen"`
	Theme             Theme                `json:"theme"`
	Notifications     []Notification       `json:"notifications"`
	Modals            map[string]bool      `json:"modals"`
	SelectedTimeRange marketdata.TimeRange `json:"selectedTimeRange"`
	ChartType         ChartType            `json:"chartType"`
}

// RefreshResult reports the outcome of a price refresh.
type RefreshResult struct {
	Updated []string `json:"updated"`
	Failed  []string `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
