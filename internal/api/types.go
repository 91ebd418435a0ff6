package api

import (
	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

type manualPricePayload struct {
	Symbol string              `json:"symbol"`
	Price  stocktracker.Amount `json:"price"`
}

type manualPriceResponse struct {
	Symbol         string              `json:"symbol"`
	Price          stocktracker.Amount `json:"price"`
	HoldingUpdated bool                `json:"holdingUpdated"`
}

type chartResponse struct {
	Symbol string                    `json:"symbol"`
	Range  marketdata.TimeRange      `json:"range"`
	Points []marketdata.ChartPoint   `json:"points"`
	SMA    []marketdata.AveragePoint `json:"sma,omitempty"`
}

type watchlistAddResponse struct {
	Item  stocktracker.WatchlistItem `json:"item"`
	Added bool                       `json:"added"`
}

type watchlistSortPayload struct {
	Key stocktracker.WatchlistSortKey `json:"key"`
}

type alertPayload struct {
	Type  stocktracker.AlertType `json:"type"`
	Price stocktracker.Amount    `json:"price"`
}

type uiStatePayload struct {
	SidebarOpen       *bool                   `json:"sidebarOpen"`
	Theme             *stocktracker.Theme     `json:"theme"`
	SelectedTimeRange *string                 `json:"selectedTimeRange"`
	ChartType         *stocktracker.ChartType `json:"chartType"`
}

type notificationPayload struct {
	Type     stocktracker.NotificationType `json:"type"`
	Title    string                        `json:"title"`
	Message  string                        `json:"message"`
	AutoHide bool                          `json:"autoHide"`
}
