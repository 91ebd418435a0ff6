package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stocktracker/pkg/stocktracker"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *stocktracker.Core, logger *slog.Logger) http.Handler {
	if logger == nil && core != nil {
		logger = core.Logger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(logger))
	r.Use(recoverPanics(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)

	// Portfolio
	r.Get("/api/portfolio/holdings", h.getHoldings)
	r.Get("/api/portfolio/holdings/{symbol}", h.getHolding)
	r.Get("/api/portfolio/totals", h.getTotals)
	r.Get("/api/portfolio/summary", h.getSummary)
	r.Delete("/api/portfolio", h.clearPortfolio)

	// Transactions
	r.Get("/api/transactions", h.getTransactions)
	r.Post("/api/transactions", h.addTransaction)
	r.Delete("/api/transactions/{id}", h.deleteTransaction)

	// Prices
	r.Post("/api/prices/manual", h.manualUpdatePrice)
	r.Post("/api/prices/refresh", h.refreshPrices)

	// Market data
	r.Get("/api/stocks/search", h.searchStocks)
	r.Get("/api/stocks/{symbol}/quote", h.getQuote)
	r.Get("/api/stocks/{symbol}/chart", h.getChart)
	r.Get("/api/stocks/{symbol}/news", h.getNews)
	r.Get("/api/stocks/{symbol}/analysis", h.getAnalysis)

	// Watchlist
	r.Get("/api/watchlist", h.getWatchlist)
	r.Post("/api/watchlist", h.addToWatchlist)
	r.Delete("/api/watchlist", h.clearWatchlist)
	r.Post("/api/watchlist/sort", h.sortWatchlist)
	r.Put("/api/watchlist/{symbol}", h.updateWatchlistItem)
	r.Delete("/api/watchlist/{symbol}", h.removeFromWatchlist)
	r.Post("/api/watchlist/{symbol}/alerts", h.addAlert)
	r.Delete("/api/watchlist/{symbol}/alerts/{id}", h.removeAlert)

	// UI state
	r.Get("/api/ui", h.getUIState)
	r.Put("/api/ui", h.updateUIState)
	r.Post("/api/ui/sidebar/toggle", h.toggleSidebar)
	r.Post("/api/ui/theme/toggle", h.toggleTheme)
	r.Post("/api/ui/modals/{name}/open", h.openModal)
	r.Post("/api/ui/modals/{name}/close", h.closeModal)
	r.Delete("/api/ui/modals", h.closeAllModals)

	// Notifications
	r.Get("/api/notifications", h.getNotifications)
	r.Post("/api/notifications", h.addNotification)
	r.Delete("/api/notifications", h.clearNotifications)
	r.Delete("/api/notifications/{id}", h.removeNotification)

	return r
}

type handler struct {
	core   *stocktracker.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
