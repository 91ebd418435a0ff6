package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stocktracker/pkg/marketdata"
)

// maxSMAWindow bounds the ?sma= query on the chart endpoint.
const maxSMAWindow = 200

func normalizeSymbol(symbol string) string {
	return marketdata.NormalizeSymbol(symbol)
}

func (h *handler) searchStocks(w http.ResponseWriter, r *http.Request) {
	results, err := h.core.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.core.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *handler) getChart(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	window := 0
	if raw := query.Get("sma"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSMAWindow {
			badRequest(w, r, "sma must be between 1 and "+strconv.Itoa(maxSMAWindow), err)
			return
		}
		window = n
	}

	symbol := chi.URLParam(r, "symbol")
	points, err := h.core.Chart(r.Context(), symbol, query.Get("range"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	rng, _ := marketdata.ParseTimeRange(query.Get("range"))
	resp := chartResponse{Symbol: normalizeSymbol(symbol), Range: rng, Points: points}
	if window > 0 {
		sma, err := marketdata.SMA(points, window)
		if err != nil {
			badRequest(w, r, "invalid sma window", err)
			return
		}
		resp.SMA = sma
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getNews(w http.ResponseWriter, r *http.Request) {
	items, err := h.core.News(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.core.Analysis(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
