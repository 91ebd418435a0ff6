package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stocktracker/pkg/stocktracker"
)

func (h *handler) getWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Watchlist().Items())
}

func (h *handler) addToWatchlist(w http.ResponseWriter, r *http.Request) {
	var payload stocktracker.WatchlistInput
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid watchlist body", err)
		return
	}
	item, added, err := h.core.AddToWatchlist(r.Context(), payload)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, watchlistAddResponse{Item: item, Added: added})
}

func (h *handler) clearWatchlist(w http.ResponseWriter, r *http.Request) {
	h.core.Watchlist().Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) sortWatchlist(w http.ResponseWriter, r *http.Request) {
	var payload watchlistSortPayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid sort body", err)
		return
	}
	if err := h.core.Watchlist().Sort(payload.Key); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.core.Watchlist().Items())
}

func (h *handler) updateWatchlistItem(w http.ResponseWriter, r *http.Request) {
	var payload stocktracker.WatchlistUpdate
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid watchlist update", err)
		return
	}
	item, err := h.core.Watchlist().Update(chi.URLParam(r, "symbol"), payload)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) removeFromWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if !h.core.Watchlist().Remove(symbol) {
		writeErrorResponse(w, r, http.StatusNotFound,
			stocktracker.NewError(stocktracker.ErrCodeNotFound, normalizeSymbol(symbol)+" is not on the watchlist"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) addAlert(w http.ResponseWriter, r *http.Request) {
	var payload alertPayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid alert body", err)
		return
	}
	alert, err := h.core.Watchlist().AddAlert(chi.URLParam(r, "symbol"), payload.Type, payload.Price)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (h *handler) removeAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.core.Watchlist().RemoveAlert(chi.URLParam(r, "symbol"), chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
