package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stocktracker/pkg/stocktracker"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"auto_refresh": h.core.AutoRefreshRunning(),
	})
}

func (h *handler) getHoldings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Portfolio().Holdings())
}

func (h *handler) getHolding(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	holding, ok := h.core.Portfolio().Holding(symbol)
	if !ok {
		writeErrorResponse(w, r, http.StatusNotFound,
			stocktracker.NewError(stocktracker.ErrCodeNotFound, "no holding for "+symbol))
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

func (h *handler) getTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Portfolio().Totals())
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	summary, err := h.core.Portfolio().Summary(limit)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) clearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.core.Portfolio().Clear(); err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	h.logger.Info("portfolio cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.core.Portfolio().Transactions()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.Symbol == normalizeSymbol(symbol) {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var payload stocktracker.TransactionInput
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid transaction body", err)
		return
	}
	tx, err := h.core.Portfolio().AddTransaction(payload)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.core.Portfolio().RemoveTransaction(id); err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) manualUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var payload manualPricePayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid price body", err)
		return
	}
	updated, err := h.core.SetPrice(payload.Symbol, payload.Price)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, manualPriceResponse{
		Symbol:         normalizeSymbol(payload.Symbol),
		Price:          payload.Price,
		HoldingUpdated: updated,
	})
}

func (h *handler) refreshPrices(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.RefreshPrices(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}
