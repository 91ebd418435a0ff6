package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stocktracker/pkg/marketdata"
	"stocktracker/pkg/stocktracker"
)

func (h *handler) getUIState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.UI().Snapshot())
}

// updateUIState applies the fields present in the body. Fields are validated
// before any is applied.
func (h *handler) updateUIState(w http.ResponseWriter, r *http.Request) {
	var payload uiStatePayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid ui state body", err)
		return
	}

	var rng marketdata.TimeRange
	if payload.SelectedTimeRange != nil {
		parsed, err := marketdata.ParseTimeRange(*payload.SelectedTimeRange)
		if err != nil {
			badRequest(w, r, "invalid time range", err)
			return
		}
		rng = parsed
	}
	if payload.Theme != nil && *payload.Theme != stocktracker.ThemeLight && *payload.Theme != stocktracker.ThemeDark {
		badRequest(w, r, "unknown theme "+string(*payload.Theme), nil)
		return
	}
	if payload.ChartType != nil && *payload.ChartType != stocktracker.ChartLine && *payload.ChartType != stocktracker.ChartCandlestick {
		badRequest(w, r, "unknown chart type "+string(*payload.ChartType), nil)
		return
	}

	ui := h.core.UI()
	if payload.SidebarOpen != nil {
		ui.SetSidebarOpen(*payload.SidebarOpen)
	}
	if payload.Theme != nil {
		_ = ui.SetTheme(*payload.Theme)
	}
	if payload.SelectedTimeRange != nil {
		_ = ui.SetTimeRange(rng)
	}
	if payload.ChartType != nil {
		_ = ui.SetChartType(*payload.ChartType)
	}
	writeJSON(w, http.StatusOK, ui.Snapshot())
}

func (h *handler) toggleSidebar(w http.ResponseWriter, r *http.Request) {
	open := h.core.UI().ToggleSidebar()
	writeJSON(w, http.StatusOK, map[string]bool{"sidebarOpen": open})
}

func (h *handler) toggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.core.UI().ToggleTheme()
	writeJSON(w, http.StatusOK, map[string]stocktracker.Theme{"theme": theme})
}

func (h *handler) openModal(w http.ResponseWriter, r *http.Request) {
	h.setModal(w, r, true)
}

func (h *handler) closeModal(w http.ResponseWriter, r *http.Request) {
	h.setModal(w, r, false)
}

func (h *handler) setModal(w http.ResponseWriter, r *http.Request, open bool) {
	ui := h.core.UI()
	name := chi.URLParam(r, "name")
	var err error
	if open {
		err = ui.OpenModal(name)
	} else {
		err = ui.CloseModal(name)
	}
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, ui.Snapshot().Modals)
}

func (h *handler) closeAllModals(w http.ResponseWriter, r *http.Request) {
	h.core.UI().CloseAllModals()
	writeJSON(w, http.StatusOK, h.core.UI().Snapshot().Modals)
}

func (h *handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.UI().Notifications())
}

func (h *handler) addNotification(w http.ResponseWriter, r *http.Request) {
	var payload notificationPayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, r, "invalid notification body", err)
		return
	}
	switch payload.Type {
	case stocktracker.NotifySuccess, stocktracker.NotifyError, stocktracker.NotifyWarning, stocktracker.NotifyInfo:
	default:
		badRequest(w, r, "unknown notification type "+string(payload.Type), nil)
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		badRequest(w, r, "title is required", nil)
		return
	}
	n := h.core.UI().Notify(payload.Type, payload.Title, payload.Message, payload.AutoHide)
	writeJSON(w, http.StatusCreated, n)
}

func (h *handler) removeNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.core.UI().RemoveNotification(id) {
		writeErrorResponse(w, r, http.StatusNotFound,
			stocktracker.NewError(stocktracker.ErrCodeNotFound, "notification "+id+" not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	h.core.UI().ClearNotifications()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
