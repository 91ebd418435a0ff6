package stocktracker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stocktracker/pkg/marketdata"
)

// Watchlist is the ordered list of watched symbols. Symbols are unique.
type Watchlist struct {
	mu    sync.RWMutex
	items []WatchlistItem
	now   func() time.Time
}

// NewWatchlist returns an empty watchlist.
func NewWatchlist() *Watchlist {
	return &Watchlist{now: time.Now}
}

// Add appends a symbol. Adding a symbol already present returns the existing
// item and false.
func (w *Watchlist) Add(in WatchlistInput) (WatchlistItem, bool, error) {
	in, err := normalizeWatchlistInput(in)
	if err != nil {
		return WatchlistItem{}, false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.indexOf(in.Symbol); i >= 0 {
		return cloneItem(w.items[i]), false, nil
	}
	now := w.now().UTC()
	item := WatchlistItem{
		ID:          uuid.NewString(),
		Symbol:      in.Symbol,
		Name:        in.Name,
		TargetPrice: in.TargetPrice,
		Notes:       in.Notes,
		AddedAt:     now,
		LastUpdated: now,
		Alerts:      []PriceAlert{},
	}
	w.items = append(w.items, item)
	return cloneItem(item), true, nil
}

// Remove deletes symbol from the watchlist and reports whether it was present.
func (w *Watchlist) Remove(symbol string) bool {
	symbol = marketdata.NormalizeSymbol(symbol)
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return false
	}
	w.items = append(w.items[:i:i], w.items[i+1:]...)
	return true
}

// Items returns a copy of the watchlist in its current order.
func (w *Watchlist) Items() []WatchlistItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]WatchlistItem, 0, len(w.items))
	for _, item := range w.items {
		out = append(out, cloneItem(item))
	}
	return out
}

// Item returns the watchlist entry for symbol.
func (w *Watchlist) Item(symbol string) (WatchlistItem, bool) {
	symbol = marketdata.NormalizeSymbol(symbol)
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return WatchlistItem{}, false
	}
	return cloneItem(w.items[i]), true
}

// Symbols returns the watched symbols in list order.
func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.items))
	for _, item := range w.items {
		out = append(out, item.Symbol)
	}
	return out
}

// UpdatePrice applies a quote to symbol and returns the alerts it triggered.
// Unknown symbols are ignored.
func (w *Watchlist) UpdatePrice(pp PricePoint, volume int64) []PriceAlert {
	symbol := marketdata.NormalizeSymbol(pp.Symbol)
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return nil
	}
	at := pp.UpdatedAt
	if at.IsZero() {
		at = w.now().UTC()
	}
	item := &w.items[i]
	item.CurrentPrice = pp.Price
	item.Change = pp.Change
	item.ChangePercent = pp.ChangePercent
	item.Volume = volume
	item.LastUpdated = at

	var triggered []PriceAlert
	for j := range item.Alerts {
		alert := &item.Alerts[j]
		if !alert.Enabled || alert.Triggered || !alertCrossed(*alert, pp.Price) {
			continue
		}
		alert.Triggered = true
		t := at
		alert.TriggeredAt = &t
		triggered = append(triggered, *alert)
	}
	return triggered
}

func alertCrossed(alert PriceAlert, price Amount) bool {
	switch alert.Type {
	case AlertAbove:
		return price.GreaterThanOrEqual(alert.Price.Decimal)
	case AlertBelow:
		return price.LessThanOrEqual(alert.Price.Decimal)
	}
	return false
}

// Update edits the name, target price or notes of symbol.
func (w *Watchlist) Update(symbol string, upd WatchlistUpdate) (WatchlistItem, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if upd.TargetPrice != nil && upd.TargetPrice.IsNegative() {
		return WatchlistItem{}, NewError(ErrCodeInvalidInput, "targetPrice must be >= 0")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return WatchlistItem{}, NewError(ErrCodeNotFound, fmt.Sprintf("%s is not in the watchlist", symbol))
	}
	item := &w.items[i]
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.TargetPrice != nil {
		target := *upd.TargetPrice
		item.TargetPrice = &target
	}
	if upd.Notes != nil {
		item.Notes = *upd.Notes
	}
	return cloneItem(*item), nil
}

// AddAlert attaches a price alert to symbol.
func (w *Watchlist) AddAlert(symbol string, typ AlertType, price Amount) (PriceAlert, error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if typ != AlertAbove && typ != AlertBelow {
		return PriceAlert{}, NewError(ErrCodeInvalidInput, "alert type must be above or below")
	}
	if !price.IsPositive() {
		return PriceAlert{}, NewError(ErrCodeInvalidInput, "alert price must be > 0")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return PriceAlert{}, NewError(ErrCodeNotFound, fmt.Sprintf("%s is not in the watchlist", symbol))
	}
	alert := PriceAlert{
		ID:        uuid.NewString(),
		Type:      typ,
		Price:     price,
		Enabled:   true,
		CreatedAt: w.now().UTC(),
	}
	w.items[i].Alerts = append(w.items[i].Alerts, alert)
	return alert, nil
}

// RemoveAlert deletes an alert from symbol.
func (w *Watchlist) RemoveAlert(symbol, alertID string) error {
	symbol = marketdata.NormalizeSymbol(symbol)
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(symbol)
	if i < 0 {
		return NewError(ErrCodeNotFound, fmt.Sprintf("%s is not in the watchlist", symbol))
	}
	alerts := w.items[i].Alerts
	for j, a := range alerts {
		if a.ID == alertID {
			w.items[i].Alerts = append(alerts[:j:j], alerts[j+1:]...)
			return nil
		}
	}
	return NewError(ErrCodeNotFound, "alert not found")
}

// Sort reorders the watchlist. Symbol sorts ascending, numeric keys descending.
func (w *Watchlist) Sort(key WatchlistSortKey) error {
	var less func(a, b WatchlistItem) bool
	switch key {
	case SortBySymbol:
		less = func(a, b WatchlistItem) bool { return a.Symbol < b.Symbol }
	case SortByPrice:
		less = func(a, b WatchlistItem) bool { return a.CurrentPrice.GreaterThan(b.CurrentPrice.Decimal) }
	case SortByChange:
		less = func(a, b WatchlistItem) bool { return a.Change.GreaterThan(b.Change.Decimal) }
	case SortByChangePercent:
		less = func(a, b WatchlistItem) bool { return a.ChangePercent.GreaterThan(b.ChangePercent.Decimal) }
	default:
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown sort key %q", key))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	sort.SliceStable(w.items, func(i, j int) bool {
		return less(w.items[i], w.items[j])
	})
	return nil
}

// Clear empties the watchlist.
func (w *Watchlist) Clear() {
	w.mu.Lock()
	w.items = nil
	w.mu.Unlock()
}

func (w *Watchlist) indexOf(symbol string) int {
	for i, item := range w.items {
		if item.Symbol == symbol {
			return i
		}
	}
	return -1
}

func cloneItem(item WatchlistItem) WatchlistItem {
	item.Alerts = append([]PriceAlert{}, item.Alerts...)
	if item.TargetPrice != nil {
		target := *item.TargetPrice
		item.TargetPrice = &target
	}
	return item
}
