package stocktracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stocktracker/pkg/marketdata"
)

// maxNotifications caps the retained notifications; the oldest are dropped.
const maxNotifications = 50

// UIState holds dashboard preferences, open modals and notifications.
type UIState struct {
	mu                sync.RWMutex
	sidebarOpen       bool
	theme             Theme
	notifications     []Notification
	modals            map[string]bool
	selectedTimeRange marketdata.TimeRange
	chartType         ChartType
	now               func() time.Time
}

// NewUIState returns the default UI state.
func NewUIState() *UIState {
	return &UIState{
		sidebarOpen: true,
		theme:       ThemeLight,
		modals: map[string]bool{
			ModalAddTransaction:  false,
			ModalEditTransaction: false,
			ModalAddToWatchlist:  false,
		},
		selectedTimeRange: marketdata.Range1D,
		chartType:         ChartLine,
		now:               time.Now,
	}
}

// Snapshot returns a copy of the state.
func (u *UIState) Snapshot() UISnapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	modals := make(map[string]bool, len(u.modals))
	for k, v := range u.modals {
		modals[k] = v
	}
	return UISnapshot{
		SidebarOpen:       u.sidebarOpen,
		Theme:             u.theme,
		Notifications:     append([]Notification{}, u.notifications...),
		Modals:            modals,
		SelectedTimeRange: u.selectedTimeRange,
		ChartType:         u.chartType,
	}
}

// ToggleSidebar flips the sidebar and returns the new value.
func (u *UIState) ToggleSidebar() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sidebarOpen = !u.sidebarOpen
	return u.sidebarOpen
}

// SetSidebarOpen sets the sidebar visibility.
func (u *UIState) SetSidebarOpen(open bool) {
	u.mu.Lock()
	u.sidebarOpen = open
	u.mu.Unlock()
}

// ToggleTheme switches between light and dark and returns the new theme.
func (u *UIState) ToggleTheme() Theme {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.theme == ThemeLight {
		u.theme = ThemeDark
	} else {
		u.theme = ThemeLight
	}
	return u.theme
}

// SetTheme sets the theme.
func (u *UIState) SetTheme(theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown theme %q", theme))
	}
	u.mu.Lock()
	u.theme = theme
	u.mu.Unlock()
	return nil
}

// SetTimeRange sets the selected chart range.
func (u *UIState) SetTimeRange(rng marketdata.TimeRange) error {
	if !rng.Valid() {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown time range %q", rng))
	}
	u.mu.Lock()
	u.selectedTimeRange = rng
	u.mu.Unlock()
	return nil
}

// SetChartType sets the chart style.
func (u *UIState) SetChartType(ct ChartType) error {
	if ct != ChartLine && ct != ChartCandlestick {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown chart type %q", ct))
	}
	u.mu.Lock()
	u.chartType = ct
	u.mu.Unlock()
	return nil
}

// OpenModal marks a modal open.
func (u *UIState) OpenModal(name string) error {
	return u.setModal(name, true)
}

// CloseModal marks a modal closed.
func (u *UIState) CloseModal(name string) error {
	return u.setModal(name, false)
}

func (u *UIState) setModal(name string, open bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.modals[name]; !ok {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown modal %q", name))
	}
	u.modals[name] = open
	return nil
}

// CloseAllModals closes every modal.
func (u *UIState) CloseAllModals() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for name := range u.modals {
		u.modals[name] = false
	}
}

// Notify appends a notification and returns it with its ID and timestamp.
func (u *UIState) Notify(typ NotificationType, title, message string, autoHide bool) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: u.now().UTC(),
		AutoHide:  autoHide,
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = append(u.notifications, n)
	if over := len(u.notifications) - maxNotifications; over > 0 {
		u.notifications = append([]Notification{}, u.notifications[over:]...)
	}
	return n
}

// Notifications returns the retained notifications, oldest first.
func (u *UIState) Notifications() []Notification {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]Notification{}, u.notifications...)
}

// RemoveNotification deletes a notification by id and reports whether it existed.
func (u *UIState) RemoveNotification(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, n := range u.notifications {
		if n.ID == id {
			u.notifications = append(u.notifications[:i:i], u.notifications[i+1:]...)
			return true
		}
	}
	return false
}

// ClearNotifications drops every notification.
func (u *UIState) ClearNotifications() {
	u.mu.Lock()
	u.notifications = nil
	u.mu.Unlock()
}
