package stocktracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"stocktracker/pkg/marketdata"
)

// RefreshPrices fetches quotes for every held and watched symbol and applies
// them to the portfolio and watchlist. Individual failures are reported in
// the result and as one UI notification; they do not fail the call.
func (c *Core) RefreshPrices(ctx context.Context) (RefreshResult, error) {
	symbols := c.refreshSymbols()
	result := RefreshResult{Updated: []string{}, Failed: []string{}}
	if len(symbols) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.refreshConcurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			q, err := c.source.Quote(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, symbol)
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", symbol, err))
				return nil
			}
			pp := quotePricePoint(q)
			pp.Symbol = symbol
			c.portfolio.UpdatePrice(pp)
			c.notifyAlerts(c.watchlist.UpdatePrice(pp, q.Volume), symbol)
			result.Updated = append(result.Updated, symbol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, WrapError(ErrCodeInternal, "refresh prices", err)
	}
	sort.Strings(result.Updated)
	sort.Strings(result.Failed)
	sort.Strings(result.Errors)

	if len(result.Failed) > 0 {
		c.logger.Warn("price refresh incomplete", "updated", len(result.Updated), "failed", result.Failed)
		c.ui.Notify(NotifyError, "Price refresh failed",
			fmt.Sprintf("could not update %s", strings.Join(result.Failed, ", ")), true)
	} else {
		c.logger.Info("prices refreshed", "count", len(result.Updated))
	}
	if err := ctx.Err(); err != nil {
		return result, WrapError(ErrCodeDataUnavailable, "refresh prices", err)
	}
	return result, nil
}

func (c *Core) refreshSymbols() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range [][]string{c.portfolio.Symbols(), c.watchlist.Symbols()} {
		for _, s := range list {
			s = marketdata.NormalizeSymbol(s)
			if _, ok := seen[s]; ok || s == "" {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// RefreshSchedule selects when automatic refresh runs. Cron, when set, takes
// precedence over Interval and uses the standard five-field syntax.
type RefreshSchedule struct {
	Interval time.Duration
	Cron     string
	// Timeout bounds one refresh run. Defaults to 30s.
	Timeout time.Duration
}

type scheduler struct {
	s *gocron.Scheduler
}

// StartAutoRefresh runs RefreshPrices on a schedule until StopAutoRefresh or
// Close. Starting again replaces the previous schedule.
func (c *Core) StartAutoRefresh(sched RefreshSchedule) error {
	expr := strings.TrimSpace(sched.Cron)
	if expr == "" && sched.Interval <= 0 {
		return NewError(ErrCodeInvalidInput, "refresh interval or cron expression is required")
	}
	if expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return WrapError(ErrCodeInvalidInput, "invalid refresh cron expression", err)
		}
	}
	timeout := sched.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	var job *gocron.Scheduler
	if expr != "" {
		job = s.Cron(expr)
	} else {
		job = s.Every(sched.Interval).StartAt(time.Now().Add(sched.Interval))
	}
	if _, err := job.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := c.RefreshPrices(ctx); err != nil {
			c.logger.Warn("scheduled price refresh failed", "err", err)
		}
	}); err != nil {
		return WrapError(ErrCodeInternal, "schedule price refresh", err)
	}

	c.StopAutoRefresh()
	c.schedMu.Lock()
	c.sched = &scheduler{s: s}
	c.schedMu.Unlock()
	s.StartAsync()
	c.logger.Info("auto refresh started", "interval", sched.Interval, "cron", expr)
	return nil
}

// StopAutoRefresh stops the refresh schedule if one is running.
func (c *Core) StopAutoRefresh() {
	c.schedMu.Lock()
	sched := c.sched
	c.sched = nil
	c.schedMu.Unlock()
	if sched != nil {
		sched.s.Stop()
		c.logger.Info("auto refresh stopped")
	}
}

// AutoRefreshRunning reports whether a refresh schedule is active.
func (c *Core) AutoRefreshRunning() bool {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	return c.sched != nil
}
