package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheOptions configures a Cached source.
type CacheOptions struct {
	Logger        *slog.Logger
	TTL           time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	// FetchTimeout bounds one upstream request shared by deduplicated
	// callers. Defaults to 30s.
	FetchTimeout time.Duration
	Now          func() time.Time
}

// Cached wraps a Source with a TTL cache for quotes and charts, request
// deduplication and a circuit breaker per operation.
type Cached struct {
	source        Source
	logger        *slog.Logger
	ttl           time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	fetchTimeout  time.Duration
	now           func() time.Time
	group         singleflight.Group

	// Separate locks for cache and circuit breaker to reduce contention.
	cacheMu sync.RWMutex
	quotes  map[string]quoteEntry
	charts  map[string]chartEntry

	circuitMu sync.Mutex
	circuits  map[string]*circuitState
}

var _ Source = (*Cached)(nil)

type quoteEntry struct {
	quote Quote
	ts    time.Time
}

type chartEntry struct {
	points []ChartPoint
	ts     time.Time
}

type circuitState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

// NewCached wraps source.
func NewCached(source Source, opts CacheOptions) *Cached {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cached{
		source:        source,
		logger:        logger,
		ttl:           defaultDuration(opts.TTL, 30*time.Second),
		failThreshold: defaultInt(opts.FailThreshold, 3),
		failWindow:    defaultDuration(opts.FailWindow, 60*time.Second),
		cooldown:      defaultDuration(opts.Cooldown, 120*time.Second),
		fetchTimeout:  defaultDuration(opts.FetchTimeout, 30*time.Second),
		now:           now,
		quotes:        map[string]quoteEntry{},
		charts:        map[string]chartEntry{},
		circuits:      map[string]*circuitState{},
	}
}

// Unwrap returns the wrapped source.
func (c *Cached) Unwrap() Source {
	return c.source
}

// Quote returns a cached quote when fresh, otherwise fetches one.
func (c *Cached) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	c.cacheMu.RLock()
	entry, ok := c.quotes[symbol]
	c.cacheMu.RUnlock()
	if ok && c.now().Sub(entry.ts) <= c.ttl {
		return entry.quote, nil
	}

	v, err := c.call(ctx, "quote", "quote|"+symbol, func(ctx context.Context) (any, error) {
		return c.source.Quote(ctx, symbol)
	})
	if err != nil {
		return Quote{}, err
	}
	quote := v.(Quote)
	c.cacheMu.Lock()
	c.quotes[symbol] = quoteEntry{quote: quote, ts: c.now()}
	c.cacheMu.Unlock()
	return quote, nil
}

// Chart returns cached chart points when fresh, otherwise fetches them.
func (c *Cached) Chart(ctx context.Context, symbol string, rng TimeRange) ([]ChartPoint, error) {
	symbol = NormalizeSymbol(symbol)
	key := symbol + "|" + string(rng)
	c.cacheMu.RLock()
	entry, ok := c.charts[key]
	c.cacheMu.RUnlock()
	if ok && c.now().Sub(entry.ts) <= c.ttl {
		return append([]ChartPoint(nil), entry.points...), nil
	}

	v, err := c.call(ctx, "chart", "chart|"+key, func(ctx context.Context) (any, error) {
		return c.source.Chart(ctx, symbol, rng)
	})
	if err != nil {
		return nil, err
	}
	points := v.([]ChartPoint)
	c.cacheMu.Lock()
	c.charts[key] = chartEntry{points: points, ts: c.now()}
	c.cacheMu.Unlock()
	return append([]ChartPoint(nil), points...), nil
}

// Search is never cached; results depend on the live catalog.
func (c *Cached) Search(ctx context.Context, query string) ([]Stock, error) {
	v, err := c.call(ctx, "search", "search|"+query, func(ctx context.Context) (any, error) {
		return c.source.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Stock), nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.quotes = map[string]quoteEntry{}
	c.charts = map[string]chartEntry{}
}

// call runs fn once per key for all concurrent callers. The upstream request
// is detached from any single caller's cancellation; a caller whose context
// ends stops waiting without affecting the others or the circuit.
func (c *Cached) call(ctx context.Context, op, key string, fn func(context.Context) (any, error)) (any, error) {
	if !c.available(op) {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrDataUnavailable, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		v, err := fn(fetchCtx)
		switch {
		case err == nil:
			c.recordSuccess(op)
		case fetchCtx.Err() != nil:
			// The source hung past the fetch timeout.
			c.recordFailure(op)
		case countsAsFailure(err):
			c.recordFailure(op)
		}
		return v, err
	})

	select {
	case <-ctx.Done():
		c.logger.Debug("market data request abandoned", "op", op, "key", key, "err", ctx.Err())
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("market data request failed", "op", op, "key", key, "shared", res.Shared, "err", res.Err)
			return nil, res.Err
		}
		return res.Val, nil
	}
}

// countsAsFailure reports whether err reflects on the source's health.
// Caller mistakes and cancellations do not.
func countsAsFailure(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrUnknownSymbol):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (c *Cached) available(op string) bool {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	state, ok := c.circuits[op]
	if !ok {
		return true
	}
	return c.now().After(state.cooldownUntil)
}

func (c *Cached) recordFailure(op string) {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	state := c.circuits[op]
	now := c.now()
	if state == nil {
		state = &circuitState{firstFailAt: now}
		c.circuits[op] = state
	}
	if now.Sub(state.firstFailAt) > c.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= c.failThreshold {
		state.cooldownUntil = now.Add(c.cooldown)
		c.logger.Warn("market data circuit opened", "op", op, "failures", state.failCount, "cooldown", c.cooldown)
	}
}

func (c *Cached) recordSuccess(op string) {
	c.circuitMu.Lock()
	defer c.circuitMu.Unlock()
	delete(c.circuits, op)
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
