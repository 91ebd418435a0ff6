package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	args := m.Called(symbol)
	return args.Get(0).(Quote), args.Error(1)
}

func (m *mockSource) Chart(ctx context.Context, symbol string, rng TimeRange) ([]ChartPoint, error) {
	args := m.Called(symbol, rng)
	points, _ := args.Get(0).([]ChartPoint)
	return points, args.Error(1)
}

func (m *mockSource) Search(ctx context.Context, query string) ([]Stock, error) {
	args := m.Called(query)
	stocks, _ := args.Get(0).([]Stock)
	return stocks, args.Error(1)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCached(src Source, clock *fakeClock) *Cached {
	return NewCached(src, CacheOptions{
		TTL:           30 * time.Second,
		FailThreshold: 2,
		FailWindow:    time.Minute,
		Cooldown:      2 * time.Minute,
		Now:           clock.Now,
	})
}

func TestCachedQuoteTTL(t *testing.T) {
	src := &mockSource{}
	src.On("Quote", "AAPL").Return(Quote{Symbol: "AAPL", Price: 100}, nil).Twice()
	clock := &fakeClock{now: fixedNow}
	c := newTestCached(src, clock)
	ctx := context.Background()

	q, err := c.Quote(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Price)

	clock.Advance(10 * time.Second)
	_, err = c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "Quote", 1)

	clock.Advance(31 * time.Second)
	_, err = c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "Quote", 2)
}

func TestCachedChartReturnsCopies(t *testing.T) {
	src := &mockSource{}
	src.On("Chart", "AAPL", Range1W).Return([]ChartPoint{{Close: 1}, {Close: 2}}, nil).Once()
	c := newTestCached(src, &fakeClock{now: fixedNow})

	first, err := c.Chart(context.Background(), "AAPL", Range1W)
	require.NoError(t, err)
	first[0].Close = 99

	second, err := c.Chart(context.Background(), "AAPL", Range1W)
	require.NoError(t, err)
	assert.Equal(t, 1.0, second[0].Close)
	src.AssertExpectations(t)
}

func TestCachedSearchNotCached(t *testing.T) {
	src := &mockSource{}
	src.On("Search", "app").Return([]Stock{{Symbol: "AAPL"}}, nil)
	c := newTestCached(src, &fakeClock{now: fixedNow})

	for i := 0; i < 3; i++ {
		results, err := c.Search(context.Background(), "app")
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}
	src.AssertNumberOfCalls(t, "Search", 3)
}

func TestCachedCircuitBreaker(t *testing.T) {
	upstream := errors.New("boom")
	src := &mockSource{}
	src.On("Quote", "AAPL").Return(Quote{}, upstream).Times(2)
	src.On("Quote", "AAPL").Return(Quote{Symbol: "AAPL", Price: 5}, nil)
	clock := &fakeClock{now: fixedNow}
	c := newTestCached(src, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Quote(ctx, "AAPL")
		assert.ErrorIs(t, err, upstream)
	}

	_, err := c.Quote(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	src.AssertNumberOfCalls(t, "Quote", 2)

	// Charts use a separate circuit.
	src.On("Chart", "AAPL", Range1D).Return([]ChartPoint{{Close: 1}}, nil)
	_, err = c.Chart(ctx, "AAPL", Range1D)
	assert.NoError(t, err)

	clock.Advance(2*time.Minute + time.Second)
	q, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 5.0, q.Price)
}

func TestCachedIgnoresCallerErrorsForCircuit(t *testing.T) {
	src := &mockSource{}
	src.On("Chart", "AAPL", TimeRange("bad")).Return(nil, ErrInvalidRange)
	src.On("Chart", "AAPL", Range1M).Return([]ChartPoint{}, nil)
	c := newTestCached(src, &fakeClock{now: fixedNow})

	for i := 0; i < 5; i++ {
		_, err := c.Chart(context.Background(), "AAPL", TimeRange("bad"))
		assert.ErrorIs(t, err, ErrInvalidRange)
	}
	_, err := c.Chart(context.Background(), "AAPL", Range1M)
	assert.NoError(t, err)
}

func TestCachedFailureWindowResets(t *testing.T) {
	upstream := errors.New("flaky")
	src := &mockSource{}
	src.On("Quote", "MSFT").Return(Quote{}, upstream)
	clock := &fakeClock{now: fixedNow}
	c := newTestCached(src, clock)

	_, _ = c.Quote(context.Background(), "MSFT")
	clock.Advance(2 * time.Minute)
	_, err := c.Quote(context.Background(), "MSFT")
	assert.ErrorIs(t, err, upstream)

	// Only one failure in the current window, so the circuit stays closed.
	_, err = c.Quote(context.Background(), "MSFT")
	assert.ErrorIs(t, err, upstream)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
}

func TestCachedInvalidate(t *testing.T) {
	src := &mockSource{}
	src.On("Quote", "AAPL").Return(Quote{Symbol: "AAPL"}, nil)
	c := newTestCached(src, &fakeClock{now: fixedNow})

	_, _ = c.Quote(context.Background(), "AAPL")
	c.Invalidate()
	_, _ = c.Quote(context.Background(), "AAPL")
	src.AssertNumberOfCalls(t, "Quote", 2)
	assert.Same(t, Source(src), c.Unwrap())
}

func TestCachedCancellationDoesNotTripCircuit(t *testing.T) {
	src := &mockSource{}
	src.On("Search", "ap").Return(nil, fmt.Errorf("search: %w: %w", ErrDataUnavailable, context.Canceled)).Times(3)
	src.On("Search", "ap").Return([]Stock{{Symbol: "AAPL"}}, nil)
	src.On("Quote", "AAPL").Return(Quote{}, fmt.Errorf("quote: %w", context.DeadlineExceeded)).Times(3)
	c := newTestCached(src, &fakeClock{now: fixedNow})

	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "ap")
		assert.ErrorIs(t, err, context.Canceled)
		_, err = c.Quote(context.Background(), "AAPL")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	stocks, err := c.Search(context.Background(), "ap")
	require.NoError(t, err)
	assert.Len(t, stocks, 1)
}

// gatedSource blocks searches until release is closed.
type gatedSource struct {
	mockSource
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedSource) Search(ctx context.Context, query string) ([]Stock, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	select {
	case <-g.release:
		return []Stock{{Symbol: "AAPL"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedSharedFetchOutlivesCanceledCaller(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	c := newTestCached(src, &fakeClock{now: fixedNow})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Search(ctx, "apple")
		firstErr <- err
	}()
	<-src.started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// The upstream request is still in flight; a second caller joins it.
	second := make(chan []Stock, 1)
	go func() {
		stocks, err := c.Search(context.Background(), "apple")
		assert.NoError(t, err)
		second <- stocks
	}()
	time.Sleep(20 * time.Millisecond)
	close(src.release)

	select {
	case stocks := <-second:
		assert.Len(t, stocks, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never received the shared result")
	}
	assert.Equal(t, int32(1), src.calls.Load())
}
