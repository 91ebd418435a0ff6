package stocktracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"stocktracker/pkg/marketdata"
)

// DefaultSearchDelay is the debounce delay of search-as-you-type.
const DefaultSearchDelay = 300 * time.Millisecond

// SearchFunc performs one symbol search.
type SearchFunc func(ctx context.Context, query string) ([]marketdata.Stock, error)

// SearchResult is delivered for the latest query only.
type SearchResult struct {
	Seq     uint64             `json:"seq"`
	Query   string             `json:"query"`
	Results []marketdata.Stock `json:"results"`
	Err     error              `json:"-"`
}

// DebouncedSearch runs a search once input has been idle for the delay.
// Each Input cancels the pending timer and any in-flight request; a result
// is delivered only if no newer Input happened since its request was issued.
type DebouncedSearch struct {
	search  SearchFunc
	delay   time.Duration
	deliver func(SearchResult)

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup

	// pending results are handed to deliver one at a time by whichever
	// goroutine is draining; deliver may call Input.
	pending  []SearchResult
	draining bool
}

// NewDebouncedSearch returns a debouncer that calls deliver with results.
// A non-positive delay uses DefaultSearchDelay. deliver may call Input.
func NewDebouncedSearch(search SearchFunc, delay time.Duration, deliver func(SearchResult)) *DebouncedSearch {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &DebouncedSearch{search: search, delay: delay, deliver: deliver}
}

// Input records a new query and returns its sequence number. An empty query
// delivers an empty result immediately.
func (d *DebouncedSearch) Input(query string) uint64 {
	query = strings.TrimSpace(query)
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	d.seq++
	seq := d.seq
	d.stopLocked()
	if query == "" {
		d.mu.Unlock()
		d.emit(SearchResult{Seq: seq, Query: query, Results: []marketdata.Stock{}})
		return seq
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.fire(seq, query)
	})
	d.mu.Unlock()
	return seq
}

// Close stops pending work and waits for in-flight requests to finish.
func (d *DebouncedSearch) Close() {
	d.mu.Lock()
	d.closed = true
	d.stopLocked()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *DebouncedSearch) stopLocked() {
	if d.timer != nil {
		if d.timer.Stop() {
			d.wg.Done()
		}
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *DebouncedSearch) fire(seq uint64, query string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	results, err := d.search(ctx, query)
	if results == nil {
		results = []marketdata.Stock{}
	}
	d.emit(SearchResult{Seq: seq, Query: query, Results: results, Err: err})
}

func (d *DebouncedSearch) emit(r SearchResult) {
	d.mu.Lock()
	if d.closed || r.Seq != d.seq {
		d.mu.Unlock()
		return
	}
	if r.Query != "" {
		d.cancel = nil
	}
	d.pending = append(d.pending, r)
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	for len(d.pending) > 0 {
		next := d.pending[0]
		d.pending = d.pending[1:]
		current := !d.closed && next.Seq == d.seq
		d.mu.Unlock()
		if current && d.deliver != nil {
			d.deliver(next)
		}
		d.mu.Lock()
	}
	d.draining = false
	d.mu.Unlock()
}
