package country

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/metrics"
)

// Loader owns the selected country and its fetched facts. Every selection
// change takes a new generation and cancels the fetch in flight, so a late
// response for an earlier selection is never applied.
type Loader struct {
	fetcher  Fetcher
	base     context.Context
	log      zerolog.Logger
	onChange func()

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	selected *Feature
	info     *Info
	closed   bool

	wg sync.WaitGroup
}

// NewLoader creates a loader. Fetches run under base; onChange is called
// (without locks held) after a result is applied.
func NewLoader(base context.Context, f Fetcher, log zerolog.Logger, onChange func()) *Loader {
	if onChange == nil {
		onChange = func() {}
	}
	return &Loader{fetcher: f, base: base, log: log, onChange: onChange}
}

// Select makes f the current selection, drops the previous facts and starts
// fetching. Features without an alpha-2 code stay in the loading state.
// Select does nothing after Close.
func (l *Loader) Select(f Feature) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	gen := l.bumpLocked()
	sel := f
	l.selected = &sel

	if !f.Fetchable() || l.fetcher == nil {
		l.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go l.fetch(ctx, gen, f.ISO2)
}

// Clear drops the selection and any fetch in flight.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.bumpLocked()
	l.selected = nil
	l.mu.Unlock()
}

// Snapshot returns the current selection and facts. info is nil while loading.
func (l *Loader) Snapshot() (selected *Feature, info *Info) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected != nil {
		sel := *l.selected
		selected = &sel
	}
	return selected, l.info
}

// Wait blocks until all started fetches have returned.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels the fetch in flight, waits for it and stops further fetches.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.bumpLocked()
	l.selected = nil
	l.mu.Unlock()
	l.Wait()
}

func (l *Loader) bumpLocked() uint64 {
	l.gen++
	l.releaseLocked()
	l.info = nil
	return l.gen
}

// releaseLocked cancels the current fetch context once its fetch is done.
func (l *Loader) releaseLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Loader) fetch(ctx context.Context, gen uint64, iso2 string) {
	defer l.wg.Done()

	info, err := l.fetcher.Fetch(ctx, iso2)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		metrics.CountryFetches.WithLabelValues("superseded").Inc()
		l.log.Debug().Str("country", iso2).Msg("discarding superseded country info")
		return
	}
	if err != nil {
		l.releaseLocked()
		l.mu.Unlock()
		metrics.CountryFetches.WithLabelValues("error").Inc()
		l.log.Warn().Err(err).Str("country", iso2).Msg("error fetching country info")
		return
	}
	l.info = info
	l.releaseLocked()
	l.mu.Unlock()

	metrics.CountryFetches.WithLabelValues("ok").Inc()
	l.onChange()
}
