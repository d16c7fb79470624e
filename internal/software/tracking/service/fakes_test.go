package service

import (
	"sync"
	"sync/atomic"
	"time"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/ports"
)

// fakeSource is a PositionSource whose readings tests emit by hand.
type fakeSource struct {
	mu      sync.Mutex
	watches []*fakeWatch
	opts    []ports.WatchOptions
}

type fakeWatch struct {
	onPosition func(geo.Position)
	onError    func(error)
	cleared    atomic.Bool
}

func (w *fakeWatch) Clear() { w.cleared.Store(true) }

func (s *fakeSource) Watch(opts ports.WatchOptions, onPosition func(geo.Position), onError func(error)) (ports.Watch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &fakeWatch{onPosition: onPosition, onError: onError}
	s.watches = append(s.watches, w)
	s.opts = append(s.opts, opts)
	return w, nil
}

func (s *fakeSource) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.watches {
		if !w.cleared.Load() {
			n++
		}
	}
	return n
}

func (s *fakeSource) emit(pos geo.Position) {
	s.mu.Lock()
	live := make([]*fakeWatch, 0, len(s.watches))
	for _, w := range s.watches {
		if !w.cleared.Load() {
			live = append(live, w)
		}
	}
	s.mu.Unlock()
	for _, w := range live {
		w.onPosition(pos)
	}
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	live := make([]*fakeWatch, 0, len(s.watches))
	for _, w := range s.watches {
		if !w.cleared.Load() {
			live = append(live, w)
		}
	}
	s.mu.Unlock()
	for _, w := range live {
		w.onError(err)
	}
}

// fakeTickers hands out tickers that fire only when a test sends on them.
type fakeTickers struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

type fakeTicker struct {
	c        chan time.Time
	interval time.Duration
	stopped  atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

func (f *fakeTickers) New(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time), interval: d}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeTickers) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickers {
		if !t.stopped.Load() {
			n++
		}
	}
	return n
}

// tick blocks until the publish loop has taken the tick.
func (f *fakeTickers) tick() {
	f.mu.Lock()
	t := f.tickers[len(f.tickers)-1]
	f.mu.Unlock()
	t.c <- time.Now()
}

func position(ms int64) geo.Position {
	return geo.Position{
		Latitude:             -6.2088,
		Longitude:            106.8456,
		HeadingDegrees:       180,
		SpeedMetersPerSecond: 8,
		AccuracyMeters:       4,
		CapturedAtEpochMs:    ms,
	}
}
