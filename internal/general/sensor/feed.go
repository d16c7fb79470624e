// Package sensor turns pushed device readings into position watches with
// maximum-age and timeout semantics.
package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-hub/internal/domain/geo"
	"delivery-hub/internal/ports"
)

var (
	ErrPositionStale  = errors.New("sensor: position older than maximum age")
	ErrSensorTimeout  = errors.New("sensor: no position within timeout")
	ErrInvalidReading = errors.New("sensor: invalid reading")
	ErrFeedClosed     = errors.New("sensor: feed closed")
	ErrNilCallback    = errors.New("sensor: onPosition is required")
)

// Feed is a push-fed ports.PositionSource. The device (here, the driver's
// socket) calls Push; every active watch gets the reading.
type Feed struct {
	now func() time.Time

	mu      sync.Mutex
	watches map[uint64]*watch
	nextID  uint64
	closed  bool
}

var _ ports.PositionSource = (*Feed)(nil)

// Option configures a Feed.
type Option func(*Feed)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// NewFeed creates an empty feed.
func NewFeed(opts ...Option) *Feed {
	f := &Feed{now: time.Now, watches: make(map[uint64]*watch)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Watch registers callbacks. onError receives ErrPositionStale,
// ErrSensorTimeout and ErrInvalidReading; none of them end the watch.
func (f *Feed) Watch(opts ports.WatchOptions, onPosition func(geo.Position), onError func(error)) (ports.Watch, error) {
	if onPosition == nil {
		return nil, ErrNilCallback
	}
	if onError == nil {
		onError = func(error) {}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedClosed
	}

	f.nextID++
	w := &watch{
		id:         f.nextID,
		feed:       f,
		opts:       opts,
		onPosition: onPosition,
		onError:    onError,
	}
	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, w.timedOut)
	}
	f.watches[w.id] = w
	return w, nil
}

// Push hands a reading to every active watch. An invalid reading is
// reported to the watches and returned.
func (f *Feed) Push(pos geo.Position) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	snapshot := make([]*watch, 0, len(f.watches))
	for _, w := range f.watches {
		snapshot = append(snapshot, w)
	}
	f.mu.Unlock()

	if err := pos.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidReading, err)
		for _, w := range snapshot {
			w.fail(err)
		}
		return err
	}

	now := f.now()
	for _, w := range snapshot {
		w.deliver(pos, now)
	}
	return nil
}

// Active returns the number of uncleared watches.
func (f *Feed) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watches)
}

// Close clears every watch and rejects further use.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	snapshot := f.watches
	f.watches = make(map[uint64]*watch)
	f.mu.Unlock()

	for _, w := range snapshot {
		w.Clear()
	}
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	delete(f.watches, id)
	f.mu.Unlock()
}

type watch struct {
	id         uint64
	feed       *Feed
	opts       ports.WatchOptions
	onPosition func(geo.Position)
	onError    func(error)

	mu      sync.Mutex // serializes callbacks; held by Clear until in-flight ones finish
	timer   *time.Timer
	cleared bool
}

func (w *watch) deliver(pos geo.Position, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleared {
		return
	}

	if w.opts.MaximumAge > 0 && pos.Age(now) > w.opts.MaximumAge {
		w.onError(fmt.Errorf("%w: age %s", ErrPositionStale, pos.Age(now).Round(time.Millisecond)))
		return
	}

	if w.timer != nil {
		w.timer.Reset(w.opts.Timeout)
	}
	w.onPosition(pos)
}

func (w *watch) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cleared {
		w.onError(err)
	}
}

func (w *watch) timedOut() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleared {
		return
	}
	w.onError(ErrSensorTimeout)
	w.timer.Reset(w.opts.Timeout)
}

// Clear stops the watch. No callback runs after Clear returns. Calling it
// from inside one of the watch's own callbacks deadlocks.
func (w *watch) Clear() {
	w.mu.Lock()
	if w.cleared {
		w.mu.Unlock()
		return
	}
	w.cleared = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.feed.remove(w.id)
}
