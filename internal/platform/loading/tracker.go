// Package loading tracks the number of outstanding remote requests so a single
// loading indicator can reflect "at least one request in flight".
package loading

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "maternity_requests_in_flight",
	Help: "Number of remote requests currently outstanding",
})

// Tracker is a request counter. Every Begin must be paired with a call to the
// returned end function; Reset clears a stuck counter and invalidates end
// functions handed out before it.
type Tracker struct {
	mu         sync.Mutex
	count      int
	generation uint64
	subs       map[int]func(int)
	nextSub    int
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{subs: make(map[int]func(int))}
}

// Begin increments the counter and returns the matching end function. Calling
// end more than once has no further effect.
func (t *Tracker) Begin() (end func()) {
	t.mu.Lock()
	t.count++
	gen := t.generation
	count := t.count
	subs := t.subscribers()
	t.mu.Unlock()

	requestsInFlight.Inc()
	notify(subs, count)

	var once sync.Once
	return func() {
		once.Do(func() { t.end(gen) })
	}
}

func (t *Tracker) end(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.count == 0 {
		t.mu.Unlock()
		return
	}
	t.count--
	count := t.count
	subs := t.subscribers()
	t.mu.Unlock()

	requestsInFlight.Dec()
	notify(subs, count)
}

// Reset forces the counter back to zero.
func (t *Tracker) Reset() {
	t.mu.Lock()
	stale := t.count
	t.count = 0
	t.generation++
	subs := t.subscribers()
	t.mu.Unlock()

	requestsInFlight.Sub(float64(stale))
	notify(subs, 0)
}

// Count returns the number of outstanding requests.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Active reports whether at least one request is outstanding.
func (t *Tracker) Active() bool {
	return t.Count() > 0
}

// Subscribe registers fn to be called with the new count on every change.
func (t *Tracker) Subscribe(fn func(count int)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// subscribers must be called with t.mu held.
func (t *Tracker) subscribers() []func(int) {
	out := make([]func(int), 0, len(t.subs))
	for _, fn := range t.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(int), count int) {
	for _, fn := range subs {
		fn(count)
	}
}
