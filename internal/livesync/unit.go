// Package livesync keeps one piece of Appwrite state mirrored into a local
// snapshot: an initial fetch plus a realtime subscription that patches or
// re-fetches on every event.
package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/awsync/internal/domain"
)

// binding describes one run of a unit: what to fetch, which channel to
// listen on, and how events apply to the current value.
type binding[T any] struct {
	channel string
	fetch   func(ctx context.Context) (T, error)

	// apply returns the next value for an event, or false to re-fetch
	apply func(ev domain.Event, current T, policy Policy) (T, bool)

	// seed returns a cached value to show before the first fetch lands
	seed func() (T, bool)

	// persist writes a confirmed value through to the snapshot store
	persist func(T)

	// evict runs for every event before it is applied
	evict func(domain.Event)
}

// Unit is the fetch + subscribe + snapshot bundle shared by Collection,
// Document and Account.
type Unit[T any] struct {
	name    string
	sub     domain.Subscriber
	logger  *slog.Logger
	timeout time.Duration

	// lifecycle serializes bind and stop so at most one subscription is live
	lifecycle sync.Mutex

	mu       sync.Mutex
	idle     *sync.Cond
	state    State[T]
	version  uint64
	policy   Policy
	b        *binding[T]
	gen      uint64 // run generation; bumped on every bind and stop
	issued   uint64 // last fetch sequence handed out
	applied  uint64 // last fetch sequence written to state
	inflight int
	ctx      context.Context
	cancel   context.CancelFunc
	release  func()

	obs        observers[T]
	deliverMu  sync.Mutex
	delivering bool
	delivered  uint64
}

func newUnit[T any](name string, sub domain.Subscriber, o options) *Unit[T] {
	u := &Unit[T]{
		name:    name,
		sub:     sub,
		logger:  o.logger.With("unit", name),
		timeout: o.fetchTimeout,
		policy:  o.policy,
	}
	u.idle = sync.NewCond(&u.mu)
	return u
}

// State returns the current snapshot
func (u *Unit[T]) State() State[T] {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Observe registers o for state changes. The returned function removes it
// and may be called any number of times.
func (u *Unit[T]) Observe(o Observer[T]) func() {
	return u.obs.add(o)
}

// Refresh re-fetches the current target without touching the subscription.
// It does nothing while the unit is stopped.
func (u *Unit[T]) Refresh() {
	u.mu.Lock()
	gen := u.gen
	u.mu.Unlock()
	u.startFetch(gen)
}

// Wait blocks until no fetch is in flight
func (u *Unit[T]) Wait() {
	u.mu.Lock()
	for u.inflight > 0 {
		u.idle.Wait()
	}
	u.mu.Unlock()
}

// Active reports whether the unit currently holds a subscription
func (u *Unit[T]) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.b != nil
}

func (u *Unit[T]) Policy() Policy {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.policy
}

// SetPolicy changes how later events are applied. It does not resubscribe.
func (u *Unit[T]) SetPolicy(p Policy) {
	u.mu.Lock()
	u.policy = p
	u.mu.Unlock()
}

// bind tears down the current run and starts a new one for b.
// The previous subscription is released before the new one is opened.
func (u *Unit[T]) bind(b *binding[T]) {
	u.lifecycle.Lock()
	defer u.lifecycle.Unlock()

	u.teardown()

	ctx, cancel := context.WithCancel(context.Background())

	u.mu.Lock()
	u.b = b
	u.ctx, u.cancel = ctx, cancel
	u.gen++
	gen := u.gen
	u.state = State[T]{}
	if b.seed != nil {
		if v, ok := b.seed(); ok {
			u.state.Value = v
			u.state.Cached = true
		}
	}
	u.version++
	u.mu.Unlock()

	u.logger.Debug("starting sync", "channel", b.channel, "gen", gen)
	u.notify()

	u.startFetch(gen)

	if u.sub == nil {
		return
	}
	handle := u.sub.Subscribe(b.channel, func(ev domain.Event) {
		u.handleEvent(gen, ev)
	})
	u.mu.Lock()
	u.release = releaseOnce(handle)
	u.mu.Unlock()
}

// reset stops the unit and replaces its state with an empty snapshot
// carrying err.
func (u *Unit[T]) reset(err error) {
	u.lifecycle.Lock()
	u.teardown()
	u.mu.Lock()
	u.state = State[T]{Err: err}
	u.version++
	u.mu.Unlock()
	u.lifecycle.Unlock()

	u.notify()
}

// stop releases the subscription and cancels in-flight fetches. The last
// snapshot stays readable. Calling stop on a stopped unit does nothing.
func (u *Unit[T]) stop() {
	u.lifecycle.Lock()
	defer u.lifecycle.Unlock()
	u.teardown()
}

// teardown must be called with lifecycle held
func (u *Unit[T]) teardown() {
	u.mu.Lock()
	if u.b == nil {
		u.mu.Unlock()
		return
	}
	release, cancel := u.release, u.cancel
	u.release, u.cancel, u.b = nil, nil, nil
	u.gen++
	u.mu.Unlock()

	if release != nil {
		release()
	}
	if cancel != nil {
		cancel()
	}
	u.logger.Debug("stopped sync")
}

// startFetch issues a fetch for run gen on its own goroutine.
// It reports false when gen is no longer the active run.
func (u *Unit[T]) startFetch(gen uint64) bool {
	u.mu.Lock()
	if u.gen != gen || u.b == nil {
		u.mu.Unlock()
		return false
	}
	u.issued++
	seq := u.issued
	ctx, fetch, persist := u.ctx, u.b.fetch, u.b.persist
	u.inflight++
	u.mu.Unlock()

	go func() {
		defer u.fetchDone()

		if u.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, u.timeout)
			defer cancel()
		}
		value, err := fetch(ctx)

		u.mu.Lock()
		if u.gen != gen || seq < u.applied {
			u.mu.Unlock()
			u.logger.Debug("dropping stale fetch", "gen", gen, "seq", seq)
			return
		}
		u.applied = seq
		if err != nil {
			u.state.Err = err
		} else {
			u.state = State[T]{Value: value, Loaded: true}
		}
		u.version++
		u.mu.Unlock()

		if err != nil {
			u.logger.Warn("fetch failed", "error", err)
		} else if persist != nil {
			persist(value)
		}
		u.notify()
	}()
	return true
}

func (u *Unit[T]) fetchDone() {
	u.mu.Lock()
	u.inflight--
	if u.inflight == 0 {
		u.idle.Broadcast()
	}
	u.mu.Unlock()
}

// handleEvent runs on the subscriber's delivery goroutine. It reads the
// snapshot through the unit lock, so the subscription never needs renewing
// when the snapshot changes.
func (u *Unit[T]) handleEvent(gen uint64, ev domain.Event) {
	u.mu.Lock()
	if u.gen != gen || u.b == nil {
		u.mu.Unlock()
		return
	}
	b := u.b
	var (
		next    T
		patched bool
	)
	if b.apply != nil {
		next, patched = b.apply(ev, u.state.Value, u.policy)
	}
	if patched {
		u.state.Value = next
		u.state.Cached = false
		u.version++
	}
	u.mu.Unlock()

	if b.evict != nil {
		b.evict(ev)
	}

	if !patched {
		u.logger.Debug("event triggers refetch", "events", ev.Events)
		u.startFetch(gen)
		return
	}

	u.logger.Debug("applied event in place", "events", ev.Events)
	if b.persist != nil {
		b.persist(next)
	}
	u.notify()
}

// notify delivers the latest state to observers. One goroutine delivers at
// a time and keeps going until the newest version has been handed out, so
// observers see states in order and always end on the current one. A caller
// that finds a delivery in progress returns at once.
func (u *Unit[T]) notify() {
	u.deliverMu.Lock()
	if u.delivering {
		u.deliverMu.Unlock()
		return
	}
	u.delivering = true

	for {
		u.mu.Lock()
		s, version := u.state, u.version
		u.mu.Unlock()

		if version <= u.delivered {
			u.delivering = false
			u.deliverMu.Unlock()
			return
		}
		u.delivered = version
		u.deliverMu.Unlock()

		for _, o := range u.obs.snapshot() {
			o.StateChanged(s)
		}

		u.deliverMu.Lock()
	}
}

func releaseOnce(release func()) func() {
	if release == nil {
		return nil
	}
	var once sync.Once
	return func() { once.Do(release) }
}
