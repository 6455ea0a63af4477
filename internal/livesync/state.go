package livesync

import "sync"

// State is the observable snapshot of a sync unit
type State[T any] struct {
	Value  T     // Last known value
	Loaded bool  // A fetch has succeeded since the unit was (re)started
	Err    error // Outcome of the latest fetch; nil after a success
	Cached bool  // Value came from the snapshot store and has not been confirmed yet
}

// Observer receives state changes. Calls are made outside the unit's lock
// from fetch and event goroutines, so implementations must not block.
type Observer[T any] interface {
	StateChanged(State[T])
}

// ObserverFunc adapts a function to Observer
type ObserverFunc[T any] func(State[T])

func (f ObserverFunc[T]) StateChanged(s State[T]) { f(s) }

// observers is a registry with idempotent removal
type observers[T any] struct {
	mu   sync.Mutex
	subs map[int]Observer[T]
	next int
}

func (o *observers[T]) add(obs Observer[T]) func() {
	if obs == nil {
		return func() {}
	}
	o.mu.Lock()
	if o.subs == nil {
		o.subs = make(map[int]Observer[T])
	}
	id := o.next
	o.next++
	o.subs[id] = obs
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers[T]) snapshot() []Observer[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.subs) == 0 {
		return nil
	}
	list := make([]Observer[T], 0, len(o.subs))
	for _, obs := range o.subs {
		list = append(list, obs)
	}
	return list
}
