package rxtest

import (
	"sync"
	"time"

	"github.com/xinjiayu/rxstream"
)

// Spy wraps an Observable and counts how often it is subscribed and torn down.
type Spy[T any] struct {
	src   rxstream.Observable[T]
	sched *rxstream.VirtualScheduler

	mu           sync.Mutex
	subscribes   int
	teardowns    int
	subscribedAt []time.Duration
}

// NewSpy constructs a Spy around src.
// If sched is non-nil, subscribe times are taken from sched.Elapsed().
func NewSpy[T any](src rxstream.Observable[T], sched *rxstream.VirtualScheduler) *Spy[T] {
	return &Spy[T]{src: src, sched: sched}
}

// Observable returns the instrumented Observable.
// Every subscription to it is one subscription to the wrapped source.
func (sp *Spy[T]) Observable() rxstream.Observable[T] {
	return rxstream.NewObservable(func(s *rxstream.Subscriber[T]) rxstream.Disposable {
		var at time.Duration
		if sp.sched != nil {
			at = sp.sched.Elapsed()
		}
		sp.mu.Lock()
		sp.subscribes++
		sp.subscribedAt = append(sp.subscribedAt, at)
		sp.mu.Unlock()

		inner := sp.src.Subscribe(s.Emit)
		return rxstream.NewBaseDisposable(func() {
			sp.mu.Lock()
			sp.teardowns++
			sp.mu.Unlock()
			inner.Unsubscribe()
		})
	})
}

// Subscribes returns the number of subscriptions so far.
func (sp *Spy[T]) Subscribes() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.subscribes
}

// Teardowns returns the number of teardowns so far,
// whether caused by unsubscription or by a terminal notification.
func (sp *Spy[T]) Teardowns() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.teardowns
}

// SubscribedAt returns the virtual time of every subscription.
func (sp *Spy[T]) SubscribedAt() []time.Duration {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]time.Duration, len(sp.subscribedAt))
	copy(out, sp.subscribedAt)
	return out
}

// Ticks returns a cold Observable that emits values[i] at (i+1)*period
// on sched and completes together with the last value.
func Ticks[T any](sched rxstream.Scheduler, period time.Duration, values ...T) rxstream.Observable[T] {
	return rxstream.Map(
		rxstream.Take(rxstream.Interval(period, rxstream.WithScheduler(sched)), len(values)),
		func(i int, _ int) (T, error) {
			return values[i], nil
		},
	)
}
