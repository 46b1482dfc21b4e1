// Package rxtest contains deterministic fixtures for testing code built on rxstream.
//
// A Recorder captures notifications with virtual timestamps.
// A Spy counts subscriptions and teardowns of a wrapped source.
package rxtest

import (
	"sync"
	"time"

	"github.com/xinjiayu/rxstream"
)

// Record is one notification captured by a Recorder.
type Record[T any] struct {
	// At is the virtual time at which the notification arrived.
	// It is zero when the Recorder has no scheduler.
	At   time.Duration
	Item rxstream.Item[T]
}

// Recorder records notifications for tests and diagnostics.
//
// Recorder is safe under concurrent use.
type Recorder[T any] struct {
	sched *rxstream.VirtualScheduler

	mu      sync.Mutex
	records []Record[T]
}

// NewRecorder constructs a Recorder.
// If sched is non-nil, each record is stamped with sched.Elapsed().
func NewRecorder[T any](sched *rxstream.VirtualScheduler) *Recorder[T] {
	return &Recorder[T]{sched: sched}
}

// Observer returns an observer that appends to r.
func (r *Recorder[T]) Observer() rxstream.Observer[T] {
	return func(item rxstream.Item[T]) {
		var at time.Duration
		if r.sched != nil {
			at = r.sched.Elapsed()
		}
		r.mu.Lock()
		r.records = append(r.records, Record[T]{At: at, Item: item})
		r.mu.Unlock()
	}
}

// Records returns a snapshot copy of every recorded notification.
func (r *Recorder[T]) Records() []Record[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record[T], len(r.records))
	copy(out, r.records)
	return out
}

// Values returns the recorded next values in arrival order.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Item.Kind == rxstream.KindNext {
			out = append(out, rec.Item.Value)
		}
	}
	return out
}

// Times returns the virtual arrival times of the recorded next values.
func (r *Recorder[T]) Times() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Item.Kind == rxstream.KindNext {
			out = append(out, rec.At)
		}
	}
	return out
}

// Completed reports whether a completion was recorded.
func (r *Recorder[T]) Completed() bool {
	return r.countKind(rxstream.KindComplete) > 0
}

// Err returns the recorded error, or nil.
func (r *Recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Item.Kind == rxstream.KindError {
			return rec.Item.Error
		}
	}
	return nil
}

// Terminals returns how many terminal notifications were recorded.
// A correct stream never records more than one.
func (r *Recorder[T]) Terminals() int {
	return r.countKind(rxstream.KindError) + r.countKind(rxstream.KindComplete)
}

// Len returns the number of recorded notifications of any kind.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Recorder[T]) countKind(k rxstream.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Item.Kind == k {
			n++
		}
	}
	return n
}
