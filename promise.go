// Promise implementation for rxstream
// 一次性的延迟值：最多被兑现或拒绝一次，通过 FromPromise / From 接入 Observable
package rxstream

import "sync"

// ============================================================================
// Promise - 延迟值
// ============================================================================

// Promise 最多被兑现（值）或拒绝（错误）一次的延迟值。
//
// 与 Observable 不同，Promise 是立即执行的：生产者已经在运行，
// 所有处理函数看到的都是同一个结果。
type Promise[T any] struct {
	mu       sync.Mutex
	settled  bool
	value    T
	err      error
	nextID   uint64
	handlers []promiseHandler[T]
}

type promiseHandler[T any] struct {
	id          uint64
	onFulfilled func(T)
	onRejected  func(error)
}

// NewPromise 创建未完成的 Promise
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// ResolvedPromise 创建已经以 v 兑现的 Promise
func ResolvedPromise[T any](v T) *Promise[T] {
	p := NewPromise[T]()
	p.Resolve(v)
	return p
}

// RejectedPromise 创建已经以 err 拒绝的 Promise
func RejectedPromise[T any](err error) *Promise[T] {
	p := NewPromise[T]()
	p.Reject(err)
	return p
}

// Resolve 以 v 兑现，已经完成时返回 false
func (p *Promise[T]) Resolve(v T) bool {
	return p.settle(v, nil)
}

// Reject 以 err 拒绝，已经完成时返回 false。
// err 为 nil 时按 ErrNilRejection 拒绝，而不是当作兑现
func (p *Promise[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.value = v
	p.err = err
	handlers := p.handlers
	p.handlers = nil
	p.mu.Unlock()

	for _, h := range handlers {
		p.dispatch(h)
	}
	return true
}

// Then 注册结果处理函数。
// 已经完成时对应的处理函数在 Then 返回前执行；
// 返回的 cancel 在处理函数尚未执行时注销它们。
func (p *Promise[T]) Then(onFulfilled func(T), onRejected func(error)) (cancel func()) {
	p.mu.Lock()
	h := promiseHandler[T]{
		id:          p.nextID,
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
	}
	p.nextID++

	if p.settled {
		p.mu.Unlock()
		p.dispatch(h)
		return func() {}
	}

	p.handlers = append(p.handlers, h)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, existing := range p.handlers {
			if existing.id == h.id {
				p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
				return
			}
		}
	}
}

// Settled 是否已经兑现或拒绝
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

func (p *Promise[T]) dispatch(h promiseHandler[T]) {
	if p.err != nil {
		if h.onRejected != nil {
			h.onRejected(p.err)
		}
		return
	}
	if h.onFulfilled != nil {
		h.onFulfilled(p.value)
	}
}
