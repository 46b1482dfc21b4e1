// Observable implementation for rxstream
// Observable 核心实现：订阅者包装、终止语义、内部订阅的所有权
package rxstream

import (
	"log/slog"
	"sync/atomic"
)

// ============================================================================
// Observable 核心接口
// ============================================================================

// Observable 可观察序列的核心接口。
//
// Observable 本身不持有状态，每次订阅都会重新执行数据源（冷语义）。
// Subject 和 Share 返回的 Observable 是热数据源，会在文档中注明。
type Observable[T any] interface {
	// Subscribe 订阅观察者
	Subscribe(observer Observer[T]) Subscription

	// SubscribeWithCallbacks 使用回调函数订阅。
	// onError 为空时错误会交给配置的 ErrorHandler，不会被静默吞掉。
	SubscribeWithCallbacks(onNext OnNext[T], onError OnError, onComplete OnComplete) Subscription
}

// OnSubscribe 数据源函数，返回的 Disposable 在订阅结束时释放，可以为 nil
type OnSubscribe[T any] func(subscriber *Subscriber[T]) Disposable

// subscriberRunner 包内 Observable 的实现，允许在数据源开始发射之前
// 把订阅者挂到上游的所有者上
type subscriberRunner[T any] interface {
	run(s *Subscriber[T])
	getConfig() *Config
}

// ============================================================================
// Subscriber 订阅者
// ============================================================================

// Subscriber 包装观察者并保证终止语义：
// 错误或完成之后的任何通知都会被丢弃；取消订阅之后也不再投递任何通知。
// 终止时先释放持有的全部资源，再投递终止通知。
type Subscriber[T any] struct {
	*CompositeDisposable
	observer Observer[T]
	config   *Config
	stopped  atomic.Bool
}

func newSubscriber[T any](observer Observer[T], config *Config) *Subscriber[T] {
	if observer == nil {
		observer = func(Item[T]) {}
	}
	return &Subscriber[T]{
		CompositeDisposable: NewCompositeDisposable(config.Logger),
		observer:            observer,
		config:              config,
	}
}

// Next 投递一个值
func (s *Subscriber[T]) Next(value T) {
	if s.Closed() {
		return
	}
	s.observer(NextItem(value))
}

// Error 投递错误并终止
func (s *Subscriber[T]) Error(err error) {
	s.terminate(ErrorItem[T](err))
}

// Complete 投递完成信号并终止
func (s *Subscriber[T]) Complete() {
	s.terminate(CompleteItem[T]())
}

// Emit 按通知类型投递
func (s *Subscriber[T]) Emit(item Item[T]) {
	switch item.Kind {
	case KindNext:
		s.Next(item.Value)
	case KindError:
		s.Error(item.Error)
	case KindComplete:
		s.Complete()
	}
}

func (s *Subscriber[T]) terminate(item Item[T]) {
	if s.IsDisposed() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.CompositeDisposable.Dispose()
	s.observer(item)
}

// Closed 是否已终止或已取消订阅
func (s *Subscriber[T]) Closed() bool {
	return s.stopped.Load() || s.IsDisposed()
}

// Unsubscribe 取消订阅
func (s *Subscriber[T]) Unsubscribe() {
	s.Dispose()
}

// IsUnsubscribed 检查是否已取消订阅（包括已终止）
func (s *Subscriber[T]) IsUnsubscribed() bool {
	return s.IsDisposed()
}

// Scheduler 返回该订阅使用的调度器
func (s *Subscriber[T]) Scheduler() Scheduler {
	return s.config.scheduler()
}

// Logger 返回该订阅使用的日志记录器
func (s *Subscriber[T]) Logger() *slog.Logger {
	return s.config.Logger
}

// ============================================================================
// Observable 核心实现
// ============================================================================

// observableImpl Observable的核心实现
type observableImpl[T any] struct {
	source OnSubscribe[T]
	config *Config
}

// NewObservable 创建新的Observable
func NewObservable[T any](source OnSubscribe[T], options ...Option) Observable[T] {
	return &observableImpl[T]{
		source: source,
		config: newConfig(options),
	}
}

// Create 从发射函数创建Observable，适用于不需要清理资源的数据源
func Create[T any](emitter func(subscriber *Subscriber[T]), options ...Option) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		emitter(s)
		return nil
	}, options...)
}

// Subscribe 订阅观察者
func (o *observableImpl[T]) Subscribe(observer Observer[T]) Subscription {
	s := newSubscriber(observer, o.config)
	o.run(s)
	return s
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *observableImpl[T]) SubscribeWithCallbacks(onNext OnNext[T], onError OnError, onComplete OnComplete) Subscription {
	return o.Subscribe(callbackObserver(o.config, onNext, onError, onComplete))
}

func (o *observableImpl[T]) run(s *Subscriber[T]) {
	if s.Closed() {
		return
	}

	var teardown Disposable
	if err := catchPanic(func() error {
		teardown = o.source(s)
		return nil
	}); err != nil {
		s.Error(err)
	}

	// 同步终止后 Add 会立即释放 teardown
	s.Add(teardown)
}

func (o *observableImpl[T]) getConfig() *Config {
	return o.config
}

// ============================================================================
// 内部工具函数
// ============================================================================

// subscribeInner 订阅上游 src，在上游开始发射之前通过 attach 把内部订阅交给所有者。
// 这样上游同步发射期间下游的取消或终止也能立即传递到上游。
func subscribeInner[T any](attach func(Disposable), src Observable[T], observer Observer[T]) Subscription {
	if r, ok := src.(subscriberRunner[T]); ok {
		s := newSubscriber(observer, r.getConfig())
		attach(s)
		r.run(s)
		return s
	}

	sub := src.Subscribe(observer)
	attach(AsDisposable(sub))
	return sub
}

// inherit 派生 Observable 继承第一个上游的配置
func inherit[T any](sources ...Observable[T]) []Option {
	if len(sources) == 0 {
		return nil
	}
	if r, ok := sources[0].(subscriberRunner[T]); ok {
		return r.getConfig().options()
	}
	return nil
}

// callbackObserver 把三个回调组合成观察者
func callbackObserver[T any](config *Config, onNext OnNext[T], onError OnError, onComplete OnComplete) Observer[T] {
	return func(item Item[T]) {
		switch item.Kind {
		case KindNext:
			if onNext != nil {
				onNext(item.Value)
			}
		case KindError:
			if onError != nil {
				onError(item.Error)
			} else {
				config.handleUnhandled(item.Error)
			}
		case KindComplete:
			if onComplete != nil {
				onComplete()
			}
		}
	}
}
