// Factory functions for rxstream
// 工厂函数：从静态数据、时间、事件源和延迟值创建 Observable
package rxstream

import (
	"fmt"
	"iter"
	"time"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Of 同步发射给定的值，然后完成
func Of[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// Range 发射从 start 开始的 count 个连续整数，然后完成
func Range(start, count int, options ...Option) Observable[int] {
	return Create(func(s *Subscriber[int]) {
		for i := 0; i < count; i++ {
			if s.Closed() {
				return
			}
			s.Next(start + i)
		}
		s.Complete()
	}, options...)
}

// Empty 创建一个空的Observable，立即完成
func Empty[T any](options ...Option) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.Complete()
	}, options...)
}

// Never 创建一个永不发射任何通知的Observable
func Never[T any](options ...Option) Observable[T] {
	return Create(func(*Subscriber[T]) {}, options...)
}

// ThrowError 创建一个立即发射错误的Observable，不发射值也不完成
func ThrowError[T any](err error, options ...Option) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.Error(err)
	}, options...)
}

// Iif 在订阅时执行 condition，并完全委托给 onTrue 或 onFalse
func Iif[T any](condition func() bool, onTrue, onFalse Observable[T]) Observable[T] {
	return Defer(func() Observable[T] {
		if condition() {
			return onTrue
		}
		return onFalse
	}, inherit(onTrue)...)
}

// Defer 延迟到订阅时才调用 factory，每次订阅都会重新调用
func Defer[T any](factory func() Observable[T], options ...Option) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		var src Observable[T]
		if err := catchPanic(func() error {
			src = factory()
			return nil
		}); err != nil {
			s.Error(err)
			return nil
		}
		if src == nil {
			s.Complete()
			return nil
		}
		subscribeInner(s.Add, src, s.Emit)
		return nil
	}, options...)
}

// ============================================================================
// 从数据源创建
// ============================================================================

// FromSlice 从切片创建Observable
func FromSlice[T any](values []T, options ...Option) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		for _, v := range values {
			if s.Closed() {
				return
			}
			s.Next(v)
		}
		s.Complete()
	}, options...)
}

// FromSeq 从迭代器创建Observable，每次订阅重新迭代
func FromSeq[T any](seq iter.Seq[T], options ...Option) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		for v := range seq {
			if s.Closed() {
				return
			}
			s.Next(v)
		}
		s.Complete()
	}, options...)
}

// FromPromise 从 Promise 创建Observable。
// Promise 的结果通过调度器投递；取消订阅会注销回调。
func FromPromise[T any](p *Promise[T], options ...Option) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		sched := s.Scheduler()
		tasks := NewSerialDisposable()
		cancel := p.Then(
			func(v T) {
				tasks.Set(sched.Schedule(func() {
					s.Next(v)
					s.Complete()
				}))
			},
			func(err error) {
				tasks.Set(sched.Schedule(func() {
					s.Error(err)
				}))
			},
		)
		return NewBaseDisposable(func() {
			cancel()
			tasks.Dispose()
		})
	}, options...)
}

// From 把切片、迭代器、Promise 或已有的 Observable 统一转换为 Observable。
// 其他类型会得到一个以 ErrUnsupportedSource 终止的 Observable。
func From[T any](source any, options ...Option) Observable[T] {
	switch src := source.(type) {
	case Observable[T]:
		return src
	case []T:
		return FromSlice(src, options...)
	case iter.Seq[T]:
		return FromSeq(src, options...)
	case func(yield func(T) bool):
		return FromSeq(iter.Seq[T](src), options...)
	case *Promise[T]:
		return FromPromise(src, options...)
	default:
		return ThrowError[T](fmt.Errorf("%w: %T", ErrUnsupportedSource, source), options...)
	}
}

// FromEventPattern 订阅时调用 addHandler 注册处理函数，取消订阅时调用 removeHandler 注销。
// addHandler 返回的令牌会原样传给 removeHandler。
func FromEventPattern[T, K any](addHandler func(handler func(T)) K, removeHandler func(handler func(T), token K), options ...Option) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		handler := func(v T) {
			s.Next(v)
		}
		token := addHandler(handler)
		if removeHandler == nil {
			return nil
		}
		return NewBaseDisposable(func() {
			removeHandler(handler, token)
		})
	}, options...)
}

// ============================================================================
// 时间相关工厂函数
// ============================================================================

// Interval 每隔 period 发射一个从 0 开始递增的整数，直到取消订阅。
// period 必须为正，否则以 ErrInvalidPeriod 终止
func Interval(period time.Duration, options ...Option) Observable[int] {
	return TimerWithPeriod(period, period, options...)
}

// Timer 在 delay 之后发射 0，然后完成
func Timer(delay time.Duration, options ...Option) Observable[int] {
	return NewObservable(func(s *Subscriber[int]) Disposable {
		return s.Scheduler().ScheduleWithDelay(func() {
			s.Next(0)
			s.Complete()
		}, delay)
	}, options...)
}

// TimerWithPeriod 在 delay 之后发射 0，之后每隔 period 发射 1, 2, ...，直到取消订阅。
// period <= 0 时不调度任何任务，订阅后立即以 ErrInvalidPeriod 终止
func TimerWithPeriod(delay, period time.Duration, options ...Option) Observable[int] {
	if period <= 0 {
		return ThrowError[int](fmt.Errorf("%w: %s", ErrInvalidPeriod, period), options...)
	}

	return NewObservable(func(s *Subscriber[int]) Disposable {
		sched := s.Scheduler()
		serial := NewSerialDisposable()
		counter := 0

		var tick func()
		tick = func() {
			if s.Closed() {
				return
			}
			n := counter
			counter++
			s.Next(n)
			if !s.Closed() {
				serial.Set(sched.ScheduleWithDelay(tick, period))
			}
		}

		serial.Set(sched.ScheduleWithDelay(tick, delay))
		return serial
	}, options...)
}
