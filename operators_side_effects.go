// Side effect operators for rxstream
// 副作用操作符：Tap, DoOnEach, Finalize, Log。值原样透传，不改变流的语义
package rxstream

import "log/slog"

// Tap 在每个通知转发给下游之前执行对应的回调，回调可以为 nil。
// 任何回调 panic 时流以 *PanicError 终止，包括错误和完成回调。
func Tap[T any](src Observable[T], onNext OnNext[T], onError OnError, onComplete OnComplete) Observable[T] {
	return DoOnEach(src, func(item Item[T]) {
		switch item.Kind {
		case KindNext:
			if onNext != nil {
				onNext(item.Value)
			}
		case KindError:
			if onError != nil {
				onError(item.Error)
			}
		case KindComplete:
			if onComplete != nil {
				onComplete()
			}
		}
	})
}

// DoOnEach 对每个通知（包括错误和完成）执行副作用操作
func DoOnEach[T any](src Observable[T], action func(Item[T])) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		subscribeInner(s.Add, src, func(item Item[T]) {
			if err := catchPanic(func() error {
				action(item)
				return nil
			}); err != nil {
				// 回调 panic 取代原来的通知；被取代的错误只记录日志
				if item.IsError() {
					s.Logger().Error("Side effect panicked on error notification", "err", item.Error, "panic", err)
				}
				s.Error(err)
				return
			}
			s.Emit(item)
		})
		return nil
	}, inherit(src)...)
}

// Finalize 在订阅结束时执行 action，无论是完成、错误还是取消订阅，只执行一次
func Finalize[T any](src Observable[T], action func()) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		subscribeInner(s.Add, src, s.Emit)
		return NewBaseDisposable(action)
	}, inherit(src)...)
}

// Log 把每个通知以 Debug 级别写入 log，name 用于区分数据源
func Log[T any](src Observable[T], log *slog.Logger, name string) Observable[T] {
	return DoOnEach(src, func(item Item[T]) {
		switch item.Kind {
		case KindNext:
			log.Debug("Stream next", "stream", name, "value", item.Value)
		case KindError:
			log.Debug("Stream error", "stream", name, "error", item.Error)
		case KindComplete:
			log.Debug("Stream complete", "stream", name)
		}
	})
}
