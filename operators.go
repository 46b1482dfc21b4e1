// Transformation operators for rxstream
// 转换操作符：Map, Scan, Pairwise, Filter, Take
package rxstream

// Pair Pairwise 发射的相邻值对
type Pair[T any] struct {
	Previous T
	Current  T
}

// forwardTerminal 把上游的终止通知转发给下游
func forwardTerminal[T, R any](s *Subscriber[R], item Item[T]) {
	switch item.Kind {
	case KindError:
		s.Error(item.Error)
	case KindComplete:
		s.Complete()
	}
}

// Map 转换操作符，fn 收到值和从 0 开始的序号。
// fn 返回错误或发生 panic 时，流以该错误终止。
func Map[T, R any](src Observable[T], fn func(value T, index int) (R, error)) Observable[R] {
	return NewObservable(func(s *Subscriber[R]) Disposable {
		index := 0
		subscribeInner(s.Add, src, func(item Item[T]) {
			if item.IsTerminal() {
				forwardTerminal(s, item)
				return
			}

			var result R
			err := catchPanic(func() (err error) {
				result, err = fn(item.Value, index)
				return err
			})
			index++
			if err != nil {
				s.Error(err)
				return
			}
			s.Next(result)
		})
		return nil
	}, inherit(src)...)
}

// Scan 累加操作符，发射每一次的中间累加结果（Reduce 只发射最终结果）
func Scan[T, R any](src Observable[T], fn func(acc R, value T, index int) (R, error), seed R) Observable[R] {
	return NewObservable(func(s *Subscriber[R]) Disposable {
		acc := seed
		index := 0
		subscribeInner(s.Add, src, func(item Item[T]) {
			if item.IsTerminal() {
				forwardTerminal(s, item)
				return
			}

			var next R
			err := catchPanic(func() (err error) {
				next, err = fn(acc, item.Value, index)
				return err
			})
			index++
			if err != nil {
				s.Error(err)
				return
			}
			acc = next
			s.Next(acc)
		})
		return nil
	}, inherit(src)...)
}

// Pairwise 把相邻的两个值成对发射。
// 第一个值只被缓存不发射；完成时不会为最后缓存的值补发。
func Pairwise[T any](src Observable[T]) Observable[Pair[T]] {
	return NewObservable(func(s *Subscriber[Pair[T]]) Disposable {
		var previous T
		hasPrevious := false
		subscribeInner(s.Add, src, func(item Item[T]) {
			if item.IsTerminal() {
				forwardTerminal(s, item)
				return
			}

			if !hasPrevious {
				previous = item.Value
				hasPrevious = true
				return
			}
			pair := Pair[T]{Previous: previous, Current: item.Value}
			previous = item.Value
			s.Next(pair)
		})
		return nil
	}, inherit(src)...)
}

// Filter 过滤操作符，谓词 panic 时流以 *PanicError 终止
func Filter[T any](src Observable[T], predicate Predicate[T]) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		subscribeInner(s.Add, src, func(item Item[T]) {
			if item.IsTerminal() {
				s.Emit(item)
				return
			}

			var ok bool
			if err := catchPanic(func() error {
				ok = predicate(item.Value)
				return nil
			}); err != nil {
				s.Error(err)
				return
			}
			if ok {
				s.Next(item.Value)
			}
		})
		return nil
	}, inherit(src)...)
}

// Take 取前 count 个值后完成并取消上游订阅；count <= 0 时直接完成，不订阅上游
func Take[T any](src Observable[T], count int) Observable[T] {
	if count <= 0 {
		return Empty[T](inherit(src)...)
	}

	return NewObservable(func(s *Subscriber[T]) Disposable {
		taken := 0
		subscribeInner(s.Add, src, func(item Item[T]) {
			if item.IsTerminal() {
				s.Emit(item)
				return
			}

			taken++
			s.Next(item.Value)
			if taken >= count {
				s.Complete()
			}
		})
		return nil
	}, inherit(src)...)
}
