// Combination operators for rxstream
// 组合操作符实现，包含Concat, Merge, Zip, CombineLatest, ForkJoin, Race, Partition
package rxstream

import (
	"github.com/bits-and-blooms/bitset"
)

// ============================================================================
// 组合操作符实现
//
// 每个组合操作符的状态（缓冲区、最新值、标志位）都是订阅内的局部变量，
// 同一个 Observable 的不同订阅互不共享。内部订阅都挂在外部订阅者上，
// 外部订阅者终止或被取消时会先释放全部内部订阅。
// ============================================================================

// Concat 连接操作符，按顺序订阅每个Observable。
// 前一个完成后才订阅下一个；任一错误立即终止，后续数据源不再订阅。
func Concat[T any](sources ...Observable[T]) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		current := NewSerialDisposable()
		s.Add(current)

		index := 0
		subscribing := false
		completedWhileSubscribing := false

		var subscribeNext func()
		var observer Observer[T]

		observer = func(item Item[T]) {
			switch item.Kind {
			case KindNext:
				s.Next(item.Value)
			case KindError:
				s.Error(item.Error)
			case KindComplete:
				index++
				if subscribing {
					// 同步完成，交给外层循环处理，避免递归
					completedWhileSubscribing = true
					return
				}
				subscribeNext()
			}
		}

		subscribeNext = func() {
			for {
				if s.Closed() {
					return
				}
				if index >= len(sources) {
					s.Complete()
					return
				}

				completedWhileSubscribing = false
				subscribing = true
				subscribeInner(current.Set, sources[index], observer)
				subscribing = false

				if !completedWhileSubscribing {
					return
				}
			}
		}

		subscribeNext()
		return nil
	}, inherit(sources...)...)
}

// Merge 合并操作符，同时订阅所有Observable，按到达顺序转发值。
// 全部完成后才完成；任一错误会先取消其余内部订阅再向下游投递。
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		active := len(sources)
		if active == 0 {
			s.Complete()
			return nil
		}

		for _, src := range sources {
			if s.Closed() {
				break
			}
			subscribeInner(s.Add, src, func(item Item[T]) {
				switch item.Kind {
				case KindNext:
					s.Next(item.Value)
				case KindError:
					s.Error(item.Error)
				case KindComplete:
					active--
					if active == 0 {
						s.Complete()
					}
				}
			})
		}
		return nil
	}, inherit(sources...)...)
}

// Zip 压缩操作符，按序号把各个数据源的值组合为切片（按数据源顺序）。
//
// 每个数据源维护一个 FIFO 缓冲区，所有缓冲区都非空时弹出队首并发射。
// 任一数据源完成且缓冲区为空后整体完成，其余无法配对的值被丢弃。
func Zip[T any](sources ...Observable[T]) Observable[[]T] {
	return NewObservable(func(s *Subscriber[[]T]) Disposable {
		n := len(sources)
		if n == 0 {
			s.Complete()
			return nil
		}

		buffers := make([][]T, n)
		completed := bitset.New(uint(n))

		exhausted := func() bool {
			for i := range buffers {
				if completed.Test(uint(i)) && len(buffers[i]) == 0 {
					return true
				}
			}
			return false
		}

		ready := func() bool {
			for _, buf := range buffers {
				if len(buf) == 0 {
					return false
				}
			}
			return true
		}

		for i, src := range sources {
			if s.Closed() {
				break
			}
			subscribeInner(s.Add, src, func(item Item[T]) {
				switch item.Kind {
				case KindNext:
					buffers[i] = append(buffers[i], item.Value)
					for ready() && !s.Closed() {
						tuple := make([]T, n)
						for j := range buffers {
							tuple[j] = buffers[j][0]
							var zero T
							buffers[j][0] = zero
							buffers[j] = buffers[j][1:]
						}
						s.Next(tuple)
					}
					if exhausted() {
						s.Logger().Debug("Zip source exhausted, completing")
						s.Complete()
					}
				case KindError:
					s.Error(item.Error)
				case KindComplete:
					completed.Set(uint(i))
					if len(buffers[i]) == 0 {
						s.Complete()
					}
				}
			})
		}
		return nil
	}, inherit(sources...)...)
}

// CombineLatest 组合最新值操作符。
//
// 所有数据源都至少发射过一次之后，任一数据源每发射一次就发射一次全部最新值。
// 全部完成后完成；某个数据源没有发射过就完成时，整体立即完成（永远不可能发射）。
func CombineLatest[T any](sources ...Observable[T]) Observable[[]T] {
	return NewObservable(func(s *Subscriber[[]T]) Disposable {
		n := len(sources)
		if n == 0 {
			s.Complete()
			return nil
		}

		latest := make([]T, n)
		hasValue := bitset.New(uint(n))
		completed := bitset.New(uint(n))

		for i, src := range sources {
			if s.Closed() {
				break
			}
			subscribeInner(s.Add, src, func(item Item[T]) {
				switch item.Kind {
				case KindNext:
					latest[i] = item.Value
					hasValue.Set(uint(i))
					if hasValue.Count() == uint(n) {
						tuple := make([]T, n)
						copy(tuple, latest)
						s.Next(tuple)
					}
				case KindError:
					s.Error(item.Error)
				case KindComplete:
					completed.Set(uint(i))
					if !hasValue.Test(uint(i)) || completed.Count() == uint(n) {
						s.Complete()
					}
				}
			})
		}
		return nil
	}, inherit(sources...)...)
}

// ForkJoin 等待所有数据源完成，然后发射由各自最后一个值组成的切片并完成。
//
// 某个数据源永不完成时 ForkJoin 永不发射也永不完成。
// 某个数据源没有发射任何值就完成时，不会发射任何组合值：
// ForkJoin 立即完成并取消其余数据源，而不是发射一个残缺的切片。
func ForkJoin[T any](sources ...Observable[T]) Observable[[]T] {
	return NewObservable(func(s *Subscriber[[]T]) Disposable {
		n := len(sources)
		if n == 0 {
			s.Complete()
			return nil
		}

		last := make([]T, n)
		hasValue := bitset.New(uint(n))
		completed := bitset.New(uint(n))

		for i, src := range sources {
			if s.Closed() {
				break
			}
			subscribeInner(s.Add, src, func(item Item[T]) {
				switch item.Kind {
				case KindNext:
					last[i] = item.Value
					hasValue.Set(uint(i))
				case KindError:
					s.Error(item.Error)
				case KindComplete:
					if !hasValue.Test(uint(i)) {
						s.Logger().Debug("ForkJoin source completed without a value", "source", i)
						s.Complete()
						return
					}
					completed.Set(uint(i))
					if completed.Count() == uint(n) {
						tuple := make([]T, n)
						copy(tuple, last)
						s.Next(tuple)
						s.Complete()
					}
				}
			})
		}
		return nil
	}, inherit(sources...)...)
}

// Race 同时订阅所有数据源，最先发出任何通知（值、错误或完成）的数据源获胜。
// 其余数据源立即被取消订阅，之后只转发获胜者的通知。
func Race[T any](sources ...Observable[T]) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		winner := -1
		subs := make([]Subscription, len(sources))

		for i, src := range sources {
			if winner >= 0 || s.Closed() {
				break
			}
			subs[i] = subscribeInner(s.Add, src, func(item Item[T]) {
				if winner < 0 {
					winner = i
					s.Logger().Debug("Race winner selected", "source", i)
					for j, sub := range subs {
						if j != i && sub != nil {
							sub.Unsubscribe()
						}
					}
				}
				if winner == i {
					s.Emit(item)
				}
			})
		}
		return nil
	}, inherit(sources...)...)
}

// Partition 把一个数据源拆分为满足谓词和不满足谓词的两个 Observable。
//
// 两个输出是同一数据源上的互补过滤视图，各自独立订阅上游，
// 因此每个值只会被路由到其中一个输出，先订阅的输出不会让后订阅的输出丢值
// （例如 BehaviorSubject 对每个订阅都会重放当前值）。
// 需要单一拆分点时，对热数据源（Subject、Share）分区即可，两个输出随上游一起完成或出错。
func Partition[T any](src Observable[T], predicate Predicate[T]) (matched, rest Observable[T]) {
	matched = Filter(src, predicate)
	rest = Filter(src, func(v T) bool {
		return !predicate(v)
	})
	return matched, rest
}
