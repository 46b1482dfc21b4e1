// Subject implementations for rxstream
// 实现各种Subject类型：PublishSubject, BehaviorSubject。
// Subject 是热数据源：所有订阅者共享同一个发射过程。
package rxstream

import (
	"slices"
	"sync"
)

// ============================================================================
// PublishSubject - 发布主题
// ============================================================================

// PublishSubject 把值多播给当前的所有订阅者（热数据源）。
// 终止后新的订阅者会立即收到终止通知。
type PublishSubject[T any] struct {
	mu        sync.Mutex
	config    *Config
	observers []subjectObserver[T]
	nextID    uint64
	terminal  *Item[T]
}

type subjectObserver[T any] struct {
	id uint64
	s  *Subscriber[T]
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject[T any](options ...Option) *PublishSubject[T] {
	return &PublishSubject[T]{
		config: newConfig(options),
	}
}

// Subscribe 订阅观察者
func (ps *PublishSubject[T]) Subscribe(observer Observer[T]) Subscription {
	s := newSubscriber(observer, ps.config)
	ps.run(s)
	return s
}

// SubscribeWithCallbacks 使用回调函数订阅
func (ps *PublishSubject[T]) SubscribeWithCallbacks(onNext OnNext[T], onError OnError, onComplete OnComplete) Subscription {
	return ps.Subscribe(callbackObserver(ps.config, onNext, onError, onComplete))
}

func (ps *PublishSubject[T]) run(s *Subscriber[T]) {
	if s.Closed() {
		return
	}

	ps.mu.Lock()
	if ps.terminal != nil {
		item := *ps.terminal
		ps.mu.Unlock()
		s.Emit(item)
		return
	}
	id := ps.nextID
	ps.nextID++
	ps.observers = append(ps.observers, subjectObserver[T]{id: id, s: s})
	ps.mu.Unlock()

	s.AddFunc(func() {
		ps.remove(id)
	})
}

func (ps *PublishSubject[T]) getConfig() *Config {
	return ps.config
}

// OnNext 发送下一个值
func (ps *PublishSubject[T]) OnNext(value T) {
	ps.mu.Lock()
	if ps.terminal != nil {
		ps.mu.Unlock()
		return
	}
	observers := slices.Clone(ps.observers)
	ps.mu.Unlock()

	for _, o := range observers {
		o.s.Next(value)
	}
}

// OnError 发送错误
func (ps *PublishSubject[T]) OnError(err error) {
	ps.terminate(ErrorItem[T](err))
}

// OnComplete 发送完成信号
func (ps *PublishSubject[T]) OnComplete() {
	ps.terminate(CompleteItem[T]())
}

func (ps *PublishSubject[T]) terminate(item Item[T]) {
	ps.mu.Lock()
	if ps.terminal != nil {
		ps.mu.Unlock()
		return
	}
	ps.terminal = &item
	observers := ps.observers
	ps.observers = nil
	ps.mu.Unlock()

	for _, o := range observers {
		o.s.Emit(item)
	}
}

// AsObserver 返回把通知转发给本主题的观察者
func (ps *PublishSubject[T]) AsObserver() Observer[T] {
	return func(item Item[T]) {
		switch item.Kind {
		case KindNext:
			ps.OnNext(item.Value)
		case KindError:
			ps.OnError(item.Error)
		case KindComplete:
			ps.OnComplete()
		}
	}
}

// HasObservers 检查是否有观察者
func (ps *PublishSubject[T]) HasObservers() bool {
	return ps.ObserverCount() > 0
}

// ObserverCount 获取观察者数量
func (ps *PublishSubject[T]) ObserverCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.observers)
}

// remove 移除观察者
func (ps *PublishSubject[T]) remove(id uint64) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, o := range ps.observers {
		if o.id == id {
			ps.observers = append(ps.observers[:i], ps.observers[i+1:]...)
			return
		}
	}
}

// ============================================================================
// BehaviorSubject - 行为主题
// ============================================================================

// BehaviorSubject 行为主题，保存最新值，新订阅者会立即收到最新值（热数据源）
type BehaviorSubject[T any] struct {
	*PublishSubject[T]
	value T
}

// NewBehaviorSubject 创建新的行为主题
func NewBehaviorSubject[T any](initialValue T, options ...Option) *BehaviorSubject[T] {
	return &BehaviorSubject[T]{
		PublishSubject: NewPublishSubject[T](options...),
		value:          initialValue,
	}
}

// Subscribe 订阅观察者，立即发送当前值
func (bs *BehaviorSubject[T]) Subscribe(observer Observer[T]) Subscription {
	s := newSubscriber(observer, bs.config)
	bs.run(s)
	return s
}

// SubscribeWithCallbacks 使用回调函数订阅，立即发送当前值
func (bs *BehaviorSubject[T]) SubscribeWithCallbacks(onNext OnNext[T], onError OnError, onComplete OnComplete) Subscription {
	return bs.Subscribe(callbackObserver(bs.config, onNext, onError, onComplete))
}

func (bs *BehaviorSubject[T]) run(s *Subscriber[T]) {
	bs.mu.Lock()
	terminated := bs.terminal != nil
	current := bs.value
	bs.mu.Unlock()

	if !terminated {
		s.Next(current)
	}
	bs.PublishSubject.run(s)
}

// OnNext 更新当前值并发送给所有观察者
func (bs *BehaviorSubject[T]) OnNext(value T) {
	bs.mu.Lock()
	if bs.terminal != nil {
		bs.mu.Unlock()
		return
	}
	bs.value = value
	bs.mu.Unlock()

	bs.PublishSubject.OnNext(value)
}

// AsObserver 返回把通知转发给本主题的观察者
func (bs *BehaviorSubject[T]) AsObserver() Observer[T] {
	return func(item Item[T]) {
		switch item.Kind {
		case KindNext:
			bs.OnNext(item.Value)
		case KindError:
			bs.OnError(item.Error)
		case KindComplete:
			bs.OnComplete()
		}
	}
}

// Value 获取当前值
func (bs *BehaviorSubject[T]) Value() T {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.value
}
