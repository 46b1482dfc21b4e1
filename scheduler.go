// Scheduler implementations for rxstream
// 调度器：时间相关数据源通过调度器注册回调，而不是直接使用计时器
package rxstream

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，控制任务执行时机和方式。
// 返回的 Disposable 用于取消尚未执行的任务。
type Scheduler interface {
	// Now 返回调度器的当前时间
	Now() time.Time
	// Schedule 调度一个任务
	Schedule(action func()) Disposable
	// ScheduleWithDelay 延迟调度一个任务
	ScheduleWithDelay(action func(), delay time.Duration) Disposable
	// ScheduleWithContext 带上下文的调度，上下文取消后任务不再执行
	ScheduleWithContext(ctx context.Context, action func()) Disposable
}

// ============================================================================
// 事件循环调度器 - Event Loop Scheduler
// ============================================================================

// EventLoopScheduler 在单个 goroutine 上按顺序执行所有任务，
// 延迟任务到期后进入同一个队列，因此所有回调都是串行的。
type EventLoopScheduler struct {
	log *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewEventLoopScheduler 创建事件循环调度器并启动循环
func NewEventLoopScheduler(log *slog.Logger) *EventLoopScheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &EventLoopScheduler{
		log:     log,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Now 返回当前时间
func (s *EventLoopScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 把任务加入循环队列
func (s *EventLoopScheduler) Schedule(action func()) Disposable {
	d := &baseDisposable{}
	s.post(func() {
		if !d.IsDisposed() {
			action()
		}
	})
	return d
}

// ScheduleWithDelay 延迟后把任务加入循环队列
func (s *EventLoopScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if delay <= 0 {
		return s.Schedule(action)
	}

	d := &baseDisposable{}
	timer := time.AfterFunc(delay, func() {
		s.post(func() {
			if !d.IsDisposed() {
				action()
			}
		})
	})
	d.action = func() {
		timer.Stop()
	}
	return d
}

// ScheduleWithContext 带上下文调度任务
func (s *EventLoopScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(func() {
		if ctx.Err() != nil {
			return
		}
		action()
	})
}

// Close 停止循环并等待循环 goroutine 退出，未执行的任务被丢弃
func (s *EventLoopScheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
	})
	<-s.stopped
}

func (s *EventLoopScheduler) post(action func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, action)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *EventLoopScheduler) loop() {
	defer close(s.stopped)

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, action := range batch {
				if r := SafeExecute(action); r != nil {
					s.log.Error("Recovered panic in scheduled action", "panic", r)
				}
			}
		}
	}
}

var defaultScheduler = sync.OnceValue(func() Scheduler {
	return NewEventLoopScheduler(slog.Default())
})

// DefaultScheduler 默认调度器，首次使用时启动一个共享的事件循环。
//
// 定时器和 Promise 的回调在循环 goroutine 上执行，而 Subscribe 和同步数据源
// 在调用者的 goroutine 上执行。组合操作符的状态不加锁，
// 因此同时包含两类数据源的流应当在循环上订阅和取消订阅（见 SubscribeOn）。
func DefaultScheduler() Scheduler {
	return defaultScheduler()
}

// SubscribeOn 把对 src 的订阅交给 scheduler 执行，
// 使订阅、同步发射和定时回调都在同一个调度器上串行进行。
// 在订阅任务执行之前取消订阅，src 不会被订阅。
func SubscribeOn[T any](src Observable[T], scheduler Scheduler) Observable[T] {
	return NewObservable(func(s *Subscriber[T]) Disposable {
		return scheduler.Schedule(func() {
			subscribeInner(s.Add, src, s.Emit)
		})
	}, inherit(src)...)
}

// ============================================================================
// 虚拟时间调度器 - Virtual Scheduler
// ============================================================================

// VirtualScheduler 用于测试的调度器，可以手动控制时间。
//
// 到期任务按 (到期时间, 调度顺序) 执行，结果是确定的。
// 任务在调用 AdvanceBy / AdvanceTo 的 goroutine 上执行。
type VirtualScheduler struct {
	mu    sync.Mutex
	epoch time.Time
	clock time.Duration
	seq   uint64
	queue []*virtualAction
}

// virtualAction 调度的动作
type virtualAction struct {
	due       time.Duration
	seq       uint64
	action    func()
	cancelled atomic.Bool
}

// NewVirtualScheduler 创建虚拟时间调度器，时间从 Unix 零点开始
func NewVirtualScheduler() *VirtualScheduler {
	return &VirtualScheduler{
		epoch: time.Unix(0, 0).UTC(),
	}
}

// Now 返回虚拟时间
func (s *VirtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch.Add(s.clock)
}

// Elapsed 返回从零点开始经过的虚拟时间
func (s *VirtualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Schedule 在当前虚拟时间调度任务，下一次推进时间时执行
func (s *VirtualScheduler) Schedule(action func()) Disposable {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 延迟调度任务
func (s *VirtualScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	a := &virtualAction{
		due:    s.clock + delay,
		seq:    s.seq,
		action: action,
	}
	s.seq++

	// 插入到正确的位置以保持时间顺序，同一时刻按调度顺序
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].due > a.due
	})
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = a
	s.mu.Unlock()

	return NewBaseDisposable(func() {
		a.cancelled.Store(true)
		s.remove(a)
	})
}

// ScheduleWithContext 带上下文调度任务
func (s *VirtualScheduler) ScheduleWithContext(ctx context.Context, action func()) Disposable {
	return s.Schedule(func() {
		if ctx.Err() != nil {
			return
		}
		action()
	})
}

// AdvanceBy 推进时间
func (s *VirtualScheduler) AdvanceBy(d time.Duration) {
	s.mu.Lock()
	target := s.clock + d
	s.mu.Unlock()
	s.AdvanceTo(target)
}

// AdvanceTo 推进时间到指定时刻（相对零点），执行期间到期的所有任务
func (s *VirtualScheduler) AdvanceTo(target time.Duration) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].due > target {
			if target > s.clock {
				s.clock = target
			}
			s.mu.Unlock()
			return
		}

		a := s.queue[0]
		s.queue = s.queue[1:]
		if a.due > s.clock {
			s.clock = a.due
		}
		// 解锁以允许action执行时调度新任务
		s.mu.Unlock()

		if !a.cancelled.Load() {
			a.action()
		}
	}
}

// Pending 返回尚未执行的任务数量
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// remove 移除动作
func (s *VirtualScheduler) remove(target *virtualAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.queue {
		if a == target {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}
