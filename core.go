// Package rxstream provides a push-based reactive event-stream engine for Go
// 基于推模型的响应式事件流引擎，专注于多源时序组合、取消传播和一次性终止语义
package rxstream

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// Kind 通知类型
type Kind uint8

const (
	// KindNext 数据通知
	KindNext Kind = iota
	// KindError 错误通知（终止）
	KindError
	// KindComplete 完成通知（终止）
	KindComplete
)

// String 返回通知类型名称
func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Item 表示流中的一个通知：值、错误或完成信号
type Item[T any] struct {
	Kind  Kind
	Value T
	Error error
}

// IsError 检查是否为错误通知
func (item Item[T]) IsError() bool {
	return item.Kind == KindError
}

// IsComplete 检查是否为完成通知
func (item Item[T]) IsComplete() bool {
	return item.Kind == KindComplete
}

// IsTerminal 检查是否为终止通知
func (item Item[T]) IsTerminal() bool {
	return item.Kind != KindNext
}

// NextItem 创建数据通知
func NextItem[T any](value T) Item[T] {
	return Item[T]{Kind: KindNext, Value: value}
}

// ErrorItem 创建错误通知
func ErrorItem[T any](err error) Item[T] {
	return Item[T]{Kind: KindError, Error: err}
}

// CompleteItem 创建完成通知
func CompleteItem[T any]() Item[T] {
	return Item[T]{Kind: KindComplete}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// Observer 观察者函数类型
type Observer[T any] func(item Item[T])

// OnNext 处理下一个值的函数
type OnNext[T any] func(value T)

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤和分区
type Predicate[T any] func(value T) bool

// ============================================================================
// 生命周期管理
// ============================================================================

// Subscription 订阅接口，管理订阅的生命周期
type Subscription interface {
	// Unsubscribe 取消订阅，可重复调用
	Unsubscribe()
	// IsUnsubscribed 检查是否已取消订阅
	IsUnsubscribed() bool
}

// Disposable 可释放资源的接口
type Disposable interface {
	// Dispose 释放资源，可重复调用
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// baseDisposable 基础可释放资源实现
type baseDisposable struct {
	disposed int32
	action   func()
}

// NewBaseDisposable 创建基础可释放资源，action 最多执行一次
func NewBaseDisposable(action func()) Disposable {
	return &baseDisposable{
		action: action,
	}
}

// Dispose 释放资源
func (d *baseDisposable) Dispose() {
	if atomic.CompareAndSwapInt32(&d.disposed, 0, 1) {
		if d.action != nil {
			d.action()
		}
	}
}

// IsDisposed 检查是否已释放
func (d *baseDisposable) IsDisposed() bool {
	return atomic.LoadInt32(&d.disposed) == 1
}

// subscriptionDisposable 把任意 Subscription 适配为 Disposable
type subscriptionDisposable struct {
	sub Subscription
}

// AsDisposable 把 Subscription 适配为 Disposable
func AsDisposable(sub Subscription) Disposable {
	if d, ok := sub.(Disposable); ok {
		return d
	}
	return subscriptionDisposable{sub: sub}
}

func (d subscriptionDisposable) Dispose()         { d.sub.Unsubscribe() }
func (d subscriptionDisposable) IsDisposed() bool { return d.sub.IsUnsubscribed() }

// CompositeDisposable 组合式资源管理器。
//
// 释放时按添加顺序释放所有子资源；子资源的 panic 会被捕获并记录，不会向外传播。
// 释放之后再添加的资源会被立即释放。
type CompositeDisposable struct {
	mu        sync.Mutex
	disposed  bool
	resources []Disposable
	log       *slog.Logger
}

// NewCompositeDisposable 创建组合式资源管理器
func NewCompositeDisposable(log *slog.Logger) *CompositeDisposable {
	if log == nil {
		log = slog.Default()
	}
	return &CompositeDisposable{
		log: log,
	}
}

// Add 添加可释放资源
func (cd *CompositeDisposable) Add(disposable Disposable) {
	if disposable == nil {
		return
	}

	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		cd.release(disposable)
		return
	}
	cd.resources = append(cd.resources, disposable)
	cd.mu.Unlock()
}

// AddFunc 添加一个清理函数
func (cd *CompositeDisposable) AddFunc(action func()) {
	cd.Add(NewBaseDisposable(action))
}

// Remove 移除（不释放）资源
func (cd *CompositeDisposable) Remove(disposable Disposable) {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	for i, r := range cd.resources {
		if r == disposable {
			cd.resources = append(cd.resources[:i], cd.resources[i+1:]...)
			return
		}
	}
}

// Dispose 释放所有资源
func (cd *CompositeDisposable) Dispose() {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		return
	}
	cd.disposed = true
	resources := cd.resources
	cd.resources = nil
	cd.mu.Unlock()

	// 锁外释放，子资源可以安全地回调本对象
	for _, resource := range resources {
		cd.release(resource)
	}
}

// IsDisposed 检查是否已释放
func (cd *CompositeDisposable) IsDisposed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.disposed
}

// Len 返回当前持有的资源数量
func (cd *CompositeDisposable) Len() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.resources)
}

func (cd *CompositeDisposable) release(d Disposable) {
	if r := SafeExecute(d.Dispose); r != nil {
		cd.log.Error("Recovered panic during teardown", "panic", r)
	}
}

// SerialDisposable 同一时刻只持有一个资源，替换时释放旧资源
type SerialDisposable struct {
	mu       sync.Mutex
	disposed bool
	current  Disposable
}

// NewSerialDisposable 创建串行资源管理器
func NewSerialDisposable() *SerialDisposable {
	return &SerialDisposable{}
}

// Set 替换当前资源并释放旧资源；已释放时新资源会被立即释放
func (sd *SerialDisposable) Set(disposable Disposable) {
	sd.mu.Lock()
	if sd.disposed {
		sd.mu.Unlock()
		if disposable != nil {
			disposable.Dispose()
		}
		return
	}
	old := sd.current
	sd.current = disposable
	sd.mu.Unlock()

	if old != nil && old != disposable {
		old.Dispose()
	}
}

// Dispose 释放当前资源
func (sd *SerialDisposable) Dispose() {
	sd.mu.Lock()
	if sd.disposed {
		sd.mu.Unlock()
		return
	}
	sd.disposed = true
	current := sd.current
	sd.current = nil
	sd.mu.Unlock()

	if current != nil {
		current.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (sd *SerialDisposable) IsDisposed() bool {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.disposed
}

// ============================================================================
// 工具函数
// ============================================================================

// SafeExecute 安全执行函数，捕获panic
func SafeExecute(action func()) (recovered interface{}) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
		}
	}()

	action()
	return nil
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 配置结构
type Config struct {
	// Scheduler 时间相关数据源使用的调度器，为空时使用 DefaultScheduler()
	Scheduler Scheduler
	// Logger 日志记录器
	Logger *slog.Logger
	// ErrorHandler 处理没有错误回调的订阅所收到的错误
	ErrorHandler func(err error)
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		if opt != nil {
			opt.Apply(config)
		}
	}
	return config
}

// scheduler 返回配置的调度器
func (c *Config) scheduler() Scheduler {
	if c.Scheduler == nil {
		return DefaultScheduler()
	}
	return c.Scheduler
}

// handleUnhandled 上报没有错误回调的错误
func (c *Config) handleUnhandled(err error) {
	if c.ErrorHandler != nil {
		c.ErrorHandler(err)
		return
	}
	c.Logger.Error("Unhandled stream error", "err", err)
}

// options 把配置还原为选项，供派生 Observable 继承
func (c *Config) options() []Option {
	return []Option{configOption{config: *c}}
}

type configOption struct {
	config Config
}

func (o configOption) Apply(config *Config) {
	*config = o.config
}

// WithScheduler 创建使用指定调度器的选项
func WithScheduler(scheduler Scheduler) Option {
	return &schedulerOption{scheduler: scheduler}
}

// schedulerOption 调度器选项
type schedulerOption struct {
	scheduler Scheduler
}

// Apply 应用调度器选项
func (o *schedulerOption) Apply(config *Config) {
	config.Scheduler = o.scheduler
}

// WithLogger 指定日志记录器
func WithLogger(log *slog.Logger) Option {
	return loggerOption{log: log}
}

type loggerOption struct {
	log *slog.Logger
}

func (o loggerOption) Apply(config *Config) {
	if o.log != nil {
		config.Logger = o.log
	}
}

// WithErrorHandler 指定未处理错误的处理函数
func WithErrorHandler(handler func(err error)) Option {
	return errorHandlerOption{handler: handler}
}

type errorHandlerOption struct {
	handler func(err error)
}

func (o errorHandlerOption) Apply(config *Config) {
	config.ErrorHandler = o.handler
}
