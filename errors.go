// Error definitions for rxstream
// 错误定义：哨兵错误和 panic 恢复
package rxstream

import (
	"errors"
	"fmt"
)

// ============================================================================
// 哨兵错误
// ============================================================================

var (
	// ErrUnsupportedSource From 无法把参数转换为 Observable
	ErrUnsupportedSource = errors.New("rxstream: unsupported source type")
	// ErrInvalidPeriod Interval / TimerWithPeriod 的周期不是正数
	ErrInvalidPeriod = errors.New("rxstream: period must be positive")
	// ErrNilRejection Promise 以 nil 错误被拒绝
	ErrNilRejection = errors.New("rxstream: promise rejected with nil error")
)

// ============================================================================
// panic 恢复
// ============================================================================

// PanicError 包装从数据源、操作符函数或工厂函数中恢复的 panic 值
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxstream: recovered panic: %v", e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// catchPanic 执行 fn，把 panic 转换为 *PanicError
func catchPanic(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
