// Multicast support for rxstream
// 引用计数的多播：第一个订阅者连接上游，最后一个订阅者取消时断开
package rxstream

import "sync"

// shareState Share 的连接状态，所有订阅者共享
type shareState[T any] struct {
	mu         sync.Mutex
	subject    *PublishSubject[T]
	connection *CompositeDisposable
	refCount   int
}

// Share 把冷数据源转换为引用计数的热数据源。
//
// 第一个订阅者触发对上游的唯一一次订阅，之后的订阅者共享同一个发射过程；
// 订阅者数量降为 0 时断开上游。上游终止后，下一个订阅者会重新连接。
func Share[T any](src Observable[T]) Observable[T] {
	state := &shareState[T]{}

	return NewObservable(func(s *Subscriber[T]) Disposable {
		state.mu.Lock()
		if state.subject == nil {
			state.subject = NewPublishSubject[T](inherit(src)...)
		}
		subject := state.subject
		state.refCount++
		var connection *CompositeDisposable
		if state.refCount == 1 {
			connection = NewCompositeDisposable(s.Logger())
			state.connection = connection
		}
		state.mu.Unlock()

		subscribeInner(s.Add, Observable[T](subject), s.Emit)

		if connection != nil {
			forward := subject.AsObserver()
			subscribeInner(connection.Add, src, func(item Item[T]) {
				if item.IsTerminal() {
					state.reset(subject)
				}
				forward(item)
			})
		}

		return NewBaseDisposable(func() {
			state.release(subject)
		})
	}, inherit(src)...)
}

// reset 上游终止后清空连接状态
func (st *shareState[T]) reset(subject *PublishSubject[T]) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.subject != subject {
		return
	}
	st.subject = nil
	st.connection = nil
	st.refCount = 0
}

// release 订阅者离开；最后一个离开时断开上游
func (st *shareState[T]) release(subject *PublishSubject[T]) {
	st.mu.Lock()
	if st.subject != subject {
		st.mu.Unlock()
		return
	}
	st.refCount--
	if st.refCount > 0 {
		st.mu.Unlock()
		return
	}
	connection := st.connection
	st.subject = nil
	st.connection = nil
	st.mu.Unlock()

	if connection != nil {
		connection.Dispose()
	}
}
