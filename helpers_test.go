package rxstream_test

import (
	"testing"
	"time"

	"github.com/xinjiayu/rxstream"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// failAfter 在 d 之后发射 err
func failAfter[T any](vs *rxstream.VirtualScheduler, d time.Duration, err error) rxstream.Observable[T] {
	return rxstream.NewObservable(func(s *rxstream.Subscriber[T]) rxstream.Disposable {
		return vs.ScheduleWithDelay(func() {
			s.Error(err)
		}, d)
	}, rxstream.WithScheduler(vs))
}

// completeAfter 在 d 之后完成，不发射任何值
func completeAfter[T any](vs *rxstream.VirtualScheduler, d time.Duration) rxstream.Observable[T] {
	return rxstream.NewObservable(func(s *rxstream.Subscriber[T]) rxstream.Disposable {
		return vs.ScheduleWithDelay(s.Complete, d)
	}, rxstream.WithScheduler(vs))
}
