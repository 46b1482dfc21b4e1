package rxstream_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"github.com/xinjiayu/rxstream"
	"github.com/xinjiayu/rxstream/rxtest"
)

func TestSubscriber_terminalIsFinal(t *testing.T) {
	src := rxstream.Create(func(s *rxstream.Subscriber[int]) {
		s.Next(1)
		s.Complete()
		s.Next(2)
		s.Error(errors.New("late"))
		s.Complete()
	})

	rec := rxtest.NewRecorder[int](nil)
	sub := src.Subscribe(rec.Observer())

	require.Equal(t, []int{1}, rec.Values())
	require.Equal(t, 1, rec.Terminals())
	require.True(t, rec.Completed())
	require.NoError(t, rec.Err())
	require.True(t, sub.IsUnsubscribed())
}

func TestSubscriber_errorThenComplete(t *testing.T) {
	boom := errors.New("boom")
	src := rxstream.Create(func(s *rxstream.Subscriber[int]) {
		s.Error(boom)
		s.Complete()
	})

	rec := rxtest.NewRecorder[int](nil)
	src.Subscribe(rec.Observer())

	require.Equal(t, 1, rec.Terminals())
	require.ErrorIs(t, rec.Err(), boom)
	require.False(t, rec.Completed())
}

func TestSubscribe_unsubscribeStopsDelivery(t *testing.T) {
	em := rxtest.NewEventEmitter[int]()
	src := rxstream.FromEventPattern(em.AddHandler, em.RemoveHandler)

	rec := rxtest.NewRecorder[int](nil)
	sub := src.Subscribe(rec.Observer())
	require.Equal(t, 1, em.HandlerCount())

	em.Emit(1)
	sub.Unsubscribe()
	em.Emit(2)

	require.Equal(t, []int{1}, rec.Values())
	require.Zero(t, rec.Terminals())
	require.Zero(t, em.HandlerCount())
	require.True(t, sub.IsUnsubscribed())
}

func TestSubscribe_unsubscribeIsIdempotent(t *testing.T) {
	teardowns := 0
	src := rxstream.NewObservable(func(s *rxstream.Subscriber[int]) rxstream.Disposable {
		return rxstream.NewBaseDisposable(func() {
			teardowns++
		})
	})

	sub := src.Subscribe(nil)
	sub.Unsubscribe()
	sub.Unsubscribe()

	require.Equal(t, 1, teardowns)
}

func TestSubscribe_teardownAfterSynchronousCompletion(t *testing.T) {
	teardowns := 0
	src := rxstream.NewObservable(func(s *rxstream.Subscriber[int]) rxstream.Disposable {
		s.Next(1)
		s.Complete()
		return rxstream.NewBaseDisposable(func() {
			teardowns++
		})
	})

	sub := src.Subscribe(nil)
	require.Equal(t, 1, teardowns)
	require.True(t, sub.IsUnsubscribed())
}

func TestSubscribe_sourcePanicBecomesError(t *testing.T) {
	src := rxstream.Create(func(s *rxstream.Subscriber[int]) {
		s.Next(1)
		panic("source exploded")
	}, rxstream.WithLogger(slogt.New(t)))

	rec := rxtest.NewRecorder[int](nil)
	require.NotPanics(t, func() {
		src.Subscribe(rec.Observer())
	})

	require.Equal(t, []int{1}, rec.Values())
	var pe *rxstream.PanicError
	require.ErrorAs(t, rec.Err(), &pe)
	require.Equal(t, "source exploded", pe.Value)
}

func TestSubscribe_teardownPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	src := rxstream.NewObservable(func(s *rxstream.Subscriber[int]) rxstream.Disposable {
		return rxstream.NewBaseDisposable(func() {
			panic("teardown exploded")
		})
	}, rxstream.WithLogger(log))

	sub := src.Subscribe(nil)
	require.NotPanics(t, sub.Unsubscribe)
	require.Contains(t, buf.String(), "Recovered panic during teardown")
}

func TestSubscribeWithCallbacks(t *testing.T) {
	t.Run("all callbacks", func(t *testing.T) {
		var got []int
		completed := false
		rxstream.Of(1, 2, 3).SubscribeWithCallbacks(
			func(v int) { got = append(got, v) },
			func(err error) { t.Fatalf("不应该有错误: %v", err) },
			func() { completed = true },
		)

		require.Equal(t, []int{1, 2, 3}, got)
		require.True(t, completed)
	})

	t.Run("missing error callback escalates", func(t *testing.T) {
		boom := errors.New("boom")
		var unhandled error

		rxstream.ThrowError[int](boom, rxstream.WithErrorHandler(func(err error) {
			unhandled = err
		})).SubscribeWithCallbacks(func(int) {}, nil, nil)

		require.ErrorIs(t, unhandled, boom)
	})

	t.Run("default handler logs", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		rxstream.ThrowError[int](errors.New("nobody listens"), rxstream.WithLogger(log)).
			SubscribeWithCallbacks(func(int) {}, nil, nil)

		require.Contains(t, buf.String(), "Unhandled stream error")
		require.Contains(t, buf.String(), "nobody listens")
	})

	t.Run("derived streams inherit the handler", func(t *testing.T) {
		boom := errors.New("boom")
		var unhandled error

		withHandler := rxstream.Create(func(s *rxstream.Subscriber[int]) {
			s.Error(boom)
		}, rxstream.WithErrorHandler(func(err error) { unhandled = err }))

		rxstream.Map(withHandler, func(v int, _ int) (int, error) {
			return v * 2, nil
		}).SubscribeWithCallbacks(func(int) {}, nil, nil)

		require.ErrorIs(t, unhandled, boom)
	})
}

func TestCompositeDisposable(t *testing.T) {
	cd := rxstream.NewCompositeDisposable(slogt.New(t))

	var order []string
	cd.AddFunc(func() { order = append(order, "a") })
	cd.AddFunc(func() { order = append(order, "b") })
	removed := rxstream.NewBaseDisposable(func() { order = append(order, "removed") })
	cd.Add(removed)
	cd.Remove(removed)
	require.Equal(t, 2, cd.Len())

	cd.Dispose()
	cd.Dispose()
	require.Equal(t, []string{"a", "b"}, order)
	require.True(t, cd.IsDisposed())
	require.False(t, removed.IsDisposed())

	late := rxstream.NewBaseDisposable(nil)
	cd.Add(late)
	require.True(t, late.IsDisposed())
}

func TestSerialDisposable(t *testing.T) {
	sd := rxstream.NewSerialDisposable()

	first := rxstream.NewBaseDisposable(nil)
	second := rxstream.NewBaseDisposable(nil)

	sd.Set(first)
	require.False(t, first.IsDisposed())

	sd.Set(second)
	require.True(t, first.IsDisposed())
	require.False(t, second.IsDisposed())

	sd.Dispose()
	require.True(t, second.IsDisposed())

	third := rxstream.NewBaseDisposable(nil)
	sd.Set(third)
	require.True(t, third.IsDisposed())
}
