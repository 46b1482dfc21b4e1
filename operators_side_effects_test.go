package rxstream_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xinjiayu/rxstream"
	"github.com/xinjiayu/rxstream/rxtest"
)

func TestTap(t *testing.T) {
	var seen []int
	completed := false
	src := rxstream.Tap(rxstream.Of(1, 2),
		func(v int) { seen = append(seen, v) },
		nil,
		func() { completed = true },
	)

	rec := rxtest.NewRecorder[int](nil)
	src.Subscribe(rec.Observer())

	require.Equal(t, []int{1, 2}, seen)
	require.Equal(t, []int{1, 2}, rec.Values())
	require.True(t, completed)
	require.True(t, rec.Completed())
}

func TestTap_panicTerminates(t *testing.T) {
	src := rxstream.Tap(rxstream.Of(1, 2), func(v int) {
		if v == 2 {
			panic("tap exploded")
		}
	}, nil, nil)

	rec := rxtest.NewRecorder[int](nil)
	src.Subscribe(rec.Observer())

	require.Equal(t, []int{1}, rec.Values())
	var pe *rxstream.PanicError
	require.ErrorAs(t, rec.Err(), &pe)
}

func TestDoOnEach(t *testing.T) {
	boom := errors.New("boom")
	var kinds []rxstream.Kind
	src := rxstream.DoOnEach(rxstream.Concat(rxstream.Of(1), rxstream.ThrowError[int](boom)), func(item rxstream.Item[int]) {
		kinds = append(kinds, item.Kind)
	})

	rec := rxtest.NewRecorder[int](nil)
	src.Subscribe(rec.Observer())

	require.Equal(t, []rxstream.Kind{rxstream.KindNext, rxstream.KindError}, kinds)
	require.ErrorIs(t, rec.Err(), boom)
}

func TestFinalize(t *testing.T) {
	t.Run("after completion", func(t *testing.T) {
		calls := 0
		rxstream.Finalize(rxstream.Of(1, 2), func() { calls++ }).Subscribe(nil)
		require.Equal(t, 1, calls)
	})

	t.Run("after unsubscribe", func(t *testing.T) {
		vs := rxstream.NewVirtualScheduler()
		calls := 0
		sub := rxstream.Finalize(rxstream.Interval(time.Second, rxstream.WithScheduler(vs)), func() {
			calls++
		}).Subscribe(nil)

		vs.AdvanceBy(3 * time.Second)
		require.Zero(t, calls)

		sub.Unsubscribe()
		sub.Unsubscribe()
		require.Equal(t, 1, calls)
	})
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rec := rxtest.NewRecorder[string](nil)
	rxstream.Log(rxstream.Of("A1"), log, "A").Subscribe(rec.Observer())

	require.Equal(t, []string{"A1"}, rec.Values())
	require.Contains(t, buf.String(), `msg="Stream next" stream=A value=A1`)
	require.Contains(t, buf.String(), `msg="Stream complete" stream=A`)
}

func TestTap_terminalCallbackPanic(t *testing.T) {
	t.Run("complete callback", func(t *testing.T) {
		src := rxstream.Tap(rxstream.Of(1), nil, nil, func() {
			panic("complete callback exploded")
		})

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		require.Equal(t, []int{1}, rec.Values())
		require.False(t, rec.Completed())
		require.Equal(t, 1, rec.Terminals())
		var pe *rxstream.PanicError
		require.ErrorAs(t, rec.Err(), &pe)
	})

	t.Run("error callback", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))
		boom := errors.New("boom")

		src := rxstream.Tap(rxstream.ThrowError[int](boom, rxstream.WithLogger(log)), nil, func(error) {
			panic("error callback exploded")
		}, nil)

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		var pe *rxstream.PanicError
		require.ErrorAs(t, rec.Err(), &pe)
		require.Equal(t, 1, rec.Terminals())
		require.Contains(t, buf.String(), "Side effect panicked on error notification")
		require.Contains(t, buf.String(), "boom")
	})
}
