package rxstream_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xinjiayu/rxstream"
	"github.com/xinjiayu/rxstream/rxtest"
)

func TestMap(t *testing.T) {
	t.Run("value and index", func(t *testing.T) {
		doubled := rxstream.Map(rxstream.Of(1, 2, 3, 4), func(v int, _ int) (int, error) {
			return v * 2, nil
		})
		described := rxstream.Map(doubled, func(v int, i int) (string, error) {
			return fmt.Sprintf("#%d=%d", i, v), nil
		})

		rec := rxtest.NewRecorder[string](nil)
		described.Subscribe(rec.Observer())

		require.Equal(t, []string{"#0=2", "#1=4", "#2=6", "#3=8"}, rec.Values())
		require.True(t, rec.Completed())
	})

	t.Run("returned error terminates", func(t *testing.T) {
		boom := errors.New("boom")
		src := rxstream.Map(rxstream.Of(1, 2, 3), func(v int, _ int) (int, error) {
			if v == 2 {
				return 0, boom
			}
			return v, nil
		})

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		require.Equal(t, []int{1}, rec.Values())
		require.ErrorIs(t, rec.Err(), boom)
		require.Equal(t, 1, rec.Terminals())
	})

	t.Run("panic is converted to error", func(t *testing.T) {
		src := rxstream.Map(rxstream.Of(1, 0), func(v int, _ int) (int, error) {
			return 10 / v, nil
		})

		rec := rxtest.NewRecorder[int](nil)
		require.NotPanics(t, func() {
			src.Subscribe(rec.Observer())
		})

		require.Equal(t, []int{10}, rec.Values())
		var pe *rxstream.PanicError
		require.ErrorAs(t, rec.Err(), &pe)
	})

	t.Run("upstream error passes through", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		src := rxstream.Map(rxstream.ThrowError[int](boom), func(v int, _ int) (int, error) {
			calls++
			return v, nil
		})

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		require.ErrorIs(t, rec.Err(), boom)
		require.Zero(t, calls)
	})
}

func TestScan(t *testing.T) {
	t.Run("emits every accumulator", func(t *testing.T) {
		donations := rxstream.Of(100, 500, 300, 250)
		total := rxstream.Scan(donations, func(acc, v int, _ int) (int, error) {
			return acc + v, nil
		}, 0)

		rec := rxtest.NewRecorder[int](nil)
		total.Subscribe(rec.Observer())

		require.Equal(t, []int{100, 600, 900, 1150}, rec.Values())
		require.True(t, rec.Completed())
	})

	t.Run("index and seed", func(t *testing.T) {
		src := rxstream.Scan(rxstream.Of("a", "b"), func(acc []string, v string, i int) ([]string, error) {
			return append(append([]string(nil), acc...), fmt.Sprintf("%d:%s", i, v)), nil
		}, []string{"seed"})

		rec := rxtest.NewRecorder[[]string](nil)
		src.Subscribe(rec.Observer())

		require.Equal(t, [][]string{
			{"seed", "0:a"},
			{"seed", "0:a", "1:b"},
		}, rec.Values())
	})

	t.Run("error terminates", func(t *testing.T) {
		boom := errors.New("boom")
		src := rxstream.Scan(rxstream.Of(1, 2, 3), func(acc, v int, _ int) (int, error) {
			if v == 3 {
				return 0, boom
			}
			return acc + v, nil
		}, 0)

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		require.Equal(t, []int{1, 3}, rec.Values())
		require.ErrorIs(t, rec.Err(), boom)
	})

	t.Run("empty source emits nothing", func(t *testing.T) {
		src := rxstream.Scan(rxstream.Empty[int](), func(acc, v int, _ int) (int, error) {
			return acc + v, nil
		}, 42)

		rec := rxtest.NewRecorder[int](nil)
		src.Subscribe(rec.Observer())

		require.Empty(t, rec.Values())
		require.True(t, rec.Completed())
	})
}

func TestPairwise(t *testing.T) {
	t.Run("pairs adjacent values", func(t *testing.T) {
		rec := rxtest.NewRecorder[rxstream.Pair[int]](nil)
		rxstream.Pairwise(rxstream.Of(1, 2, 3, 4)).Subscribe(rec.Observer())

		require.Equal(t, []rxstream.Pair[int]{
			{Previous: 1, Current: 2},
			{Previous: 2, Current: 3},
			{Previous: 3, Current: 4},
		}, rec.Values())
		require.True(t, rec.Completed())
	})

	t.Run("single value yields no pairs", func(t *testing.T) {
		rec := rxtest.NewRecorder[rxstream.Pair[int]](nil)
		rxstream.Pairwise(rxstream.Of(1)).Subscribe(rec.Observer())

		require.Empty(t, rec.Values())
		require.True(t, rec.Completed())
	})

	t.Run("empty source", func(t *testing.T) {
		rec := rxtest.NewRecorder[rxstream.Pair[int]](nil)
		rxstream.Pairwise(rxstream.Empty[int]()).Subscribe(rec.Observer())

		require.Empty(t, rec.Values())
		require.True(t, rec.Completed())
	})
}

// 股价：pairwise 得到前后两天，map 计算涨跌，scan 累计低于 100 的天数
func TestOperators_pricePipeline(t *testing.T) {
	type day struct {
		Day        int
		Price      int
		Up, Down   bool
		Below100At int
	}

	prices := rxstream.FromSlice([]int{100, 98, 96, 102, 99, 105, 105})
	days := rxstream.Map(rxstream.Pairwise(prices), func(p rxstream.Pair[int], i int) (day, error) {
		return day{
			Day:   i + 2,
			Price: p.Current,
			Up:    p.Current > p.Previous,
			Down:  p.Current < p.Previous,
		}, nil
	})
	summary := rxstream.Scan(days, func(acc day, d day, _ int) (day, error) {
		d.Below100At = acc.Below100At
		if d.Price < 100 {
			d.Below100At++
		}
		return d, nil
	}, day{Day: 1})

	rec := rxtest.NewRecorder[day](nil)
	summary.Subscribe(rec.Observer())

	got := rec.Values()
	require.Len(t, got, 6)
	require.Equal(t, day{Day: 2, Price: 98, Down: true, Below100At: 1}, got[0])
	require.Equal(t, day{Day: 4, Price: 102, Up: true, Below100At: 2}, got[2])
	require.Equal(t, day{Day: 7, Price: 105, Below100At: 3}, got[5])
}

func TestFilter(t *testing.T) {
	rec := rxtest.NewRecorder[int](nil)
	rxstream.Filter(rxstream.Range(1, 6), func(v int) bool {
		return v%2 == 0
	}).Subscribe(rec.Observer())

	require.Equal(t, []int{2, 4, 6}, rec.Values())
	require.True(t, rec.Completed())
}

func TestTake(t *testing.T) {
	t.Run("stops a long synchronous source", func(t *testing.T) {
		rec := rxtest.NewRecorder[int](nil)
		rxstream.Take(rxstream.Range(0, 1_000_000_000), 3).Subscribe(rec.Observer())

		require.Equal(t, []int{0, 1, 2}, rec.Values())
		require.True(t, rec.Completed())
	})

	t.Run("zero does not subscribe upstream", func(t *testing.T) {
		spy := rxtest.NewSpy(rxstream.Of(1, 2), nil)

		rec := rxtest.NewRecorder[int](nil)
		rxstream.Take(spy.Observable(), 0).Subscribe(rec.Observer())

		require.Empty(t, rec.Values())
		require.True(t, rec.Completed())
		require.Zero(t, spy.Subscribes())
	})

	t.Run("shorter source completes early", func(t *testing.T) {
		rec := rxtest.NewRecorder[int](nil)
		rxstream.Take(rxstream.Of(1, 2), 5).Subscribe(rec.Observer())

		require.Equal(t, []int{1, 2}, rec.Values())
		require.True(t, rec.Completed())
	})
}
