package partitions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorsCoverRange(t *testing.T) {
	small := NewPool(4, nil)
	small.MinBlock = 1
	executors := map[string]Executor{
		"serial":      Serial{},
		"pool":        NewPool(0, nil),
		"pool-small":  small,
		"pool-single": NewPool(1, nil),
	}
	for name, ex := range executors {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{0, 1, 7, 4096} {
				hits := make([]int, n)
				var mu sync.Mutex
				var blocks int
				err := ex.Run(n, func(lo, hi int) {
					mu.Lock()
					blocks++
					mu.Unlock()
					for i := lo; i < hi; i++ {
						hits[i]++
					}
				})
				require.NoError(t, err)
				for i, h := range hits {
					require.Equal(t, 1, h, "index %d of %d", i, n)
				}
				if n == 0 {
					assert.Zero(t, blocks)
				}
			}
		})
	}
}

func TestPoolSplitsIntoBlocks(t *testing.T) {
	p := NewPool(3, nil)
	p.MinBlock = 1
	var mu sync.Mutex
	var got [][2]int
	require.NoError(t, p.Run(9, func(lo, hi int) {
		mu.Lock()
		got = append(got, [2]int{lo, hi})
		mu.Unlock()
	}))
	assert.ElementsMatch(t, [][2]int{{0, 3}, {3, 6}, {6, 9}}, got)
}

func TestPoolRecoversPanic(t *testing.T) {
	p := NewPool(2, nil)
	p.MinBlock = 1
	err := p.Run(4, func(lo, hi int) {
		if lo == 0 {
			panic("bad cell")
		}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad cell")

	err = NewPool(2, nil).Run(4, func(lo, hi int) { panic("single block") })
	assert.ErrorContains(t, err, "single block")
}

func TestPoolZeroValue(t *testing.T) {
	tests := []struct {
		name string
		pool *Pool
	}{
		{"zero", &Pool{}},
		{"workers only", &Pool{Workers: 4}},
		{"negative workers", &Pool{Workers: -1, MinBlock: 1}},
		{"no logger", &Pool{Workers: 4, MinBlock: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int, 100)
			var mu sync.Mutex
			err := tt.pool.Run(len(hits), func(lo, hi int) {
				mu.Lock()
				defer mu.Unlock()
				for i := lo; i < hi; i++ {
					hits[i]++
				}
			})
			require.NoError(t, err)
			for i, h := range hits {
				require.Equal(t, 1, h, "index %d", i)
			}
		})
	}
}
