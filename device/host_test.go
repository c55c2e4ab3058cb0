package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForAll_VisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 8} {
		for _, n := range []int{0, 1, 5, 64, 1001} {
			t.Run(fmt.Sprintf("W=%d_N=%d", workers, n), func(t *testing.T) {
				h := NewHost(workers)
				counts := make([]int32, n)
				h.ForAll(n, func(i int) {
					atomic.AddInt32(&counts[i], 1)
				})
				for i, c := range counts {
					assert.Equalf(t, int32(1), c, "index %d", i)
				}
			})
		}
	}
}

func TestForAllBatch_Alignment(t *testing.T) {
	h := NewHost(3)
	var (
		mu     sync.Mutex
		ranges [][2]int
	)
	h.ForAllBatch(22, 4, func(start, end int) {
		mu.Lock()
		ranges = append(ranges, [2]int{start, end})
		mu.Unlock()
	})
	total := 0
	for _, r := range ranges {
		assert.Zero(t, r[0]%4, "blocks start on a batch boundary")
		if r[1] != 22 {
			assert.Zero(t, r[1]%4)
		}
		total += r[1] - r[0]
	}
	assert.Equal(t, 22, total)
	assert.Len(t, ranges, 3)
}

func TestForAll_LayoutCached(t *testing.T) {
	h := NewHost(4)
	h.ForAll(100, func(int) {})
	h.ForAll(100, func(int) {})
	h.ForAllBatch(100, 2, func(int, int) {})
	assert.Len(t, h.layouts, 2)
}

func TestForAll_WorkerPanicPropagates(t *testing.T) {
	h := NewHost(4)
	assert.Panics(t, func() {
		h.ForAll(100, func(i int) {
			if i == 57 {
				panic("bad element")
			}
		})
	})
	assert.Panics(t, func() { h.ForAllBatch(10, 0, func(int, int) {}) })
}

func TestNewHost_Defaults(t *testing.T) {
	assert.GreaterOrEqual(t, NewHost(0).Workers, 1)
	assert.Equal(t, 1, Serial().Workers)
}
