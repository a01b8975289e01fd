package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

// coverage runs Rows and reports how many times each row was visited.
func coverage(p *WorkerPool, height, minRows int) []int32 {
	seen := make([]int32, height)
	p.Rows(height, minRows, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			atomic.AddInt32(&seen[y], 1)
		}
	})
	return seen
}

func TestRowsVisitsEveryRowOnce(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	for _, tc := range []struct{ height, minRows int }{
		{1, 1}, {7, 16}, {16, 16}, {17, 16}, {100, 3}, {1000, 16}, {33, 0},
	} {
		seen := coverage(p, tc.height, tc.minRows)
		for y, n := range seen {
			if n != 1 {
				t.Fatalf("height=%d minRows=%d: row %d visited %d times", tc.height, tc.minRows, y, n)
			}
		}
	}
}

func TestRowsSplitsIntoBands(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()

	var (
		mu    sync.Mutex
		bands [][2]int
	)
	p.Rows(64, 8, func(y0, y1 int) {
		mu.Lock()
		bands = append(bands, [2]int{y0, y1})
		mu.Unlock()
	})
	// 2 workers -> at most 4 bands of 16 rows.
	if len(bands) != 4 {
		t.Fatalf("bands = %v, want 4", bands)
	}
	for _, b := range bands {
		if b[1]-b[0] != 16 {
			t.Errorf("band %v has %d rows, want 16", b, b[1]-b[0])
		}
	}
}

func TestRowsNilAndClosedPoolRunInline(t *testing.T) {
	var nilPool *WorkerPool
	calls := 0
	nilPool.Rows(50, 1, func(y0, y1 int) {
		calls++
		if y0 != 0 || y1 != 50 {
			t.Errorf("nil pool band = [%d, %d), want [0, 50)", y0, y1)
		}
	})
	if calls != 1 {
		t.Errorf("nil pool calls = %d, want 1", calls)
	}

	p := NewWorkerPool(3)
	p.Close()
	p.Close() // idempotent
	seen := coverage(p, 40, 1)
	for y, n := range seen {
		if n != 1 {
			t.Fatalf("closed pool: row %d visited %d times", y, n)
		}
	}
}

func TestRowsZeroHeight(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()
	p.Rows(0, 1, func(int, int) { t.Error("fn called for zero height") })
}

func TestNewWorkerPoolDefaultWorkers(t *testing.T) {
	p := NewWorkerPool(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Errorf("Workers() = %d, want >= 1", p.Workers())
	}
}
