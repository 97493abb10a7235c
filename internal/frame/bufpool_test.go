package frame

import (
	"sync"
	"testing"
)

func TestWriteBufPoolGetReturnsSizedBuffer(t *testing.T) {
	t.Parallel()

	p := newWriteBufPool()

	tests := []struct {
		name        string
		requestSize int
		expectCap   int
	}{
		{name: "small", requestSize: 20, expectCap: 64},
		{name: "exact small", requestSize: 64, expectCap: 64},
		{name: "medium", requestSize: 1200, expectCap: 2048},
		{name: "near ceiling", requestSize: MaxFrameLength, expectCap: 4 + MaxFrameLength},
		{name: "oversized", requestSize: 4 + MaxFrameLength + 1, expectCap: 4 + MaxFrameLength + 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := p.get(tc.requestSize)
			if len(buf) != tc.requestSize {
				t.Fatalf("expected len=%d, got %d", tc.requestSize, len(buf))
			}
			if cap(buf) != tc.expectCap {
				t.Fatalf("expected cap=%d, got %d", tc.expectCap, cap(buf))
			}
		})
	}
}

func TestWriteBufPoolPutReusesBuffer(t *testing.T) {
	t.Parallel()

	p := newWriteBufPool()

	buf := p.get(100)
	buf[0] = 42
	ptr := &buf[:1][0]
	p.put(buf)

	reused := p.get(100)
	if cap(reused) != 2048 {
		t.Fatalf("expected cap=2048, got %d", cap(reused))
	}
	if &reused[:1][0] != ptr {
		t.Fatalf("expected the same backing buffer back from the pool")
	}
	for i, v := range reused {
		if v != 0 {
			t.Fatalf("expected buffer to be zeroed, found value %d at index %d", v, i)
		}
	}
}

func TestWriteBufPoolPutDropsUnpooledCapacity(t *testing.T) {
	t.Parallel()

	p := newWriteBufPool()
	oversized := make([]byte, 4+MaxFrameLength+10)
	p.put(oversized) // must not panic; no class matches this capacity
}

func TestWriteBufPoolConcurrentAccess(t *testing.T) {
	t.Parallel()

	p := newWriteBufPool()
	var wg sync.WaitGroup

	worker := func(size int) {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf := p.get(size)
			if len(buf) != size {
				t.Errorf("expected len=%d, got %d", size, len(buf))
				return
			}
			for j := range buf {
				buf[j] = byte(i)
			}
			p.put(buf)
		}
	}

	for _, size := range []int{10, 500, 2000, 4 + MaxFrameLength} {
		size := size
		wg.Add(1)
		go worker(size)
	}
	wg.Wait()
}
