package resilience

import (
	"errors"
	"sync"
	"testing"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(2)

	if err := b.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := b.Acquire(); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if err := b.Acquire(); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("third acquire err = %v, want ErrBulkheadFull", err)
	}

	b.Release()
	if err := b.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBulkhead_StatsTrackOccupancy(t *testing.T) {
	b := NewBulkhead(3)
	b.Acquire()
	b.Acquire()
	b.Acquire()
	b.Acquire() // rejected

	stats := b.Stats()
	if stats.Active != 3 {
		t.Errorf("Active = %d, want 3", stats.Active)
	}
	if stats.Capacity != 3 {
		t.Errorf("Capacity = %d, want 3", stats.Capacity)
	}
	if stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", stats.Rejected)
	}
}

func TestBulkhead_DefaultCapacity(t *testing.T) {
	b := NewBulkhead(0)
	if got := b.Stats().Capacity; got != DefaultMaxStreams {
		t.Errorf("Capacity = %d, want %d", got, DefaultMaxStreams)
	}
}

func TestBulkhead_ReleaseWithoutAcquire(t *testing.T) {
	b := NewBulkhead(1)
	b.Release()
	if got := b.Stats().Active; got != 0 {
		t.Errorf("Active = %d after spurious release", got)
	}
}

func TestBulkhead_ConcurrentAdmissions(t *testing.T) {
	const capacity = 8
	b := NewBulkhead(capacity)

	var admitted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Acquire() == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != capacity {
		t.Errorf("admitted %d of 100, want exactly %d", admitted, capacity)
	}
}
