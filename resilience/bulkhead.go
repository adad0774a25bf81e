package resilience

import "sync/atomic"

// DefaultMaxStreams is the bulkhead capacity when none is configured.
const DefaultMaxStreams = 256

// Bulkhead caps concurrent answer streams. A slot is held for the full
// life of a stream, so admission never waits: a full bulkhead rejects
// immediately and the transport turns that into a 503.
type Bulkhead struct {
	slots    chan struct{}
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead with the given capacity. Non-positive
// capacities fall back to DefaultMaxStreams.
func NewBulkhead(maxStreams int) *Bulkhead {
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}
	return &Bulkhead{slots: make(chan struct{}, maxStreams)}
}

// Acquire claims a stream slot. Returns ErrBulkheadFull when every
// slot is occupied.
func (b *Bulkhead) Acquire() error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
		b.rejected.Add(1)
		return ErrBulkheadFull
	}
}

// Release returns a slot claimed by Acquire. Releasing without a
// matching Acquire is a no-op.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
	default:
	}
}

// Stats reports current bulkhead occupancy.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		Active:   len(b.slots),
		Capacity: cap(b.slots),
		Rejected: b.rejected.Load(),
	}
}

// BulkheadStats is a point-in-time occupancy snapshot.
type BulkheadStats struct {
	Active   int
	Capacity int
	Rejected int64
}
