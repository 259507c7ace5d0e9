package accumulate

import (
	"sync"
	"time"
)

// TimestampClock issues signature timestamps in milliseconds that strictly
// increase, even when two are requested within the same millisecond.
type TimestampClock struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

func NewTimestampClock() *TimestampClock {
	return newTimestampClockWithNow(time.Now)
}

func newTimestampClockWithNow(now func() time.Time) *TimestampClock {
	return &TimestampClock{now: now}
}

func (c *TimestampClock) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := uint64(c.now().UnixMilli())
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

const (
	// minimum gap, in microseconds, between the last timestamp a key used and
	// the next one handed out for external signing
	lastUsedGapMicros = 2_000_000
	// lead over the local clock, in microseconds, covering the time the
	// external signer takes
	clockLeadMicros = 1_000_000
)

// FreshTimestamp picks a microsecond timestamp for a signature that will be
// completed out of process: max(lastUsedOn + 2s, now + 1s).
func FreshTimestamp(lastUsedOn uint64, now time.Time) uint64 {
	fromLastUsed := lastUsedOn + lastUsedGapMicros
	fromClock := uint64(now.UnixMicro()) + clockLeadMicros
	if fromLastUsed > fromClock {
		return fromLastUsed
	}
	return fromClock
}
