package helpers

import (
	"sync/atomic"
	"time"

	"github.com/temoto/atomic_clock"
)

// Limited exponential backoff for redial delays.
// Choose DelayAfter or DelayBefore whichever fits your code better.
// First delay is always 0.
// Update(false) or Failure() increases next delay by K.
// Min may be changed between calls, next delay is clamped to new limits.
type Backoff struct {
	next int64 // atomic align
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms
}

// Use scenario:
// for {
//   err := dial()
//   time.Sleep(backoff.DelayAfter(err==nil))
// }
func (b *Backoff) DelayAfter(success bool) time.Duration {
	atomic.CompareAndSwapInt64(&b.next, 0, int64(b.Min))
	b.Update(success)
	return b.DelayBefore()
}

// Use scenario:
// for {
//   time.Sleep(backoff.DelayBefore())
//   err := dial()
//   backoff.Update(err==nil)
// }
func (b *Backoff) DelayBefore() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	delay := b.limit(next)
	since := atomic_clock.Since(&b.last)
	if since >= delay {
		return 0
	}
	return b.round(delay - since)
}

// Next returns planned delay without accounting for time passed since last update.
func (b *Backoff) Next() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	return b.limit(next)
}

// Increase next delay.
func (b *Backoff) Failure() {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next != 0 {
		// grow from current limits, Min may have been raised
		next = time.Duration(float32(b.limit(next)) * b.K)
	}
	next = b.limit(next)
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(next))
}

func (b *Backoff) Reset() {
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(b.Min))
}

func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
	} else {
		b.Failure()
	}
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
