package ratelimit

import "time"

// windowSpan is the trailing period both windows cover.
const windowSpan = time.Minute

// entry is one admitted request inside the window.
type entry struct {
	at     time.Time
	tokens int64
}

// slidingWindow is a timestamped event list pruned to the trailing minute.
// Unlike a bucketed counter it keeps exact per-event timestamps, which is
// what makes the "wait until the oldest entry expires" computation precise.
//
// Not safe for concurrent use; the owning Limiter serializes access.
type slidingWindow struct {
	entries []entry
}

// add appends an event at now.
func (w *slidingWindow) add(now time.Time, tokens int64) {
	w.entries = append(w.entries, entry{at: now, tokens: tokens})
}

// prune drops entries older than the window span.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-windowSpan)

	i := 0
	for i < len(w.entries) && !w.entries[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
}

// count returns the number of events in the window.
func (w *slidingWindow) count() int64 {
	return int64(len(w.entries))
}

// sum returns the summed token counts in the window.
func (w *slidingWindow) sum() int64 {
	var total int64
	for _, e := range w.entries {
		total += e.tokens
	}
	return total
}

// oldestWait returns how long until the oldest entry leaves the window.
// Returns 0 when the window is empty or the oldest entry already expired.
func (w *slidingWindow) oldestWait(now time.Time) time.Duration {
	if len(w.entries) == 0 {
		return 0
	}

	wait := windowSpan - now.Sub(w.entries[0].at)
	if wait < 0 {
		return 0
	}
	return wait
}

// reset clears all entries.
func (w *slidingWindow) reset() {
	w.entries = w.entries[:0]
}
