package events

import (
	"sync"
	"time"
)

// window retains the recent events for one equipment, evicting entries older
// than the retention period on every append.
type window struct {
	mu        sync.RWMutex
	events    []Event
	retention time.Duration
}

func newWindow(retention time.Duration) *window {
	return &window{retention: retention}
}

func (w *window) append(event Event, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, event)
	cutoff := now.Add(-w.retention)
	start := 0
	for start < len(w.events) && w.events[start].OccurredAt.Before(cutoff) {
		start++
	}
	if start > 0 {
		w.events = append([]Event(nil), w.events[start:]...)
	}
}

// snapshot returns events at or after since, oldest first.
func (w *window) snapshot(since time.Time) []Event {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var result []Event
	for _, event := range w.events {
		if event.OccurredAt.Before(since) {
			continue
		}
		result = append(result, event)
	}
	return result
}

func (w *window) size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}
