package watcher

import (
	"slices"
	"sync"
	"time"
)

// Debouncer collects keys and emits them as one sorted batch once no new
// key has arrived for the delay.
type Debouncer struct {
	delay time.Duration
	mu    sync.Mutex
	timer *time.Timer
	keys  map[string]struct{}
	emit  func([]string)
}

// NewDebouncer creates a debouncer that hands batches to emit.
func NewDebouncer(delay time.Duration, emit func([]string)) *Debouncer {
	return &Debouncer{
		delay: delay,
		keys:  make(map[string]struct{}),
		emit:  emit,
	}
}

// Add records key and restarts the quiet period.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys[key] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.keys))
	for k := range d.keys {
		keys = append(keys, k)
	}
	clear(d.keys)
	d.timer = nil
	d.mu.Unlock()

	if len(keys) > 0 && d.emit != nil {
		slices.Sort(keys)
		d.emit(keys)
	}
}

// Cancel drops any pending batch.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	clear(d.keys)
}
