package watch

import (
	"sort"
	"sync"
	"time"
)

// debouncer collects changed paths and flushes them once no event arrived
// for window, or as soon as maxBatch distinct paths are pending.
type debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func(changed, removed []string)

	mu      sync.Mutex
	pending map[string]bool // path -> removed
	timer   *time.Timer
	stopped bool
	flushes sync.WaitGroup
}

func newDebouncer(window time.Duration, maxBatch int, onFlush func(changed, removed []string)) *debouncer {
	if maxBatch <= 0 {
		maxBatch = 256
	}
	return &debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]bool),
	}
}

func (d *debouncer) add(path string, removed bool) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending[path] = removed

	if len(d.pending) >= d.maxBatch {
		d.flushLocked()
		return
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.flushLocked()
	})
	d.mu.Unlock()
}

// flushLocked must be called with mu held; it releases it.
func (d *debouncer) flushLocked() {
	var changed, removed []string
	for p, gone := range d.pending {
		if gone {
			removed = append(removed, p)
		} else {
			changed = append(changed, p)
		}
	}
	d.pending = make(map[string]bool)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.flushes.Add(1)
	d.mu.Unlock()

	defer d.flushes.Done()
	if len(changed)+len(removed) == 0 || d.onFlush == nil {
		return
	}
	sort.Strings(changed)
	sort.Strings(removed)
	d.onFlush(changed, removed)
}

// stop flushes what is pending and waits for running flushes.
func (d *debouncer) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.flushes.Wait()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) > 0 {
		d.flushLocked()
	} else {
		d.mu.Unlock()
	}
	d.flushes.Wait()
}
