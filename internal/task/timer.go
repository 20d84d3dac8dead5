package task

import (
	"sync"
	"time"
)

// timers recycles the one-shot timers used by delayed tasks and waits.
var timers timerPool

type timerPool struct {
	p sync.Pool
}

// get returns a stopped-and-drained timer reset to d. Negative durations fire at once.
func (tp *timerPool) get(d time.Duration) *time.Timer {
	d = max(d, 0)

	t, ok := tp.p.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}

	if t.Reset(d) {
		select {
		case <-t.C:
		default:
		}
	}

	return t
}

// put stops t and hands it back. t must not be used afterwards.
func (tp *timerPool) put(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	tp.p.Put(t)
}
