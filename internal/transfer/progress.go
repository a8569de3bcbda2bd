package transfer

import (
	"sync"
)

// progressTracker enforces the progress contract on top of raw byte counts
// coming from the HTTP layer, possibly from another goroutine.
type progressTracker struct {
	mu       sync.Mutex
	fn       ProgressFunc
	last     float64
	started  bool
	finished bool
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

func (p *progressTracker) emit(v float64) {
	if p.fn == nil || v <= p.last {
		return
	}
	p.last = v
	p.fn(v)
}

func (p *progressTracker) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.emit(0)
}

// bytes reports done of total. 1.0 is held back for complete().
func (p *progressTracker) bytes(done, total int64) {
	if total <= 0 {
		return
	}
	v := float64(done) / float64(total)
	if v >= 1 {
		v = 0.99
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.emit(v)
}

func (p *progressTracker) complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.emit(1)
}

// abort silences the tracker after a failure.
func (p *progressTracker) abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
}
