// Package mutex provides blocking locks that report every hold into a shared Gauge,
// so callers can check that all locks taken during a run were given back.
package mutex

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrNotHeld is the panic value raised when a lock is released by a caller that does not hold it.
var ErrNotHeld = errors.New("release of lock not held")

// Gauge counts lock holds. A nil *Gauge is valid and counts nothing.
type Gauge struct {
	held     atomic.Int64
	acquired atomic.Int64
	peak     atomic.Int64
}

// Held returns the number of holds currently outstanding.
func (g *Gauge) Held() int64 {
	if g == nil {
		return 0
	}
	return g.held.Load()
}

// Acquired returns the total number of holds ever granted.
func (g *Gauge) Acquired() int64 {
	if g == nil {
		return 0
	}
	return g.acquired.Load()
}

// Peak returns the highest Held value observed since the last Reset.
func (g *Gauge) Peak() int64 {
	if g == nil {
		return 0
	}
	return g.peak.Load()
}

// Reset zeroes the acquisition total and peak. Outstanding holds are kept.
func (g *Gauge) Reset() {
	if g == nil {
		return
	}
	g.acquired.Store(0)
	g.peak.Store(g.held.Load())
}

func (g *Gauge) inc() {
	if g == nil {
		return
	}
	g.acquired.Inc()
	n := g.held.Inc()
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CAS(p, n) {
			return
		}
	}
}

func (g *Gauge) dec() {
	if g == nil {
		return
	}
	g.held.Dec()
}

// Mutex is an exclusive lock. The zero value is unlocked.
type Mutex struct {
	mu    sync.Mutex
	state atomic.Int32
}

// Hold blocks until the lock is acquired and counts the hold into g.
func (mx *Mutex) Hold(g *Gauge) {
	mx.mu.Lock()
	mx.state.Store(1)
	g.inc()
}

// Release gives the lock back. It panics with ErrNotHeld if the lock is not held.
func (mx *Mutex) Release(g *Gauge) {
	if !mx.state.CAS(1, 0) {
		panic(ErrNotHeld)
	}
	g.dec()
	mx.mu.Unlock()
}

// IsHeld reports whether some caller currently holds the lock.
func (mx *Mutex) IsHeld() bool {
	return mx.state.Load() == 1
}

// RWMutex allows many readers or one writer. The zero value is unlocked.
type RWMutex struct {
	rwm     sync.RWMutex
	writer  atomic.Int32
	readers atomic.Int32
}

// Hold acquires the lock for writing.
func (mx *RWMutex) Hold(g *Gauge) {
	mx.rwm.Lock()
	mx.writer.Store(1)
	g.inc()
}

// Release gives back a write hold.
func (mx *RWMutex) Release(g *Gauge) {
	if !mx.writer.CAS(1, 0) {
		panic(ErrNotHeld)
	}
	g.dec()
	mx.rwm.Unlock()
}

// HoldForRead acquires the lock for reading. Readers do not exclude each other.
func (mx *RWMutex) HoldForRead(g *Gauge) {
	mx.rwm.RLock()
	mx.readers.Inc()
	g.inc()
}

// ReleaseForRead gives back one read hold.
func (mx *RWMutex) ReleaseForRead(g *Gauge) {
	for {
		n := mx.readers.Load()
		if n <= 0 {
			panic(ErrNotHeld)
		}
		if mx.readers.CAS(n, n-1) {
			break
		}
	}
	g.dec()
	mx.rwm.RUnlock()
}
