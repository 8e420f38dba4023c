package service

import (
	"log/slog"
	"math"
	"sync"

	"github.com/ZaguanLabs/pagetl"
)

// progress forwards download reports clamped to [0, 1] and never decreasing.
// A panicking callback is logged and otherwise ignored.
type progress struct {
	fn     pagetl.ProgressFunc
	logger *slog.Logger

	mu   sync.Mutex
	last float64
}

func newProgress(fn pagetl.ProgressFunc, logger *slog.Logger) *progress {
	return &progress{fn: fn, logger: logger}
}

func (p *progress) report(v float64) {
	if p.fn == nil || math.IsNaN(v) {
		return
	}

	p.mu.Lock()
	v = math.Max(p.last, math.Min(1, math.Max(0, v)))
	p.last = v
	p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("progress callback panicked", "panic", r)
		}
	}()
	p.fn(v)
}

// listeners fans the progress of a shared creation out to every caller
// waiting on the same key.
type listeners struct {
	logger *slog.Logger

	mu   sync.Mutex
	next int
	fns  map[string]map[int]pagetl.ProgressFunc
}

func newListeners(logger *slog.Logger) *listeners {
	return &listeners{logger: logger, fns: make(map[string]map[int]pagetl.ProgressFunc)}
}

// add registers fn for key and returns the function removing it.
func (l *listeners) add(key string, fn pagetl.ProgressFunc) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	if l.fns[key] == nil {
		l.fns[key] = make(map[int]pagetl.ProgressFunc)
	}
	l.fns[key][id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns[key], id)
		if len(l.fns[key]) == 0 {
			delete(l.fns, key)
		}
	}
}

func (l *listeners) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns[key])
}

func (l *listeners) notify(key string, v float64) {
	l.mu.Lock()
	fns := make([]pagetl.ProgressFunc, 0, len(l.fns[key]))
	for _, fn := range l.fns[key] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		l.call(fn, v)
	}
}

func (l *listeners) call(fn pagetl.ProgressFunc, v float64) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("progress callback panicked", "panic", r)
		}
	}()
	fn(v)
}
