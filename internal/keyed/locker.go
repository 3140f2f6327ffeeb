// Package keyed provides reader/writer exclusion per document partition.
package keyed

import (
	"sync"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

type entry struct {
	mu   sync.RWMutex
	refs int
}

// Locker hands out one RWMutex per key. Entries are dropped once no goroutine
// holds or waits on them, so the map only grows with in-flight keys.
type Locker struct {
	mu      sync.Mutex
	entries map[document.Key]*entry
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{entries: make(map[document.Key]*entry)}
}

// Lock blocks until no reader or writer holds the key and returns the
// matching unlock func.
func (l *Locker) Lock(key document.Key) func() {
	e := l.acquire(key)
	e.mu.Lock()
	return l.releaser(key, e, e.mu.Unlock)
}

// RLock blocks until no writer holds the key. Readers of one key share it.
func (l *Locker) RLock(key document.Key) func() {
	e := l.acquire(key)
	e.mu.RLock()
	return l.releaser(key, e, e.mu.RUnlock)
}

func (l *Locker) acquire(key document.Key) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaser(key document.Key, e *entry, unlock func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
