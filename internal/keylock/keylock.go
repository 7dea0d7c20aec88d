// Package keylock provides per-key mutual exclusion with first-come,
// first-served handoff. Handlers for the same puzzle or location queue behind
// each other; handlers for different keys never contend.
package keylock

import (
	"context"
	"sync"
)

// Map is a set of named locks. The zero value is ready to use.
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	held    bool
	waiters []chan struct{}
}

// Lock blocks until key is held by the caller or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (m *Map) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	if m.entries == nil {
		m.entries = make(map[string]*entry)
	}
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	if !e.held {
		e.held = true
		m.mu.Unlock()
		return m.releaser(key), nil
	}
	turn := make(chan struct{})
	e.waiters = append(e.waiters, turn)
	m.mu.Unlock()

	select {
	case <-turn:
		return m.releaser(key), nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range e.waiters {
			if w == turn {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				m.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		m.mu.Unlock()
		// Ownership was handed over while ctx was being cancelled.
		m.release(key)
		return nil, ctx.Err()
	}
}

func (m *Map) releaser(key string) func() {
	var once sync.Once
	return func() { once.Do(func() { m.release(key) }) }
}

func (m *Map) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[key]
	if e == nil {
		return
	}
	if len(e.waiters) > 0 {
		next := e.waiters[0]
		e.waiters = e.waiters[1:]
		close(next)
		return
	}
	delete(m.entries, key)
}

// Waiting returns the number of callers queued behind the holder of key.
func (m *Map) Waiting(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.entries[key]; e != nil {
		return len(e.waiters)
	}
	return 0
}

// Len returns the number of keys currently held.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
