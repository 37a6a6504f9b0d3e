package lock

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{} // holds one token while the key is free
	refs int
}

// Local is an in-process lock table. Entries are dropped once nobody holds
// or waits for them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)
	select {
	case <-e.ch:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.ch <- struct{}{}
			l.release(key, e)
		})
	}, nil
}

// Len reports how many keys are currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
