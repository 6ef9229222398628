// Package lock provides a per-key mutex whose acquisition honours a
// context deadline.  Different keys never block each other.
package lock

import (
	"context"
	"sync"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// Keyed serialises work per key.  The zero value is ready to use.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// Acquire blocks until key is free or ctx is done.  On success it returns a
// release func that is safe to call more than once.  On failure it returns
// ctx.Err() and nothing is held.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := k.ref(key)
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		k.unref(key, s)
		return nil, ctx.Err()
	}
}

// Len returns the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *Keyed) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.slots == nil {
		k.slots = make(map[string]*slot)
	}
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *Keyed) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
