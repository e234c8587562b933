package utils

import (
	"context"
	"fmt"
	"sync"
)

type keyedLockEntry struct {
	ch      chan struct{}
	waiters int
}

// KeyedMutex serialises work per string key while letting different keys proceed in parallel. Entries are dropped
// once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLockEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLockEntry)}
}

// Lock blocks until the key is free or ctx is done. The returned function releases the key.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLockEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.waiters++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry, false)
		return nil, fmt.Errorf("waiting for lock on %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(key, entry, true) })
	}, nil
}

func (k *KeyedMutex) release(key string, entry *keyedLockEntry, held bool) {
	if held {
		<-entry.ch
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.waiters--
	if entry.waiters == 0 {
		delete(k.locks, key)
	}
}

// Len reports how many keys are currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
