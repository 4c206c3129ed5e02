package swap

import "sync"

// KeyedMutex serializes work per key. Callers holding the lock of one key
// never block callers working on another key. Entries are reference counted
// and removed once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*refMutex),
	}
}

// Lock acquires the lock for the given key and returns the function that
// releases it.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of keys currently tracked.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
