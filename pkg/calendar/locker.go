package calendar

import (
	"slices"
	"sync"
)

// KeyedLocker hands out one mutex per resource id. Locking several keys
// always happens in ascending order so that two writers never deadlock.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int]*keyedLock)}
}

// Lock blocks until every key is held and returns the matching unlock function.
func (l *KeyedLocker) Lock(keys ...int) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	acquired := make([]*keyedLock, 0, len(sorted))
	for _, key := range sorted {
		lock := l.acquire(key)
		lock.mu.Lock()
		acquired = append(acquired, lock)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(acquired) - 1; i >= 0; i-- {
				acquired[i].mu.Unlock()
				l.release(sorted[i])
			}
		})
	}
}

func (l *KeyedLocker) acquire(key int) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *KeyedLocker) release(key int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[key]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
