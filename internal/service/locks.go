package service

import "sync"

// betLocks hands out one mutex per bet id so every read-modify-write on a
// bet runs alone. The store as a whole is not locked: operations on
// different bets proceed in parallel. Entries are reference counted and
// freed when the last holder unlocks, so deleted bets leave nothing behind.
type betLocks struct {
	mu    sync.Mutex
	locks map[int64]*betLock
}

type betLock struct {
	mu   sync.Mutex
	refs int
}

func newBetLocks() *betLocks {
	return &betLocks{locks: make(map[int64]*betLock)}
}

// Lock acquires the mutex for id and returns its unlock function
func (l *betLocks) Lock(id int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &betLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
