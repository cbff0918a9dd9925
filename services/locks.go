package services

import "sync"

// TournamentLocks hands out one RWMutex per tournament id. Writers of a
// tournament (round generation, result submission, registration) take the
// write lock; ranking reads take the read lock. An entry lives only while
// someone holds or waits for it.
type TournamentLocks struct {
	mu    sync.Mutex
	locks map[int]*tournamentLock
}

type tournamentLock struct {
	rw   sync.RWMutex
	refs int
}

func NewTournamentLocks() *TournamentLocks {
	return &TournamentLocks{locks: make(map[int]*tournamentLock)}
}

// lock takes the write lock of the tournament and returns its release func.
func (l *TournamentLocks) lock(id int) func() {
	entry := l.acquire(id)
	entry.rw.Lock()
	return func() {
		entry.rw.Unlock()
		l.release(id, entry)
	}
}

// rlock takes the read lock of the tournament and returns its release func.
func (l *TournamentLocks) rlock(id int) func() {
	entry := l.acquire(id)
	entry.rw.RLock()
	return func() {
		entry.rw.RUnlock()
		l.release(id, entry)
	}
}

func (l *TournamentLocks) acquire(id int) *tournamentLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[id]
	if !ok {
		entry = &tournamentLock{}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *TournamentLocks) release(id int, entry *tournamentLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}

// size reports how many tournaments currently have a live entry.
func (l *TournamentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
