package services

import "sync"

// LeagueLocker hands out one mutex per league id so that schedule generation,
// schedule clearing and status transitions are mutually exclusive per league
// within this process. Mutexes are never evicted; leagues number in the tens.
type LeagueLocker struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLeagueLocker() *LeagueLocker {
	return &LeagueLocker{locks: make(map[int]*sync.Mutex)}
}

func (l *LeagueLocker) forLeague(id int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
