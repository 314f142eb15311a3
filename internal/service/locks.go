package service

import "sync"

// eventLocks hands out one mutex per event id. Admissions for the same event
// serialize on it; admissions for different events never contend.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *eventLocks) forEvent(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
