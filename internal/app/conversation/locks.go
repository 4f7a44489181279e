package conversation

import (
	"sync"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

// sessionLocks serialises work per session. Entries are dropped once nobody
// holds or waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[domain.SessionID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[domain.SessionID]*sessionLock)}
}

// Lock blocks until the caller owns id and returns the unlock func.
func (l *sessionLocks) Lock(id domain.SessionID) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &sessionLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
