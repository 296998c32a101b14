package services

import (
	"sync"
)

// sessionLocks serializes state-changing operations per session. The data
// model carries no concurrency token, so later writes would silently clobber
// earlier ones without this; reads stay lock-free and see either the pre- or
// post-write state because every mutation commits in one transaction.
var sessionLocks = struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}{locks: make(map[string]*sync.Mutex)}

// lockSession acquires the mutex for a session id and returns its unlock func.
func lockSession(sessionID string) func() {
	sessionLocks.mu.Lock()
	l, ok := sessionLocks.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		sessionLocks.locks[sessionID] = l
	}
	sessionLocks.mu.Unlock()

	l.Lock()
	return l.Unlock
}
