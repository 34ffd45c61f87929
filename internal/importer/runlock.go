package importer

// runlock.go implements per-type mutual exclusion for import runs within
// this process. Two runs for the same stone type must never overlap; runs
// for different types are independent. A second request for a locked type
// fails immediately rather than queuing — the scheduler will come back.
//
// The lock covers a single process; the job store's active-job check covers
// multiple processes sharing a database.

import "sync"

// runLock guards one run slot per stone type.
type runLock struct {
	mu     sync.Mutex
	active map[string]bool
}

func newRunLock() *runLock {
	return &runLock{active: make(map[string]bool)}
}

// TryAcquire claims the slot for key without blocking.
// Returns false when a run for key is already active.
func (l *runLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[key] {
		return false
	}
	l.active[key] = true
	return true
}

// Release frees the slot for key. Must be called exactly once per
// successful TryAcquire (use defer).
func (l *runLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, key)
}

// ActiveTypes returns the keys currently holding a slot, for monitoring.
func (l *runLock) ActiveTypes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.active))
	for k := range l.active {
		keys = append(keys, k)
	}
	return keys
}
