package importer

import (
	"sync"
	"testing"
)

func TestRunLock(t *testing.T) {
	l := newRunLock()

	if !l.TryAcquire("natural") {
		t.Fatal("first acquire should succeed")
	}
	if l.TryAcquire("natural") {
		t.Error("second acquire for the same key should fail")
	}
	if !l.TryAcquire("lab") {
		t.Error("a different key should be independent")
	}

	l.Release("natural")
	if !l.TryAcquire("natural") {
		t.Error("acquire after release should succeed")
	}

	types := l.ActiveTypes()
	if len(types) != 2 {
		t.Errorf("ActiveTypes() = %v, want 2 entries", types)
	}
}

func TestRunLockConcurrentAcquire(t *testing.T) {
	l := newRunLock()

	const goroutines = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("natural") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("%d goroutines acquired the slot, want exactly 1", count)
	}
}
