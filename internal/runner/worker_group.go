package runner

import "sync"

// WorkerGroup tracks runner-owned goroutines and provides a safe shutdown
// boundary so we never call WaitGroup.Add concurrently with Wait.
type WorkerGroup struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// Go starts a worker if the group is not stopping.
func (g *WorkerGroup) Go(fn func()) bool {
	if fn == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

// Wait prevents new workers from being started and blocks until every
// current worker has exited. Workers are expected to be context-aware, so
// cancellation makes them return promptly rather than abandoning them.
func (g *WorkerGroup) Wait() {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()
	g.wg.Wait()
}
