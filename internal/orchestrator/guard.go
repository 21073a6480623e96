package orchestrator

import "sync"

// inflightGuard ensures at most one concurrent sync per connector. A firing
// that finds its connector already in flight skips instead of queueing.
type inflightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// TryLock marks the connector as syncing. Returns false if it already is.
func (g *inflightGuard) TryLock(connectorID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, busy := g.running[connectorID]; busy {
		return false
	}
	g.running[connectorID] = struct{}{}
	return true
}

// Unlock releases the connector. Must follow a successful TryLock.
func (g *inflightGuard) Unlock(connectorID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, connectorID)
}
