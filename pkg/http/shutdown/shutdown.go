// Package shutdown coordinates graceful process shutdown across several
// independent "managers" (signal handlers, orchestration platform hooks)
// and a list of callbacks to run once, in registration order, before the
// process exits. The conductor's apiServer uses this to drain the gRPC/HTTP
// listeners and close the Event Store/Agents module cleanly.
package shutdown

import (
	"sync"

	"github.com/kiosk404/echoryn/pkg/logger"
)

// Func is a shutdown callback. name identifies the triggering manager.
type Func func(name string) error

// Manager starts watching for its own shutdown trigger (a signal, an admin
// API call, ...) and invokes the provided callback exactly once when it
// fires.
type Manager interface {
	Name() string
	Start(shutdown func(name string) error) error
}

// GracefulShutdown owns the set of Managers and the ordered callback list.
type GracefulShutdown struct {
	mu        sync.Mutex
	managers  []Manager
	callbacks []Func
	done      bool
}

// New creates an empty GracefulShutdown coordinator.
func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

// AddShutdownManager registers a trigger source.
func (g *GracefulShutdown) AddShutdownManager(m Manager) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.managers = append(g.managers, m)
}

// AddShutdownCallback registers a cleanup callback, run in registration
// order when any manager fires.
func (g *GracefulShutdown) AddShutdownCallback(f Func) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, f)
}

// Start arms every registered manager.
func (g *GracefulShutdown) Start() error {
	for _, m := range g.managers {
		if err := m.Start(g.trigger); err != nil {
			return err
		}
	}
	return nil
}

func (g *GracefulShutdown) trigger(name string) error {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		return nil
	}
	g.done = true
	callbacks := append([]Func(nil), g.callbacks...)
	g.mu.Unlock()

	logger.Info("[shutdown] triggered by %s, running %d callbacks", name, len(callbacks))
	var firstErr error
	for _, cb := range callbacks {
		if err := cb(name); err != nil {
			logger.Error("[shutdown] callback failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
