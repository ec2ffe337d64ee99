package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

// entry is a Supervisor's bookkeeping for one named child: the spec used to
// (re)create it, its current live instance, and the restart timestamps used
// to enforce the rolling-window intensity.
type entry struct {
	spec     ChildSpec
	child    Child
	restarts []time.Time
}

// Supervisor restarts its children one-for-one on failure, looked up by the
// stable name in their ChildSpec so external references survive a restart.
// Exceeding the restart intensity escalates by stopping the supervisor
// itself, propagating the fault to whatever owns it.
type Supervisor struct {
	policy   RestartPolicy
	escalate func(name string, reason error)

	mu       sync.Mutex
	children map[string]*entry
	stopped  bool
}

// New constructs a Supervisor. escalate is invoked (once, from the
// supervisor's own internal goroutine) when a child exhausts its restart
// intensity; the supervisor also stops itself before calling escalate, so a
// caller's escalate handler only needs to propagate the fault upward (e.g.
// by stopping its own supervisor in turn).
func New(policy RestartPolicy, escalate func(name string, reason error)) *Supervisor {
	return &Supervisor{
		policy:   policy,
		escalate: escalate,
		children: map[string]*entry{},
	}
}

// StartChild registers and starts a new child under spec.Name. It is an
// error to call StartChild twice for the same name while that child is
// still registered.
func (s *Supervisor) StartChild(ctx context.Context, spec ChildSpec) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: stopped")
	}
	if _, exists := s.children[spec.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: child %q already registered", spec.Name)
	}
	s.mu.Unlock()

	child, err := spec.Start(ctx)
	if err != nil {
		return fmt.Errorf("supervisor: start child %q: %w", spec.Name, err)
	}

	s.mu.Lock()
	s.children[spec.Name] = &entry{spec: spec, child: child}
	s.mu.Unlock()

	s.watch(spec.Name, child)
	return nil
}

// watch fires a detached goroutine that reacts to one child's exit. It is
// the only place a child's failure becomes supervisor-visible.
func (s *Supervisor) watch(name string, child Child) {
	safego.Go(context.Background(), func() {
		<-child.Done()
		s.onChildExit(name, child)
	})
}

// onChildExit applies the one-for-one policy: reset the restart window if
// expired, restart under the same name if intensity allows, otherwise
// escalate.
func (s *Supervisor) onChildExit(name string, exited Child) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	e, ok := s.children[name]
	if !ok || e.child != exited {
		// Already replaced or deregistered (e.g. concurrent StopChild).
		s.mu.Unlock()
		return
	}

	now := time.Now()
	if len(e.restarts) > 0 && now.Sub(e.restarts[0]) > s.policy.Window {
		e.restarts = nil
	}

	if len(e.restarts) >= s.policy.MaxRestarts {
		reason := exited.Err()
		delete(s.children, name)
		s.stopped = true
		s.mu.Unlock()

		logger.Error("supervisor: child %q exceeded restart intensity (%d/%s), escalating: %v",
			name, s.policy.MaxRestarts, s.policy.Window, reason)
		s.stopAll()
		if s.escalate != nil {
			s.escalate(name, reason)
		}
		return
	}

	e.restarts = append(e.restarts, now)
	spec := e.spec
	s.mu.Unlock()

	logger.Info("supervisor: restarting child %q (restart %d/%d)", name, len(e.restarts), s.policy.MaxRestarts)

	newChild, err := spec.Start(context.Background())
	if err != nil {
		logger.Error("supervisor: restart of child %q failed: %v", name, err)
		s.mu.Lock()
		if cur, ok := s.children[name]; ok && cur == e {
			delete(s.children, name)
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		newChild.Stop()
		return
	}
	e.child = newChild
	s.mu.Unlock()

	s.watch(name, newChild)
}

// Get returns the currently live child registered under name.
func (s *Supervisor) Get(name string) (Child, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.children[name]
	if !ok {
		return nil, false
	}
	return e.child, true
}

// StopChild deregisters and stops one child without triggering a restart.
func (s *Supervisor) StopChild(name string) {
	s.mu.Lock()
	e, ok := s.children[name]
	if ok {
		delete(s.children, name)
	}
	s.mu.Unlock()
	if ok {
		e.child.Stop()
	}
}

// Stop stops every child and marks the supervisor unable to accept new
// children or restarts.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopAll()
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	children := make([]Child, 0, len(s.children))
	for _, e := range s.children {
		children = append(children, e.child)
	}
	s.children = map[string]*entry{}
	s.mu.Unlock()

	for _, c := range children {
		c.Stop()
	}
}
