package supervisor

import (
	"context"
	"fmt"
	"sync"
)

// DesktopActor is the per-desktop node of the supervision tree: it owns its
// own nested Supervisor for the transient children (windows, apps,
// terminals) that come and go while the desktop is alive, and presents
// itself as a Child so a DesktopSupervisor can restart it as a unit if the
// desktop itself fails.
type DesktopActor struct {
	desktopID string
	children  *Supervisor

	mu       sync.Mutex
	err      error
	stopOnce sync.Once
	done     chan struct{}
}

// NewDesktopActor starts a DesktopActor and its nested transient-child
// supervisor. A transient child's own restart exhaustion escalates only as
// far as this desktop: it stops the DesktopActor (setting its Err), which
// in turn triggers the outer DesktopSupervisor's one-for-one restart for
// this desktop_id.
func NewDesktopActor(ctx context.Context, desktopID string) *DesktopActor {
	d := &DesktopActor{
		desktopID: desktopID,
		done:      make(chan struct{}),
	}
	d.children = New(DefaultRestartPolicy, func(name string, reason error) {
		d.fail(fmt.Errorf("transient child %q exhausted restarts: %w", name, reason))
	})
	return d
}

// DesktopID returns the stable identity this actor was created for.
func (d *DesktopActor) DesktopID() string { return d.desktopID }

// StartTransient registers a window/app/terminal child under this desktop.
func (d *DesktopActor) StartTransient(ctx context.Context, spec ChildSpec) error {
	return d.children.StartChild(ctx, spec)
}

// Transient returns a currently live transient child by name.
func (d *DesktopActor) Transient(name string) (Child, bool) {
	return d.children.Get(name)
}

func (d *DesktopActor) fail(err error) {
	d.mu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.mu.Unlock()
	d.stopOnce.Do(func() { close(d.done) })
}

// Stop implements Child: cooperative shutdown of every transient child,
// then signal Done with no error (a requested stop, not a failure).
func (d *DesktopActor) Stop() {
	d.children.Stop()
	d.stopOnce.Do(func() { close(d.done) })
}

// Done implements Child.
func (d *DesktopActor) Done() <-chan struct{} { return d.done }

// Err implements Child.
func (d *DesktopActor) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// DesktopRegistry is a Supervisor whose children are DesktopActors, named
// "desktop:{desktop_id}" so a restarted desktop is still reachable under the
// id callers already hold.
type DesktopRegistry struct {
	sup *Supervisor
}

func desktopChildName(desktopID string) string { return "desktop:" + desktopID }

// NewDesktopRegistry constructs the DesktopSupervisor. escalate is called if
// a desktop itself exhausts its restart intensity — the caller (typically
// the Application) decides what "stop the supervisor itself" means at the
// top of the tree.
func NewDesktopRegistry(escalate func(desktopID string, reason error)) *DesktopRegistry {
	r := &DesktopRegistry{}
	r.sup = New(DefaultRestartPolicy, func(name string, reason error) {
		if escalate != nil {
			escalate(name, reason)
		}
	})
	return r
}

// Ensure starts a DesktopActor for desktopID if one is not already running,
// and returns it either way.
func (r *DesktopRegistry) Ensure(ctx context.Context, desktopID string) (*DesktopActor, error) {
	if actor, ok := r.Get(desktopID); ok {
		return actor, nil
	}
	name := desktopChildName(desktopID)
	err := r.sup.StartChild(ctx, ChildSpec{
		Name: name,
		Start: func(ctx context.Context) (Child, error) {
			return NewDesktopActor(ctx, desktopID), nil
		},
	})
	if err != nil {
		return nil, err
	}
	actor, _ := r.Get(desktopID)
	return actor, nil
}

// Get looks up the live DesktopActor for desktopID, preserving identity
// across any restarts the DesktopSupervisor has performed.
func (r *DesktopRegistry) Get(desktopID string) (*DesktopActor, bool) {
	child, ok := r.sup.Get(desktopChildName(desktopID))
	if !ok {
		return nil, false
	}
	actor, ok := child.(*DesktopActor)
	return actor, ok
}

// Stop tears down every desktop.
func (r *DesktopRegistry) Stop() {
	r.sup.Stop()
}
