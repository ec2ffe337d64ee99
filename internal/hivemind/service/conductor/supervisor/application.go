package supervisor

import (
	"github.com/kiosk404/echoryn/pkg/logger"
)

// Application is the root of the supervision tree: the permanent singletons
// (event store, memory store, Conductor) plus the DesktopSupervisor
// subtree, whose desktops (and their transient windows/apps/terminals) are
// the only things actually restarted. The permanent singletons are each
// already long-lived, self-contained components (the event store and
// conductor actor run their own loop goroutines) rather than things this
// tree restarts on failure — were one of them to crash the process is
// already in an unrecoverable state, so there is nothing useful a restart
// could repair.
type Application struct {
	Desktops *DesktopRegistry
}

// NewApplication wires the DesktopSupervisor, escalating a desktop's
// restart-intensity exhaustion to a log line: by design nothing above the
// DesktopSupervisor is restarted, so escalation here is terminal for that
// desktop, not for the process.
func NewApplication() *Application {
	app := &Application{}
	app.Desktops = NewDesktopRegistry(func(desktopID string, reason error) {
		logger.Error("supervisor: desktop %q permanently failed: %v", desktopID, reason)
	})
	return app
}

// Stop tears down every desktop and its transient children.
func (a *Application) Stop() {
	a.Desktops.Stop()
}
