// Package posixsignal implements a shutdown.Manager that triggers on
// SIGINT/SIGTERM, the standard way conductord and golem respond to ctrl-C
// and orchestrator-issued termination.
package posixsignal

import (
	"os"
	"os/signal"
	"syscall"
)

const Name = "posix-signal"

// PosixSignalManager watches os.Signal notifications.
type PosixSignalManager struct {
	sig chan os.Signal
}

// NewPosixSignalManager returns a manager watching the given signals,
// defaulting to SIGINT and SIGTERM when none are given.
func NewPosixSignalManager(sigs ...os.Signal) *PosixSignalManager {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	m := &PosixSignalManager{sig: make(chan os.Signal, 1)}
	signal.Notify(m.sig, sigs...)
	return m
}

func (m *PosixSignalManager) Name() string { return Name }

// Start blocks in a goroutine until a signal arrives, then calls shutdown.
func (m *PosixSignalManager) Start(shutdown func(name string) error) error {
	go func() {
		<-m.sig
		_ = shutdown(Name)
	}()
	return nil
}
