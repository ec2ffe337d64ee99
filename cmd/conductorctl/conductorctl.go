// Command conductorctl is the operator CLI for the Conductor Runtime: it
// submits objectives to a running conductord instance and reports run
// status over its HTTP API.
package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/kiosk404/echoryn/internal/conductorctl"
)

func main() {
	rand.New(rand.NewSource(time.Now().UnixNano()))

	command := conductorctl.NewDefaultConductorCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
