package cmd

import (
	"github.com/spf13/pflag"
)

var globalConductorAddr string

// AddGlobalFlags registers the flags shared by every conductorctl subcommand.
func AddGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&globalConductorAddr,
		"conductor-addr",
		"127.0.0.1:8080",
		"Address of the hivemind HTTP API server (host:port)")
}

// ConductorAddr returns the configured hivemind HTTP API server address.
func ConductorAddr() string {
	return globalConductorAddr
}
