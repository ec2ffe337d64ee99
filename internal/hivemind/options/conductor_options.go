package options

import (
	"errors"

	"github.com/spf13/pflag"
)

// ConductorOptions holds the command-line-configurable subset of the
// Conductor Runtime's settings, mirroring MCPOptions' standalone-subsystem
// shape: the bulk of the module's configuration lives in conductor.Config,
// this only covers what an operator would reasonably want as a flag.
type ConductorOptions struct {
	// Enabled toggles whether the Conductor Runtime module is constructed
	// and wired into the API server at all. Default: false.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// EventStoreBackend selects "inmemory" or "boltdb". Default: "inmemory".
	EventStoreBackend string `json:"event_store_backend" mapstructure:"event_store_backend"`
	// EventStorePath is the BoltDB file path when EventStoreBackend="boltdb".
	EventStorePath string `json:"event_store_path" mapstructure:"event_store_path"`
	// RunsDir is where run documents are persisted.
	RunsDir string `json:"runs_dir" mapstructure:"runs_dir"`
}

// NewConductorOptions creates a default ConductorOptions instance.
func NewConductorOptions() *ConductorOptions {
	return &ConductorOptions{
		Enabled:           false,
		EventStoreBackend: "inmemory",
		EventStorePath:    "data/conductor/events.db",
		RunsDir:           "data/conductor/runs",
	}
}

// Validate checks the ConductorOptions for correctness.
func (o *ConductorOptions) Validate() error {
	if o.EventStoreBackend != "inmemory" && o.EventStoreBackend != "boltdb" {
		return errors.New("conductor.event_store_backend must be \"inmemory\" or \"boltdb\"")
	}
	return nil
}

// AddFlags adds the ConductorOptions flags to the given flag set.
func (o *ConductorOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "conductor.enabled", o.Enabled, "Enable the Conductor Runtime module.")
	fs.StringVar(&o.EventStoreBackend, "conductor.event-store-backend", o.EventStoreBackend, "Conductor event store backend: inmemory or boltdb.")
	fs.StringVar(&o.EventStorePath, "conductor.event-store-path", o.EventStorePath, "Conductor BoltDB event store file path.")
	fs.StringVar(&o.RunsDir, "conductor.runs-dir", o.RunsDir, "Directory where Conductor run documents are persisted.")
}
