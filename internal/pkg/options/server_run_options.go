package options

import (
	"fmt"

	genericserver "github.com/kiosk404/echoryn/internal/pkg/server"
	"github.com/spf13/pflag"
)

// ServerRunOptions configures the generic HTTP server (gin) that fronts the
// conductor's external adapters.
type ServerRunOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port" mapstructure:"bind-port"`
	Mode        string `json:"mode" mapstructure:"mode"`
}

// NewServerRunOptions returns defaults.
func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		BindAddress: "0.0.0.0",
		BindPort:    8080,
		Mode:        "release",
	}
}

// AddFlags registers the generic server flags onto fs.
func (o *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "server.bind-address", o.BindAddress, "HTTP bind address")
	fs.IntVar(&o.BindPort, "server.bind-port", o.BindPort, "HTTP bind port")
	fs.StringVar(&o.Mode, "server.mode", o.Mode, "gin mode: debug|release|test")
}

// Validate checks option values.
func (o *ServerRunOptions) Validate() []error {
	var errs []error
	if o.BindPort < 0 || o.BindPort > 65535 {
		errs = append(errs, errInvalidPort("server.bind-port", o.BindPort))
	}
	return errs
}

// ApplyTo copies the resolved options onto a generic server Config.
func (o *ServerRunOptions) ApplyTo(c *genericserver.Config) error {
	c.BindAddress = o.BindAddress
	c.BindPort = o.BindPort
	if o.Mode != "" {
		c.Mode = ginMode(o.Mode)
	}
	return nil
}

func ginMode(mode string) string {
	switch mode {
	case "debug", "test":
		return mode
	default:
		return "release"
	}
}

func errInvalidPort(flag string, port int) error {
	return fmt.Errorf("invalid %s: %d (must be 0-65535)", flag, port)
}
