package options

import "github.com/spf13/pflag"

// GRPCOptions configures the conductor's gRPC listener: a thin wire-protocol
// shell over the core runtime.
type GRPCOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port" mapstructure:"bind-port"`
	MaxMsgSize  int    `json:"max-msg-size" mapstructure:"max-msg-size"`
}

// NewGRPCOptions returns defaults.
func NewGRPCOptions() *GRPCOptions {
	return &GRPCOptions{
		BindAddress: "127.0.0.1",
		BindPort:    11788,
		MaxMsgSize:  4 << 20,
	}
}

// AddFlags registers the gRPC flags onto fs.
func (o *GRPCOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "grpc.bind-address", o.BindAddress, "gRPC bind address")
	fs.IntVar(&o.BindPort, "grpc.bind-port", o.BindPort, "gRPC bind port")
	fs.IntVar(&o.MaxMsgSize, "grpc.max-msg-size", o.MaxMsgSize, "gRPC max message size in bytes")
}

// Validate checks option values.
func (o *GRPCOptions) Validate() []error {
	var errs []error
	if o.BindPort < 0 || o.BindPort > 65535 {
		errs = append(errs, errInvalidPort("grpc.bind-port", o.BindPort))
	}
	return errs
}
